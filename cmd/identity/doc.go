// Package identity owns user credentials: registration, lookup and password login checks.
//
// Usernames are case-normalized (trim + lower) on every write and every read, and
// uniqueness is enforced by the store itself (a unique constraint in Postgres), never by
// a check-then-insert sequence.
package identity
