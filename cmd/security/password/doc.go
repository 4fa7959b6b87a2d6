// Package password hashes and verifies user passwords with PBKDF2-HMAC-SHA256.
//
// Encoded hashes have the form "<hex salt>:<hex key>" at the legacy cost of
// 100k iterations, or "<iterations>:<hex salt>:<hex key>" at any other cost.
// Verify always uses the cost recorded in the hash, so Params.Iterations can
// change without invalidating stored hashes.
//
// Stored hashes are treated as untrusted input during Verify: malformed values
// or out-of-bounds salt/key lengths yield ErrInvalidHash, never a panic.
package password
