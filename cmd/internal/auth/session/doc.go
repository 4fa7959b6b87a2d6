// Package session implements the session lifecycle: login, refresh-token rotation,
// logout and access-token authentication.
//
// Access tokens are HS256 JWTs ({sub, username, exp}) verified without any store
// lookup, so they cannot be revoked before they expire; keep the TTL short.
// Refresh tokens are opaque random strings. Only their digest is persisted, and every
// successful rotation deletes the presented record before a successor exists, which
// makes each refresh token single-use.
//
// Transport concerns (cookies, headers, JSON) live in the auth api package.
package session
