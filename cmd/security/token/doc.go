// Package token holds primitives for opaque bearer secrets: generation and
// server-side digests.
//
// Refresh tokens are already high-entropy, so a fast hash is enough for storage.
// When an HMAC key is configured, digests are keyed so a leaked table alone
// cannot be used to confirm guesses.
package token
