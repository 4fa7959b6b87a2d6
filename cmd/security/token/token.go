package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// MinHMACKeyBytes is the minimum accepted HMAC-SHA256 key size.
const MinHMACKeyBytes = 32

// NewOpaque returns nBytes of crypto randomness, hex-encoded.
func NewOpaque(nBytes int) (string, error) {
	if nBytes < 16 || nBytes > 256 {
		return "", fmt.Errorf("%w: %d bytes", ErrInvalidLength, nBytes)
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// Hasher produces the storage digest for opaque tokens.
// The zero value hashes with plain SHA-256.
type Hasher struct {
	key []byte
}

// NewHasher builds a Hasher. An empty key selects SHA-256; a non-empty key
// must be at least MinHMACKeyBytes and selects HMAC-SHA256.
func NewHasher(key string) (Hasher, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Hasher{}, nil
	}
	// Bytes, not runes: the key is used raw.
	if len(key) < MinHMACKeyBytes {
		return Hasher{}, ErrHMACKeyTooShort
	}
	return Hasher{key: []byte(key)}, nil
}

// RequireHMAC is NewHasher with a mandatory key.
func RequireHMAC(key string) (Hasher, error) {
	if strings.TrimSpace(key) == "" {
		return Hasher{}, ErrHMACKeyMissing
	}
	return NewHasher(key)
}

// Keyed reports whether h uses HMAC.
func (h Hasher) Keyed() bool { return len(h.key) > 0 }

// Hash returns the 64-char hex digest stored in place of raw.
func (h Hasher) Hash(raw string) string {
	if !h.Keyed() {
		return HashSHA256Hex(raw)
	}
	return HashHMACSHA256Hex(raw, h.key)
}
