package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	separator = ":"

	minSaltLen = 8
	maxSaltLen = 64
	minKeyLen  = 16
	maxKeyLen  = 128

	// LegacyIterations is the implied cost of a two-part hash.
	LegacyIterations = 100_000

	maxIterations = 10_000_000
)

// Hash derives a PBKDF2-HMAC-SHA256 key from password with a fresh random salt.
// Format:
// <hex salt>:<hex key>                 when Iterations == LegacyIterations
// <iterations>:<hex salt>:<hex key>    otherwise
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}

	salt := make([]byte, c.Params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, c.Params.Iterations, c.Params.KeyLength, sha256.New)

	encoded := hex.EncodeToString(salt) + separator + hex.EncodeToString(key)
	if c.Params.Iterations != LegacyIterations {
		encoded = strconv.Itoa(c.Params.Iterations) + separator + encoded
	}
	return encoded, nil
}

// Verify checks whether password matches the given encoded hash, using the
// iteration count recorded in the hash rather than c.Params.Iterations.
// Returns (true, nil) for a match, (false, nil) for mismatch,
// and (false, ErrInvalidHash) for malformed hashes.
func (c Config) Verify(encodedHash, password string) (bool, error) {
	iterations, salt, expected, err := decode(encodedHash)
	if err != nil {
		return false, err
	}
	if len(password) == 0 || len(password) > 4*c.Policy.MaxLength {
		return false, nil
	}

	key := pbkdf2.Key([]byte(password), salt, iterations, len(expected), sha256.New)

	// Constant-time compare.
	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

// NeedsRehash reports whether encodedHash was derived with a different
// iteration count than c. Malformed hashes report false.
func (c Config) NeedsRehash(encodedHash string) bool {
	iterations, _, _, err := decode(encodedHash)
	return err == nil && iterations != c.Params.Iterations
}

// decode splits the encoded hash into iterations, salt and expected key.
func decode(encoded string) (int, []byte, []byte, error) {
	parts := strings.Split(encoded, separator)

	iterations := LegacyIterations
	switch len(parts) {
	case 2:
	case 3:
		n, err := strconv.Atoi(parts[0])
		if err != nil || n < 1 || n > maxIterations {
			return 0, nil, nil, ErrInvalidHash
		}
		iterations = n
		parts = parts[1:]
	default:
		return 0, nil, nil, ErrInvalidHash
	}
	if parts[0] == "" || parts[1] == "" {
		return 0, nil, nil, ErrInvalidHash
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return 0, nil, nil, ErrInvalidHash
	}
	key, err := hex.DecodeString(parts[1])
	if err != nil {
		return 0, nil, nil, ErrInvalidHash
	}

	if len(salt) < minSaltLen || len(salt) > maxSaltLen {
		return 0, nil, nil, ErrInvalidHash
	}
	if len(key) < minKeyLen || len(key) > maxKeyLen {
		return 0, nil, nil, ErrInvalidHash
	}
	return iterations, salt, key, nil
}
