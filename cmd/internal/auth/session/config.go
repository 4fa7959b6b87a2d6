package session

import (
	"fmt"
	"time"

	"pulselog/cmd/security/token"
)

// Config defines runtime configuration for the session subsystem.
type Config struct {
	// AccessTokenTTL is the lifetime of signed access tokens.
	AccessTokenTTL time.Duration

	// RefreshTTL is the lifetime of a refresh-token record.
	RefreshTTL time.Duration

	// RefreshTokenBytes is the random entropy behind each refresh token.
	RefreshTokenBytes int

	// AccessSecret is the HS256 signing key.
	AccessSecret string

	// TokenHMACKey switches refresh-token digests from SHA-256 to HMAC-SHA256.
	TokenHMACKey string

	// RequireTokenHMAC makes TokenHMACKey mandatory.
	RequireTokenHMAC bool
}

// MinAccessSecretBytes is the minimum HS256 key size.
const MinAccessSecretBytes = 32

// DefaultConfig returns the production lifetimes: 15 minute access tokens and
// two-year refresh tokens. AccessSecret is intentionally empty.
func DefaultConfig() Config {
	return Config{
		AccessTokenTTL:    15 * time.Minute,
		RefreshTTL:        730 * 24 * time.Hour,
		RefreshTokenBytes: 32,
	}
}

// Validate returns an error wrapping ErrConfig if cfg is unusable.
func (c Config) Validate() error {
	switch {
	case c.AccessTokenTTL < time.Second:
		return fmt.Errorf("%w: access token ttl must be >= 1s", ErrConfig)
	case c.RefreshTTL < c.AccessTokenTTL:
		return fmt.Errorf("%w: refresh ttl must be >= access token ttl", ErrConfig)
	case c.RefreshTokenBytes < 32 || c.RefreshTokenBytes > 64:
		return fmt.Errorf("%w: refresh token bytes must be in [32..64]", ErrConfig)
	case len(c.AccessSecret) < MinAccessSecretBytes:
		return fmt.Errorf("%w: access secret must be at least %d bytes", ErrConfig, MinAccessSecretBytes)
	}
	if _, err := c.tokenHasher(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return nil
}

func (c Config) tokenHasher() (token.Hasher, error) {
	if c.RequireTokenHMAC {
		return token.RequireHMAC(c.TokenHMACKey)
	}
	return token.NewHasher(c.TokenHMACKey)
}
