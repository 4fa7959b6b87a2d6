package app

import (
	"fmt"

	authapi "pulselog/cmd/internal/auth/api"
	"pulselog/cmd/internal/auth/session"
	"pulselog/cmd/security/password"
)

// ValidateSecurityConfig fails fast on weak signing or hashing settings.
// It validates the same session and password configs the runtime uses.
func ValidateSecurityConfig(cfg Config) error {
	if err := cfg.sessionConfig().Validate(); err != nil {
		switch {
		case len(cfg.Auth.AccessSecret) < session.MinAccessSecretBytes:
			return fmt.Errorf("security policy: %s_AUTH_ACCESS_SECRET must be at least %d bytes", EnvPrefix, session.MinAccessSecretBytes)
		case cfg.Auth.RequireTokenHMAC && cfg.Auth.TokenHMACKey == "":
			return fmt.Errorf("security policy: %s_AUTH_REQUIRE_TOKEN_HMAC=true but %s_AUTH_TOKEN_HMAC_KEY is missing", EnvPrefix, EnvPrefix)
		default:
			return fmt.Errorf("security policy: %w", err)
		}
	}
	if err := cfg.passwordConfig().Check(); err != nil {
		return fmt.Errorf("security policy: %w", err)
	}
	return nil
}

func (c Config) sessionConfig() session.Config {
	return session.Config{
		AccessTokenTTL:    c.Auth.AccessTTL,
		RefreshTTL:        c.Auth.RefreshTTL,
		RefreshTokenBytes: c.Auth.RefreshTokenBytes,
		AccessSecret:      c.Auth.AccessSecret,
		TokenHMACKey:      c.Auth.TokenHMACKey,
		RequireTokenHMAC:  c.Auth.RequireTokenHMAC,
	}
}

func (c Config) passwordConfig() password.Config {
	pw := password.DefaultConfig()
	if c.Auth.PBKDF2Iterations > 0 {
		pw.Params.Iterations = c.Auth.PBKDF2Iterations
	}
	return pw
}

func (c Config) authAPIConfig() authapi.Config {
	ac := authapi.DefaultConfig()
	ac.MaxBodyBytes = c.HTTP.MaxBodyBytes
	ac.CookieSecure = c.Auth.CookieSecure
	ac.CookieDomain = c.Auth.CookieDomain
	ac.TrustProxy = c.HTTP.TrustProxy
	return ac
}
