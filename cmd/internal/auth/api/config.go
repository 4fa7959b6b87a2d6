package authapi

import (
	"net/http"
	"time"
)

// Config controls auth transport behavior.
type Config struct {
	MaxBodyBytes int64

	RefreshCookieName string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite

	// TrustProxy makes clientIP honor X-Forwarded-For / X-Real-IP (logging only).
	TrustProxy bool
}

// DefaultConfig returns the cookie contract clients depend on:
// refresh_token, HttpOnly, Secure, SameSite=Lax, Path=/.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:      1 << 20,
		RefreshCookieName: "refresh_token",
		CookiePath:        "/",
		CookieSecure:      true,
		CookieSameSite:    http.SameSiteLaxMode,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	if c.RefreshCookieName == "" {
		c.RefreshCookieName = def.RefreshCookieName
	}
	if c.CookiePath == "" {
		c.CookiePath = def.CookiePath
	}
	if c.CookieSameSite == 0 {
		c.CookieSameSite = def.CookieSameSite
	}
	return c
}

// epoch is used as the Expires value on cleared cookies.
var epoch = time.Unix(0, 0).UTC()
