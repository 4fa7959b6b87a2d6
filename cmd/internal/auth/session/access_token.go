package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	UserID    string
	Username  string
	ExpiresAt time.Time
}

type accessJWTClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AccessTokens issues and verifies HS256 access tokens.
type AccessTokens struct {
	secret []byte
	ttl    time.Duration
}

// NewAccessTokens builds an AccessTokens codec.
func NewAccessTokens(secret []byte, ttl time.Duration) (*AccessTokens, error) {
	if len(secret) < MinAccessSecretBytes {
		return nil, fmt.Errorf("%w: access secret too short", ErrConfig)
	}
	if ttl < time.Second {
		return nil, fmt.Errorf("%w: access ttl too short", ErrConfig)
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &AccessTokens{secret: key, ttl: ttl}, nil
}

// TTL returns the configured token lifetime.
func (a *AccessTokens) TTL() time.Duration { return a.ttl }

// Issue signs {sub, username, exp}. exp has whole-second precision.
func (a *AccessTokens) Issue(userID, username string, now time.Time) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, errors.New("session: empty subject")
	}

	exp := now.Add(a.ttl).Truncate(time.Second)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, accessJWTClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	signed, err := tok.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: sign access token: %w", err)
	}
	return signed, exp.UTC(), nil
}

// Verify checks signature and expiry against now. A token is valid while now < exp.
// Every failure maps to ErrInvalidToken.
func (a *AccessTokens) Verify(raw string, now time.Time) (AccessClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > 4096 || strings.Count(raw, ".") != 2 {
		return AccessClaims{}, ErrInvalidToken
	}

	var claims accessJWTClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !parsed.Valid {
		return AccessClaims{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return AccessClaims{}, ErrInvalidToken
	}

	return AccessClaims{
		UserID:    claims.Subject,
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}
