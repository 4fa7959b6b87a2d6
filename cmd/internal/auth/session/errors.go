package session

import "errors"

var (
	// ErrInvalidToken covers every access or refresh token that cannot be honored:
	// bad signature, malformed, expired, unknown, already rotated.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrInvalidCredentials is the single login failure, whatever the cause.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrRefreshNotFound is returned by stores when no record matches the digest.
	ErrRefreshNotFound = errors.New("refresh token not found")

	// ErrRefreshExpired is returned by stores after deleting an expired record.
	ErrRefreshExpired = errors.New("refresh token expired")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
