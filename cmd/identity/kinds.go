package identity

import (
	"errors"
	"fmt"
)

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrNotFound     = errors.New("not_found")
	ErrConflict     = errors.New("conflict")

	// ErrUsernameTaken is returned by Credentials.Register on a username conflict.
	// It wraps ErrConflict.
	ErrUsernameTaken = fmt.Errorf("%w: username taken", ErrConflict)
)
