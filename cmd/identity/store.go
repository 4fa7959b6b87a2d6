package identity

import (
	"context"
	"time"
)

// User is the authenticated principal. Username is always normalized.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUserInput describes a new user row. PasswordHash is already derived.
type CreateUserInput struct {
	Username     string
	PasswordHash string
	Now          time.Time
}

// Store persists users.
//
// Implementations normalize usernames themselves and must make CreateUser fail
// atomically with a ConflictError{Field: "username"} on a duplicate.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
}
