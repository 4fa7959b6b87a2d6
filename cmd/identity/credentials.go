package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pulselog/cmd/security/password"
)

// Credentials is the credential store: registration, lookup and login verification
// over a Store and a password configuration.
type Credentials struct {
	store Store
	pw    password.Config
	now   func() time.Time

	// dummyHash is verified when a login names an unknown user so both
	// failure paths cost one PBKDF2 derivation.
	dummyHash string
}

// NewCredentials builds Credentials. It derives a throwaway hash up front.
func NewCredentials(store Store, pw password.Config) (*Credentials, error) {
	if store == nil {
		return nil, errors.New("identity: nil store")
	}
	dummy, err := pw.Hash("dummy-password-for-timing-only")
	if err != nil {
		return nil, fmt.Errorf("identity: dummy hash: %w", err)
	}
	return &Credentials{
		store:     store,
		pw:        pw,
		now:       func() time.Time { return time.Now().UTC() },
		dummyHash: dummy,
	}, nil
}

// Register creates a user with a freshly hashed password.
// It returns ErrUsernameTaken when the normalized username already exists.
func (c *Credentials) Register(ctx context.Context, username, pw string) (User, error) {
	const op = "identity.Register"

	username = NormalizeUsername(username)
	if username == "" || pw == "" {
		return User{}, invalid(op, "username and password are required")
	}
	if err := c.pw.Validate(pw); err != nil {
		return User{}, invalid(op, err.Error())
	}

	hash, err := c.pw.Hash(pw)
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}

	u, err := c.store.CreateUser(ctx, CreateUserInput{
		Username:     username,
		PasswordHash: hash,
		Now:          c.now(),
	})
	if err != nil {
		if IsConflict(err) {
			return User{}, ErrUsernameTaken
		}
		return User{}, err
	}
	return u, nil
}

// FindByUsername returns (user, true, nil) when found and (_, false, nil) when absent.
func (c *Credentials) FindByUsername(ctx context.Context, username string) (User, bool, error) {
	if strings.TrimSpace(username) == "" {
		return User{}, false, nil
	}
	return found(c.store.GetUserByUsername(ctx, username))
}

// FindByID returns (user, true, nil) when found and (_, false, nil) when absent.
func (c *Credentials) FindByID(ctx context.Context, id string) (User, bool, error) {
	if strings.TrimSpace(id) == "" {
		return User{}, false, nil
	}
	return found(c.store.GetUserByID(ctx, id))
}

// VerifyLogin returns the user only when the password matches.
// Unknown user, wrong password and malformed stored hash all yield ok=false.
func (c *Credentials) VerifyLogin(ctx context.Context, username, pw string) (User, bool, error) {
	u, ok, err := c.FindByUsername(ctx, username)
	if err != nil {
		return User{}, false, err
	}
	if !ok {
		_, _ = c.pw.Verify(c.dummyHash, pw)
		return User{}, false, nil
	}

	match, err := c.pw.Verify(u.PasswordHash, pw)
	if err != nil || !match {
		return User{}, false, nil
	}
	return u, true, nil
}

func found(u User, err error) (User, bool, error) {
	switch {
	case err == nil:
		return u, true, nil
	case IsNotFound(err), IsInvalidInput(err):
		return User{}, false, nil
	default:
		return User{}, false, err
	}
}
