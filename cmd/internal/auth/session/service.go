package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pulselog/cmd/identity"
)

// Users is the slice of the credential store the session service depends on.
type Users interface {
	Register(ctx context.Context, username, password string) (identity.User, error)
	VerifyLogin(ctx context.Context, username, password string) (identity.User, bool, error)
	FindByID(ctx context.Context, id string) (identity.User, bool, error)
}

// Service composes credentials, access tokens and refresh tokens into the login,
// refresh and logout flows, plus the stateless authentication guard.
type Service struct {
	users   Users
	access  *AccessTokens
	refresh *RefreshTokens
	now     func() time.Time
	log     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source. Tests use it to step past token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for failures that are not returned to the caller.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// Identity is what protected handlers learn about the caller.
type Identity struct {
	UserID   string
	Username string
}

// Issued is the result of a login or refresh.
// RefreshToken is empty when none was requested.
type Issued struct {
	UserID       string
	Username     string
	AccessToken  string
	AccessExp    time.Time
	ExpiresIn    int64
	RefreshToken string
	RefreshExp   time.Time
}

// LoginInput carries login parameters. UserAgent is advisory only.
type LoginInput struct {
	Username  string
	Password  string
	Remember  bool
	UserAgent string
}

// NewService wires a Service from its components.
func NewService(users Users, access *AccessTokens, refresh *RefreshTokens, opts ...Option) (*Service, error) {
	if users == nil || access == nil || refresh == nil {
		return nil, errors.New("session: missing dependency")
	}
	s := &Service{
		users:   users,
		access:  access,
		refresh: refresh,
		now:     func() time.Time { return time.Now().UTC() },
		log:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// New builds the full component graph from cfg over the given stores.
func New(cfg Config, users Users, store Store, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	access, err := NewAccessTokens([]byte(cfg.AccessSecret), cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := NewRefreshTokens(store, cfg)
	if err != nil {
		return nil, err
	}
	return NewService(users, access, refresh, opts...)
}

// RefreshTTL returns the refresh-token lifetime, used for cookie Max-Age.
func (s *Service) RefreshTTL() time.Duration { return s.refresh.TTL() }

// Register creates a user account.
func (s *Service) Register(ctx context.Context, username, password string) (identity.User, error) {
	return s.users.Register(ctx, username, password)
}

// Login verifies credentials and issues an access token, plus a refresh token when
// in.Remember is set. Unknown user and wrong password are both ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, in LoginInput) (Issued, error) {
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		return Issued{}, ErrInvalidCredentials
	}

	u, ok, err := s.users.VerifyLogin(ctx, in.Username, in.Password)
	if err != nil {
		return Issued{}, err
	}
	if !ok {
		return Issued{}, ErrInvalidCredentials
	}

	now := s.now()
	out, err := s.issueAccess(u, now)
	if err != nil {
		return Issued{}, err
	}

	if in.Remember {
		raw, rec, err := s.refresh.Issue(ctx, u.ID, in.UserAgent, now)
		if err != nil {
			return Issued{}, err
		}
		out.RefreshToken = raw
		out.RefreshExp = rec.ExpiresAt
	}
	return out, nil
}

// Refresh rotates raw and returns a new access token bound to the successor.
// A token whose owner no longer exists is invalid.
func (s *Service) Refresh(ctx context.Context, raw, userAgent string) (Issued, error) {
	now := s.now()

	newRaw, rec, err := s.refresh.Rotate(ctx, raw, userAgent, now)
	if err != nil {
		return Issued{}, err
	}

	// raw is already consumed. On any failure below the successor is revoked too,
	// so the client has to log in again.
	u, ok, err := s.users.FindByID(ctx, rec.UserID)
	if err != nil {
		s.revokeSuccessor(ctx, newRaw, rec.UserID)
		return Issued{}, fmt.Errorf("session: refresh owner lookup: %w", err)
	}
	if !ok {
		s.revokeSuccessor(ctx, newRaw, rec.UserID)
		return Issued{}, ErrInvalidToken
	}

	out, err := s.issueAccess(u, now)
	if err != nil {
		s.revokeSuccessor(ctx, newRaw, rec.UserID)
		return Issued{}, err
	}
	out.RefreshToken = newRaw
	out.RefreshExp = rec.ExpiresAt
	return out, nil
}

func (s *Service) revokeSuccessor(ctx context.Context, raw, userID string) {
	if err := s.refresh.Revoke(context.WithoutCancel(ctx), raw); err != nil {
		s.log.Error("session.refresh.revoke_successor.fail",
			slog.String("user_id", userID),
			slog.Any("err", err),
		)
	}
}

// Logout revokes raw. Empty or unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, raw string) error {
	return s.refresh.Revoke(ctx, raw)
}

// Authenticate verifies an access token without touching storage.
func (s *Service) Authenticate(accessToken string) (Identity, error) {
	claims, err := s.access.Verify(accessToken, s.now())
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

func (s *Service) issueAccess(u identity.User, now time.Time) (Issued, error) {
	tok, exp, err := s.access.Issue(u.ID, u.Username, now)
	if err != nil {
		return Issued{}, err
	}
	return Issued{
		UserID:      u.ID,
		Username:    u.Username,
		AccessToken: tok,
		AccessExp:   exp,
		ExpiresIn:   int64(s.access.TTL() / time.Second),
	}, nil
}
