package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"pulselog/cmd/identity/ids"
	"pulselog/cmd/security/token"
)

// maxUserAgentLen bounds the advisory user agent stored with each record.
const maxUserAgentLen = 512

// RefreshTokens issues, rotates and revokes opaque refresh tokens over a Store.
type RefreshTokens struct {
	store  Store
	hasher token.Hasher
	ttl    time.Duration
	nBytes int
}

// NewRefreshTokens builds the refresh-token component from cfg.
func NewRefreshTokens(store Store, cfg Config) (*RefreshTokens, error) {
	if store == nil {
		return nil, errors.New("session: nil refresh store")
	}
	h, err := cfg.tokenHasher()
	if err != nil {
		return nil, err
	}
	return &RefreshTokens{store: store, hasher: h, ttl: cfg.RefreshTTL, nBytes: cfg.RefreshTokenBytes}, nil
}

// TTL returns the refresh-token lifetime.
func (r *RefreshTokens) TTL() time.Duration { return r.ttl }

// Issue creates a record for userID and returns the raw token. The raw value is
// never persisted.
func (r *RefreshTokens) Issue(ctx context.Context, userID, userAgent string, now time.Time) (string, Record, error) {
	raw, rec, err := r.mint(now, userAgent)
	if err != nil {
		return "", Record{}, err
	}
	rec.UserID = userID

	if err := r.store.Create(ctx, rec); err != nil {
		return "", Record{}, err
	}
	return raw, rec, nil
}

// Rotate consumes raw and returns its successor. Unknown, already-rotated and
// expired tokens all yield ErrInvalidToken; store failures pass through.
func (r *RefreshTokens) Rotate(ctx context.Context, raw, userAgent string, now time.Time) (string, Record, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > 1024 {
		return "", Record{}, ErrInvalidToken
	}

	newRaw, next, err := r.mint(now, userAgent)
	if err != nil {
		return "", Record{}, err
	}

	rec, err := r.store.Rotate(ctx, RotateInput{
		OldHash:   r.hasher.Hash(raw),
		Now:       now,
		NewID:     next.ID,
		NewHash:   next.TokenHash,
		ExpiresAt: next.ExpiresAt,
		UserAgent: next.UserAgent,
	})
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) || errors.Is(err, ErrRefreshExpired) {
			return "", Record{}, ErrInvalidToken
		}
		return "", Record{}, err
	}
	return newRaw, rec, nil
}

// Revoke deletes the record for raw. Unknown tokens are not an error.
func (r *RefreshTokens) Revoke(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > 1024 {
		return nil
	}
	return r.store.Delete(ctx, r.hasher.Hash(raw))
}

func (r *RefreshTokens) mint(now time.Time, userAgent string) (string, Record, error) {
	raw, err := token.NewOpaque(r.nBytes)
	if err != nil {
		return "", Record{}, err
	}
	id, err := ids.NewULID(now)
	if err != nil {
		return "", Record{}, err
	}
	return raw, Record{
		ID:        id,
		TokenHash: r.hasher.Hash(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
		UserAgent: truncate(strings.TrimSpace(userAgent), maxUserAgentLen),
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
