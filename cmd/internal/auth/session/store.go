package session

import (
	"context"
	"time"
)

// Record mirrors a refresh_tokens row. TokenHash is the only trace of the raw token.
type Record struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	UserAgent string
}

// RotateInput describes one rotation step: the digest presented by the client and
// the successor row to create when that digest is still live.
type RotateInput struct {
	OldHash string
	Now     time.Time

	// Successor fields. UserID is taken from the consumed record.
	NewID     string
	NewHash   string
	ExpiresAt time.Time
	UserAgent string
}

// Store persists refresh-token records.
//
// Rotate is the only operation with ordering requirements. It must consume the old
// record with a conditional delete and create the successor only if that delete hit
// a row, so concurrent rotations of one token produce at most one success:
//   - no live row: ErrRefreshNotFound
//   - row expired at in.Now: the row is deleted and ErrRefreshExpired returned
//   - otherwise: the successor Record is returned
type Store interface {
	Create(ctx context.Context, rec Record) error
	Rotate(ctx context.Context, in RotateInput) (Record, error)

	// Delete removes the record with this digest. Missing rows are not an error.
	Delete(ctx context.Context, tokenHash string) error
}
