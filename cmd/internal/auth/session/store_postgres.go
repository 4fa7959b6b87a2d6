package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL via pgxpool.
//
// The pool is owned by the caller; this store does not close it.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, created_at, expires_at, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.UserID, rec.TokenHash, rec.CreatedAt, rec.ExpiresAt, nullIfEmpty(rec.UserAgent))
	if err != nil {
		return fmt.Errorf("session: create refresh token: %w", err)
	}
	return nil
}

// Rotate consumes the old row with DELETE ... RETURNING and inserts the successor
// in the same transaction. Two transactions deleting the same row serialize on its
// row lock; the loser sees zero rows.
func (s *PostgresStore) Rotate(ctx context.Context, in RotateInput) (Record, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var old Record
	var ua *string
	err = tx.QueryRow(ctx, `
		DELETE FROM refresh_tokens
		 WHERE token_hash = $1
		RETURNING id, user_id, token_hash, created_at, expires_at, user_agent
	`, in.OldHash).Scan(&old.ID, &old.UserID, &old.TokenHash, &old.CreatedAt, &old.ExpiresAt, &ua)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRefreshNotFound
		}
		return Record{}, fmt.Errorf("session: consume refresh token: %w", err)
	}

	if !in.Now.Before(old.ExpiresAt) {
		// Keep the delete: expired records are removed on presentation.
		if err := tx.Commit(ctx); err != nil {
			return Record{}, err
		}
		return Record{}, ErrRefreshExpired
	}

	next := Record{
		ID:        in.NewID,
		UserID:    old.UserID,
		TokenHash: in.NewHash,
		CreatedAt: in.Now,
		ExpiresAt: in.ExpiresAt,
		UserAgent: in.UserAgent,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, created_at, expires_at, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, next.ID, next.UserID, next.TokenHash, next.CreatedAt, next.ExpiresAt, nullIfEmpty(next.UserAgent))
	if err != nil {
		return Record{}, fmt.Errorf("session: insert successor: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, err
	}
	return next, nil
}

func (s *PostgresStore) Delete(ctx context.Context, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("session: delete refresh token: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
