package session

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore is an in-process Store for tests and database-less runs.
type MemoryStore struct {
	mu     sync.Mutex
	byHash map[string]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byHash: make(map[string]Record)}
}

func (s *MemoryStore) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[rec.TokenHash]; exists {
		return errors.New("session: duplicate refresh token hash")
	}
	s.byHash[rec.TokenHash] = rec
	return nil
}

func (s *MemoryStore) Rotate(ctx context.Context, in RotateInput) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byHash[in.OldHash]
	if !ok {
		return Record{}, ErrRefreshNotFound
	}
	delete(s.byHash, in.OldHash)

	if !in.Now.Before(old.ExpiresAt) {
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
	s.byHash[next.TokenHash] = next
	return next, nil
}

func (s *MemoryStore) Delete(ctx context.Context, tokenHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.byHash, tokenHash)
	s.mu.Unlock()
	return nil
}

// Len reports the number of live records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byHash)
}
