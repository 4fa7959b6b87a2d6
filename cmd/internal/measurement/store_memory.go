package measurement

import (
	"context"
	"sort"
	"sync"
	"time"

	"pulselog/cmd/identity/ids"
)

// MemoryStore is an in-process Store used when no database is configured and in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]Measurement
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Measurement)}
}

func (s *MemoryStore) Create(ctx context.Context, m Measurement) (Measurement, error) {
	if err := ctx.Err(); err != nil {
		return Measurement{}, err
	}
	if err := m.Validate(); err != nil {
		return Measurement{}, err
	}

	// TakenAt is client supplied and may predate the ULID epoch.
	id, err := ids.NewULID(time.Now().UTC())
	if err != nil {
		return Measurement{}, err
	}
	m.ID = id
	m.TakenAt = m.TakenAt.UTC()

	s.mu.Lock()
	s.rows[id] = m
	s.mu.Unlock()
	return m, nil
}

func (s *MemoryStore) List(ctx context.Context, userID string) ([]Measurement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]Measurement, 0)
	for _, m := range s.rows {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TakenAt.Equal(out[j].TakenAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].TakenAt.After(out[j].TakenAt)
	})
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.rows[id]
	if !ok || m.UserID != userID {
		return ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *MemoryStore) Average(ctx context.Context, userID string) (Average, error) {
	if err := ctx.Err(); err != nil {
		return Average{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var sys, dia, hr, n int64
	for _, m := range s.rows {
		if m.UserID != userID {
			continue
		}
		sys += int64(m.Systolic)
		dia += int64(m.Diastolic)
		hr += int64(m.HeartRate)
		n++
	}
	if n == 0 {
		return Average{}, nil
	}
	return Average{
		Systolic:  float64(sys) / float64(n),
		Diastolic: float64(dia) / float64(n),
		HeartRate: float64(hr) / float64(n),
		Count:     n,
	}, nil
}
