package measurement

import (
	"context"
	"testing"
	"time"

	"pulselog/cmd/identity"
	"pulselog/cmd/internal/testpg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests are opt-in and require PULSELOG_TEST_DATABASE_URL.

func TestPostgresStore_RoundTrip(t *testing.T) {
	t.Parallel()

	pool := testpg.Open(t)
	users, err := identity.NewPostgresStore(pool)
	require.NoError(t, err)
	s, err := NewPostgresStore(pool)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	alice, err := users.CreateUser(ctx, identity.CreateUserInput{Username: "alice", PasswordHash: "aa:bb"})
	require.NoError(t, err)
	bob, err := users.CreateUser(ctx, identity.CreateUserInput{Username: "bob", PasswordHash: "aa:bb"})
	require.NoError(t, err)

	avg, err := s.Average(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, Average{}, avg)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first, err := s.Create(ctx, reading(alice.ID, 120, 80, 70, base))
	require.NoError(t, err)
	second, err := s.Create(ctx, reading(alice.ID, 121, 81, 72, base.Add(time.Minute)))
	require.NoError(t, err)

	list, err := s.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.True(t, list[1].TakenAt.Equal(base))

	avg, err = s.Average(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, avg.Count)
	assert.InDelta(t, 120.5, avg.Systolic, 1e-9)

	assert.ErrorIs(t, s.Delete(ctx, bob.ID, first.ID), ErrNotFound)
	require.NoError(t, s.Delete(ctx, alice.ID, first.ID))
	assert.ErrorIs(t, s.Delete(ctx, alice.ID, first.ID), ErrNotFound)
}
