package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pulselog/cmd/security/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPasswordConfig() password.Config {
	cfg := password.DefaultConfig()
	cfg.Params.Iterations = 1_000
	return cfg
}

func newTestCredentials(t *testing.T) *Credentials {
	t.Helper()
	c, err := NewCredentials(NewMemoryStore(), testPasswordConfig())
	require.NoError(t, err)
	return c
}

func TestCredentials_RegisterThenVerify(t *testing.T) {
	ctx := context.Background()
	c := newTestCredentials(t)

	u, err := c.Register(ctx, "  Alice ", "Secret123!")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.NotEmpty(t, u.ID)
	assert.NotContains(t, u.PasswordHash, "Secret123!")

	got, ok, err := c.VerifyLogin(ctx, "ALICE", "Secret123!")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, u.ID, got.ID)
}

func TestCredentials_RegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	c := newTestCredentials(t)

	_, err := c.Register(ctx, "bob", "pw-one")
	require.NoError(t, err)

	_, err = c.Register(ctx, "Bob", "pw-two")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCredentials_RegisterMissingFields(t *testing.T) {
	ctx := context.Background()
	c := newTestCredentials(t)

	_, err := c.Register(ctx, "   ", "pw")
	assert.True(t, IsInvalidInput(err))

	_, err = c.Register(ctx, "carol", "")
	assert.True(t, IsInvalidInput(err))
}

func TestCredentials_VerifyLoginFailures(t *testing.T) {
	ctx := context.Background()
	c := newTestCredentials(t)

	_, err := c.Register(ctx, "dave", "right")
	require.NoError(t, err)

	_, ok, err := c.VerifyLogin(ctx, "dave", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.VerifyLogin(ctx, "nobody", "right")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.VerifyLogin(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredentials_MalformedStoredHashIsFailure(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c, err := NewCredentials(store, testPasswordConfig())
	require.NoError(t, err)

	_, err = store.CreateUser(ctx, CreateUserInput{Username: "erin", PasswordHash: "no-delimiter"})
	require.NoError(t, err)

	_, ok, err := c.VerifyLogin(ctx, "erin", "anything")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredentials_Find(t *testing.T) {
	ctx := context.Background()
	c := newTestCredentials(t)

	u, err := c.Register(ctx, "frank", "pw")
	require.NoError(t, err)

	got, ok, err := c.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "frank", got.Username)

	_, ok, err = c.FindByID(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err = c.FindByUsername(ctx, "FRANK")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, u.ID, got.ID)
}

func TestMemoryStore_ConcurrentCreateSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.CreateUser(ctx, CreateUserInput{Username: "Race", PasswordHash: "h:h"})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestCredentials_LoginSurvivesIterationChange(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	before, err := NewCredentials(store, testPasswordConfig())
	require.NoError(t, err)
	u, err := before.Register(ctx, "carol", "Secret123!")
	require.NoError(t, err)

	raised := testPasswordConfig()
	raised.Params.Iterations = 2_000
	after, err := NewCredentials(store, raised)
	require.NoError(t, err)

	got, ok, err := after.VerifyLogin(ctx, "carol", "Secret123!")
	require.NoError(t, err)
	require.True(t, ok, "existing user must still log in after iterations change")
	assert.Equal(t, u.ID, got.ID)

	_, ok, err = after.VerifyLogin(ctx, "carol", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}
