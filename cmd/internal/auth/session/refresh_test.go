package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pulselog/cmd/security/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRefresh(t *testing.T) (*RefreshTokens, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	r, err := NewRefreshTokens(store, validConfig())
	require.NoError(t, err)
	return r, store
}

func TestRefreshTokens_IssueStoresOnlyDigest(t *testing.T) {
	r, store := newTestRefresh(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	raw, rec, err := r.Issue(context.Background(), "user-1", "ua", now)
	require.NoError(t, err)

	assert.Len(t, raw, 64)
	assert.Equal(t, token.HashSHA256Hex(raw), rec.TokenHash)
	assert.NotEqual(t, raw, rec.TokenHash)
	assert.Equal(t, now.Add(730*24*time.Hour), rec.ExpiresAt)
	assert.Equal(t, "user-1", rec.UserID)
	assert.Equal(t, 1, store.Len())
}

func TestRefreshTokens_RotateIsSingleUse(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRefresh(t)
	now := time.Now().UTC()

	raw, _, err := r.Issue(ctx, "user-1", "", now)
	require.NoError(t, err)

	next, rec, err := r.Rotate(ctx, raw, "", now.Add(time.Minute))
	require.NoError(t, err)
	assert.NotEqual(t, raw, next)
	assert.Equal(t, "user-1", rec.UserID)
	assert.Equal(t, 1, store.Len())

	_, _, err = r.Rotate(ctx, raw, "", now.Add(2*time.Minute))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = r.Rotate(ctx, next, "", now.Add(3*time.Minute))
	assert.NoError(t, err)
}

func TestRefreshTokens_RotateExpiredDeletes(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRefresh(t)
	now := time.Now().UTC()

	raw, rec, err := r.Issue(ctx, "user-1", "", now)
	require.NoError(t, err)

	_, _, err = r.Rotate(ctx, raw, "", rec.ExpiresAt)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, 0, store.Len())
}

func TestRefreshTokens_RotateUnknown(t *testing.T) {
	r, _ := newTestRefresh(t)

	for _, raw := range []string{"", "  ", "deadbeef"} {
		_, _, err := r.Rotate(context.Background(), raw, "", time.Now())
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestRefreshTokens_RevokeIdempotent(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRefresh(t)

	raw, _, err := r.Issue(ctx, "user-1", "", time.Now())
	require.NoError(t, err)

	require.NoError(t, r.Revoke(ctx, raw))
	require.NoError(t, r.Revoke(ctx, raw))
	require.NoError(t, r.Revoke(ctx, ""))
	assert.Equal(t, 0, store.Len())

	_, _, err = r.Rotate(ctx, raw, "", time.Now())
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokens_ConcurrentRotateSingleWinner(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRefresh(t)
	now := time.Now().UTC()

	raw, _, err := r.Issue(ctx, "user-1", "", now)
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = r.Rotate(ctx, raw, "", now)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrInvalidToken):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, store.Len())
}

func TestRefreshTokens_HMACDigest(t *testing.T) {
	cfg := validConfig()
	cfg.TokenHMACKey = "0123456789abcdef0123456789abcdef"
	r, err := NewRefreshTokens(NewMemoryStore(), cfg)
	require.NoError(t, err)

	raw, rec, err := r.Issue(context.Background(), "user-1", "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, token.HashHMACSHA256Hex(raw, []byte(cfg.TokenHMACKey)), rec.TokenHash)
}
