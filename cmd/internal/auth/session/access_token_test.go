package session

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccessTokens(t *testing.T) *AccessTokens {
	t.Helper()
	a, err := NewAccessTokens([]byte(strings.Repeat("k", 32)), 15*time.Minute)
	require.NoError(t, err)
	return a
}

func TestAccessTokens_IssueAndVerify(t *testing.T) {
	a := newTestAccessTokens(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tok, exp, err := a.Issue("user-1", "alice", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute), exp)

	claims, err := a.Verify(tok, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, exp, claims.ExpiresAt)
}

func TestAccessTokens_WireFormat(t *testing.T) {
	a := newTestAccessTokens(t)
	now := time.Unix(1_700_000_000, 0).UTC()

	tok, _, err := a.Issue("user-1", "alice", now)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	for _, p := range parts {
		assert.NotContains(t, p, "=")
	}

	var header map[string]any
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &header))
	assert.Equal(t, "HS256", header["alg"])
	assert.Equal(t, "JWT", header["typ"])

	var payload map[string]any
	raw, err = base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "user-1", payload["sub"])
	assert.Equal(t, "alice", payload["username"])
	assert.EqualValues(t, 1_700_000_000+900, payload["exp"])
}

func TestAccessTokens_ExpiryBoundary(t *testing.T) {
	a := newTestAccessTokens(t)
	now := time.Unix(1_700_000_000, 0).UTC()

	tok, exp, err := a.Issue("user-1", "alice", now)
	require.NoError(t, err)

	_, err = a.Verify(tok, exp.Add(-time.Second))
	assert.NoError(t, err)

	_, err = a.Verify(tok, exp)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = a.Verify(tok, exp.Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokens_RejectsTampering(t *testing.T) {
	a := newTestAccessTokens(t)
	now := time.Now().UTC()

	tok, _, err := a.Issue("user-1", "alice", now)
	require.NoError(t, err)
	parts := strings.Split(tok, ".")

	forged, err := json.Marshal(map[string]any{"sub": "user-2", "username": "mallory", "exp": now.Add(time.Hour).Unix()})
	require.NoError(t, err)

	other, err := NewAccessTokens([]byte(strings.Repeat("x", 32)), time.Minute)
	require.NoError(t, err)
	otherTok, _, err := other.Issue("user-1", "alice", now)
	require.NoError(t, err)

	cases := map[string]string{
		"empty":          "",
		"two segments":   parts[0] + "." + parts[1],
		"four segments":  tok + ".x",
		"swapped claims": parts[0] + "." + base64.RawURLEncoding.EncodeToString(forged) + "." + parts[2],
		"bad signature":  parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString([]byte("nope")),
		"garbage":        "a.b.c",
		"other key":      otherTok,
		"alg none":       base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`)) + "." + parts[1] + ".",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := a.Verify(in, now)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewAccessTokens_RejectsShortSecret(t *testing.T) {
	_, err := NewAccessTokens([]byte("short"), time.Minute)
	assert.ErrorIs(t, err, ErrConfig)
}
