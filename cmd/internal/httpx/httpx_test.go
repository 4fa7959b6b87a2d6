package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":                "",
		"Bearer abc":      "abc",
		"bearer  abc ":    "abc",
		"Basic abc":       "",
		"Bearer":          "",
		"BEARER a.b.c":    "a.b.c",
		"Token something": "",
	}
	for header, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, BearerToken(r), "header %q", header)
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}

	decode := func(payload string, opts DecodeOptions) (body, error) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
		var b body
		err := DecodeJSON(httptest.NewRecorder(), r, opts, &b)
		return b, err
	}

	b, err := decode(`{"name":"x"}`, DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "x", b.Name)

	_, err = decode(`{"name":"x","extra":1}`, DecodeOptions{})
	assert.Error(t, err)

	b, err = decode(`{"name":"x","extra":1}`, DecodeOptions{AllowUnknown: true})
	require.NoError(t, err)
	assert.Equal(t, "x", b.Name)

	_, err = decode(`{"name":"x"}{"name":"y"}`, DecodeOptions{})
	assert.Error(t, err)

	_, err = decode(`{"name":"`+strings.Repeat("a", 64)+`"}`, DecodeOptions{MaxBytes: 16})
	assert.Error(t, err)
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusConflict, "Username already exists")

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"error":"Username already exists"}`, rr.Body.String())
}
