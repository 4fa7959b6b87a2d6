// Package main provides a CI-friendly HTTP smoke test for the pulselog auth flow.
//
// It validates:
//   - register -> 201, duplicate register -> 409
//   - login with remember -> access token + refresh cookie
//   - guarded routes accept the bearer token
//   - refresh rotates the cookie and the old cookie is rejected
//   - logout revokes the current cookie
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const refreshCookieName = "refresh_token"

type smokeClient struct {
	base    string
	origin  string
	http    *http.Client
	timeout time.Duration
	verbose bool
}

type tokenBody struct {
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
	Username    string `json:"username"`
	ExpiresIn   int64  `json:"expiresIn"`
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "Server base URL")
		origin   = flag.String("origin", "http://localhost:5173", "Origin header to send")
		password = flag.String("password", "smoke-Secret-123", "Password for the throwaway user")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-request timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	c := &smokeClient{
		base:    strings.TrimRight(*baseURL, "/"),
		origin:  *origin,
		http:    &http.Client{},
		timeout: *timeout,
		verbose: *verbose,
	}
	root := context.Background()
	username := "smoke-" + strings.ToLower(ulid.Make().String())
	creds := map[string]any{"username": username, "password": *password}

	mustStatus(c.do(root, http.MethodPost, "/register", creds, "", nil), http.StatusCreated, "register")
	mustStatus(c.do(root, http.MethodPost, "/register", creds, "", nil), http.StatusConflict, "duplicate register")

	resp := c.do(root, http.MethodPost, "/login", map[string]any{"username": username, "password": *password, "remember": true}, "", nil)
	login := mustToken(resp, "login")
	cookie := mustRefreshCookie(resp, "login")

	mustStatus(c.do(root, http.MethodGet, "/me", nil, login.AccessToken, nil), http.StatusOK, "me")
	mustStatus(c.do(root, http.MethodPost, "/measurements",
		map[string]any{"systolic": 120, "diastolic": 80, "heart_rate": 70}, login.AccessToken, nil), http.StatusCreated, "create measurement")
	mustStatus(c.do(root, http.MethodGet, "/average", nil, login.AccessToken, nil), http.StatusOK, "average")

	resp = c.do(root, http.MethodPost, "/refresh", nil, "", cookie)
	refreshed := mustToken(resp, "refresh")
	rotated := mustRefreshCookie(resp, "refresh")
	if rotated.Value == cookie.Value {
		fatalf("refresh did not rotate the cookie")
	}
	mustStatus(c.do(root, http.MethodGet, "/me", nil, refreshed.AccessToken, nil), http.StatusOK, "me after refresh")
	mustStatus(c.do(root, http.MethodPost, "/refresh", nil, "", cookie), http.StatusUnauthorized, "reuse rotated cookie")

	mustStatus(c.do(root, http.MethodPost, "/logout", nil, "", rotated), http.StatusOK, "logout")
	mustStatus(c.do(root, http.MethodPost, "/refresh", nil, "", rotated), http.StatusUnauthorized, "refresh after logout")

	fmt.Printf("OK: auth smoke passed for %s\n", username)
}

func (c *smokeClient) do(parent context.Context, method, path string, body any, bearer string, cookie *http.Cookie) *http.Response {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			fatalf("marshal %s body: %v", path, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		fatalf("build %s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.origin != "" {
		req.Header.Set("Origin", c.origin)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	// The cookie is Secure, so a jar would drop it over plain http.
	if cookie != nil {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}

	// Buffer the body so the response outlives ctx.
	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		fatalf("read %s %s: %v", method, path, err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(raw))

	if c.verbose {
		fmt.Printf("%s %s -> %d %s\n", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return resp
}

func mustStatus(resp *http.Response, want int, step string) {
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		fatalf("%s: status=%d want=%d body=%s", step, resp.StatusCode, want, strings.TrimSpace(string(b)))
	}
}

func mustToken(resp *http.Response, step string) tokenBody {
	mustStatus(resp, http.StatusOK, step)

	var tb tokenBody
	if err := json.NewDecoder(resp.Body).Decode(&tb); err != nil {
		fatalf("%s: decode body: %v", step, err)
	}
	if tb.AccessToken == "" {
		fatalf("%s: missing accessToken", step)
	}
	if tb.ExpiresIn <= 0 {
		fatalf("%s: invalid expiresIn %d", step, tb.ExpiresIn)
	}
	return tb
}

func mustRefreshCookie(resp *http.Response, step string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name != refreshCookieName {
			continue
		}
		if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode {
			fatalf("%s: refresh cookie attributes wrong: %s", step, c.String())
		}
		if c.Value == "" {
			fatalf("%s: refresh cookie is empty", step)
		}
		return c
	}
	fatalf("%s: no %s cookie", step, refreshCookieName)
	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
