package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"pulselog/cmd/identity"
	"pulselog/cmd/internal/auth/session"
	"pulselog/cmd/internal/httpx"
)

// Sessions is the session orchestrator surface used by the HTTP layer.
type Sessions interface {
	Register(ctx context.Context, username, password string) (identity.User, error)
	Login(ctx context.Context, in session.LoginInput) (session.Issued, error)
	Refresh(ctx context.Context, raw, userAgent string) (session.Issued, error)
	Logout(ctx context.Context, raw string) error
	Authenticate(accessToken string) (session.Identity, error)
	RefreshTTL() time.Duration
}

// Handler wires HTTP auth endpoints to the session service.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	sessions Sessions
	metrics  *Metrics
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithMetrics enables auth event counters.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, sessions Sessions, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if sessions == nil {
		return nil, errors.New("auth: nil session service")
	}
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		log:      log,
		cfg:      cfg.normalized(),
		sessions: sessions,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/register", h.handleRegister)
	mux.HandleFunc("/login", h.handleLogin)
	mux.HandleFunc("/refresh", h.handleRefresh)
	mux.HandleFunc("/logout", h.handleLogout)
	mux.Handle("/me", h.RequireAuth(http.HandlerFunc(h.handleMe)))
}

// RequireAuth rejects requests without a valid bearer access token and stores
// the caller's session.Identity in the request context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := httpx.BearerToken(r)
		if tok == "" {
			httpx.WriteError(w, http.StatusUnauthorized, "Missing access token")
			return
		}
		id, err := h.sessions.Authenticate(tok)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(session.ContextWithIdentity(r.Context(), id)))
	})
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req credentialsRequest
	if err := httpx.DecodeJSON(w, r, h.decodeOpts(), &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing username or password")
		return
	}

	ip := clientIP(r, h.cfg.TrustProxy)
	u, err := h.sessions.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrUsernameTaken):
			h.audit("register", "conflict", ip)
			httpx.WriteError(w, http.StatusConflict, "Username already exists")
		case identity.IsInvalidInput(err):
			h.audit("register", "invalid", ip)
			httpx.WriteError(w, http.StatusBadRequest, "Invalid username or password")
		default:
			h.log.Error("auth.register.fail", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "Internal error")
		}
		return
	}

	h.audit("register", "success", ip, "user_id", u.ID)
	httpx.WriteMessage(w, http.StatusCreated, "User registered")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req credentialsRequest
	if err := httpx.DecodeJSON(w, r, h.decodeOpts(), &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing username or password")
		return
	}

	ip := clientIP(r, h.cfg.TrustProxy)
	issued, err := h.sessions.Login(r.Context(), session.LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		Remember:  req.Remember,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			h.audit("login", "invalid_credentials", ip)
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.log.Error("auth.login.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	if issued.RefreshToken != "" {
		h.setRefreshCookie(w, issued.RefreshToken, issued.RefreshExp)
	}

	h.audit("login", "success", ip, "user_id", issued.UserID, "remember", req.Remember)
	httpx.WriteJSON(w, http.StatusOK, toTokenResponse("Login successful", issued))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	raw, ok := h.refreshTokenFromCookie(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "Missing refresh token cookie")
		return
	}

	ip := clientIP(r, h.cfg.TrustProxy)
	issued, err := h.sessions.Refresh(r.Context(), raw, r.UserAgent())
	if err != nil {
		if errors.Is(err, session.ErrInvalidToken) {
			h.audit("refresh", "invalid_token", ip)
			h.expireRefreshCookie(w)
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
			return
		}
		h.log.Error("auth.refresh.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	h.setRefreshCookie(w, issued.RefreshToken, issued.RefreshExp)
	h.audit("refresh", "success", ip, "user_id", issued.UserID)
	httpx.WriteJSON(w, http.StatusOK, toTokenResponse("Refreshed", issued))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	if raw, ok := h.refreshTokenFromCookie(r); ok {
		if err := h.sessions.Logout(r.Context(), raw); err != nil {
			// The client is logged out either way; the record expires on its own.
			h.log.Error("auth.logout.revoke.fail", "err", err)
		}
	}

	h.expireRefreshCookie(w)
	h.audit("logout", "success", clientIP(r, h.cfg.TrustProxy))
	httpx.WriteMessage(w, http.StatusOK, "Logged out")
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	id, ok := session.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, meResponse{ID: id.UserID, Username: id.Username})
}

func (h *Handler) decodeOpts() httpx.DecodeOptions {
	return httpx.DecodeOptions{MaxBytes: h.cfg.MaxBodyBytes}
}

func toTokenResponse(msg string, issued session.Issued) tokenResponse {
	return tokenResponse{
		Message:     msg,
		AccessToken: issued.AccessToken,
		Username:    issued.Username,
		ExpiresIn:   issued.ExpiresIn,
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	httpx.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(v string) net.IP {
	first, _, _ := strings.Cut(v, ",")
	return net.ParseIP(strings.TrimSpace(first))
}
