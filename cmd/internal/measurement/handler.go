package measurement

import (
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pulselog/cmd/identity/ids"
	"pulselog/cmd/internal/auth/session"
	"pulselog/cmd/internal/httpx"
)

// Handler serves the measurement routes. Every route expects the caller's
// session.Identity in the request context.
type Handler struct {
	log      *slog.Logger
	store    Store
	now      func() time.Time
	maxBytes int64
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithClock overrides the clock used for readings posted without a timestamp.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// WithMaxBodyBytes bounds request bodies.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) { h.maxBytes = n }
}

// NewHandler constructs a Handler.
func NewHandler(log *slog.Logger, store Store, opts ...HandlerOption) (*Handler, error) {
	if store == nil {
		return nil, errors.New("measurement: nil store")
	}
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		log:   log,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Register wires the routes onto mux, each wrapped by guard.
func (h *Handler) Register(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	mux.Handle("/measurements", guard(http.HandlerFunc(h.handleMeasurements)))
	mux.Handle("/average", guard(http.HandlerFunc(h.handleAverage)))
	mux.Handle("/export", guard(http.HandlerFunc(h.handleExport)))
}

type createRequest struct {
	Systolic  *int   `json:"systolic"`
	Diastolic *int   `json:"diastolic"`
	HeartRate *int   `json:"heart_rate"`
	Timestamp string `json:"timestamp"`
}

type deleteRequest struct {
	ID string `json:"id"`
}

type measurementResponse struct {
	ID        string `json:"id"`
	Systolic  int    `json:"systolic"`
	Diastolic int    `json:"diastolic"`
	HeartRate int    `json:"heart_rate"`
	Timestamp string `json:"timestamp"`
}

type averageResponse struct {
	Systolic  float64 `json:"systolic"`
	Diastolic float64 `json:"diastolic"`
	HeartRate float64 `json:"heart_rate"`
	Count     int64   `json:"count"`
}

func (h *Handler) handleMeasurements(w http.ResponseWriter, r *http.Request) {
	id, ok := session.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, id.UserID)
	case http.MethodPost:
		h.create(w, r, id.UserID)
	case http.MethodDelete:
		h.delete(w, r, id.UserID)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		httpx.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, userID string) {
	rows, err := h.store.List(r.Context(), userID)
	if err != nil {
		h.log.Error("measurement.list.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	out := make([]measurementResponse, 0, len(rows))
	for _, m := range rows {
		out = append(out, measurementResponse{
			ID:        m.ID,
			Systolic:  m.Systolic,
			Diastolic: m.Diastolic,
			HeartRate: m.HeartRate,
			Timestamp: m.TakenAt.UTC().Format(time.RFC3339),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, userID string) {
	var req createRequest
	// The legacy frontend also sends a username field; it is ignored.
	if err := httpx.DecodeJSON(w, r, h.decodeOpts(), &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Systolic == nil || req.Diastolic == nil || req.HeartRate == nil {
		httpx.WriteError(w, http.StatusBadRequest, "Missing data")
		return
	}

	takenAt := h.now().UTC()
	if ts := strings.TrimSpace(req.Timestamp); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "Invalid timestamp")
			return
		}
		takenAt = t.UTC()
	}

	m, err := h.store.Create(r.Context(), Measurement{
		UserID:    userID,
		Systolic:  *req.Systolic,
		Diastolic: *req.Diastolic,
		HeartRate: *req.HeartRate,
		TakenAt:   takenAt,
	})
	if err != nil {
		if errors.Is(err, ErrInvalid) {
			httpx.WriteError(w, http.StatusBadRequest, "Invalid measurement values")
			return
		}
		h.log.Error("measurement.create.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	h.log.Debug("measurement.created", "user_id", userID, "id", m.ID)
	httpx.WriteJSON(w, http.StatusCreated, struct {
		Message string `json:"message"`
		ID      string `json:"id"`
	}{Message: "Measurement stored", ID: m.ID})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request, userID string) {
	mid := strings.TrimSpace(r.URL.Query().Get("id"))
	if mid == "" && r.ContentLength != 0 {
		var req deleteRequest
		if err := httpx.DecodeJSON(w, r, h.decodeOpts(), &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		mid = strings.TrimSpace(req.ID)
	}
	if mid == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing id")
		return
	}

	// Anything that is not a ULID cannot name a stored row.
	err := ErrNotFound
	if ids.Valid(mid) {
		err = h.store.Delete(r.Context(), userID, mid)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "Measurement not found or not deleted")
			return
		}
		h.log.Error("measurement.delete.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Measurement deleted")
}

func (h *Handler) handleAverage(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	id, ok := session.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	avg, err := h.store.Average(r.Context(), id.UserID)
	if err != nil {
		h.log.Error("measurement.average.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	avg = avg.Rounded()
	httpx.WriteJSON(w, http.StatusOK, averageResponse{
		Systolic:  avg.Systolic,
		Diastolic: avg.Diastolic,
		HeartRate: avg.HeartRate,
		Count:     avg.Count,
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	id, ok := session.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	rows, err := h.store.List(r.Context(), id.UserID)
	if err != nil {
		h.log.Error("measurement.export.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="measurements.csv"`)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if err := WriteCSV(w, rows); err != nil {
		h.log.Warn("measurement.export.write", "err", err)
	}
}

// CSVHeader is the first row of every export.
var CSVHeader = []string{"Systolic", "Diastolic", "Heart Rate", "Date", "Time"}

// WriteCSV writes rows as CSV with UTC DD/MM/YYYY dates and HH:MM:SS times.
func WriteCSV(w io.Writer, rows []Measurement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, m := range rows {
		t := m.TakenAt.UTC()
		rec := []string{
			strconv.Itoa(m.Systolic),
			strconv.Itoa(m.Diastolic),
			strconv.Itoa(m.HeartRate),
			t.Format("02/01/2006"),
			t.Format("15:04:05"),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (h *Handler) decodeOpts() httpx.DecodeOptions {
	return httpx.DecodeOptions{MaxBytes: h.maxBytes, AllowUnknown: true}
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet {
		return true
	}
	w.Header().Set("Allow", http.MethodGet)
	httpx.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}
