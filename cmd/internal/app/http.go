package app

import (
	"net/http"
	"time"

	authapi "pulselog/cmd/internal/auth/api"
	"pulselog/cmd/internal/httpx"
	"pulselog/cmd/internal/measurement"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

func registerHTTP(
	mux *http.ServeMux,
	log Logger,
	cfg Config,
	dbPool *pgxpool.Pool,
	auth *authapi.Handler,
	measurements *measurement.Handler,
	reg *prometheus.Registry,
) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.DB.ReadinessRequired && dbPool == nil {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if dbPool != nil {
			if err := PingDB(r.Context(), dbPool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	auth.Register(mux)
	measurements.Register(mux, auth.RequireAuth)

	if reg != nil {
		mux.Handle("/metrics", metricsHandler(reg))
	}

	mux.HandleFunc("/", httpx.NotFound)
}

// buildHandler applies the middleware chain, outermost first:
// request logging, metrics, security headers, CORS.
func buildHandler(mux http.Handler, log Logger, cfg Config, m *httpMetrics) http.Handler {
	var h http.Handler = mux
	h = WithCORS(h, cfg.CORS, log)
	h = WithSecurityHeaders(h)
	h = WithHTTPMetrics(h, m)
	h = WithRequestLogging(h, log)
	return h
}
