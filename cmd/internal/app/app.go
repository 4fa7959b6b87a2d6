// Package app wires the pulselog server runtime: config, logging, storage,
// HTTP routes and metrics.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"pulselog/cmd/identity"
	authapi "pulselog/cmd/internal/auth/api"
	"pulselog/cmd/internal/auth/session"
	"pulselog/cmd/internal/measurement"
	"pulselog/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// App is the pulselog server runtime.
type App struct {
	cfg Config
	log Logger

	dbPool  *pgxpool.Pool
	handler http.Handler
}

type stores struct {
	users        identity.Store
	refresh      session.Store
	measurements measurement.Store
}

// New constructs a fully wired App. With no database URL every store is in-memory.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.Log.Level)
	}
	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}
	if !cfg.Auth.CookieSecure {
		log.Warn("config.cookie_insecure", "hint", "refresh cookie sent without Secure; local development only")
	}

	st, pool, err := newStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	h, err := newHandler(cfg, log, st, pool)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, err
	}

	return &App{cfg: cfg, log: log, dbPool: pool, handler: h}, nil
}

func newHandler(cfg Config, log Logger, st stores, pool *pgxpool.Pool) (http.Handler, error) {
	creds, err := identity.NewCredentials(st.users, cfg.passwordConfig())
	if err != nil {
		return nil, err
	}
	sessions, err := session.New(cfg.sessionConfig(), creds, st.refresh, session.WithLogger(log))
	if err != nil {
		return nil, err
	}

	reg := newRegistry()
	httpM, err := newHTTPMetrics(reg)
	if err != nil {
		return nil, err
	}
	authM, err := authapi.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	auth, err := authapi.NewHandler(log, sessions, cfg.authAPIConfig(), authapi.WithMetrics(authM))
	if err != nil {
		return nil, err
	}
	meas, err := measurement.NewHandler(log, st.measurements, measurement.WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes))
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerHTTP(mux, log, cfg, pool, auth, meas, reg)
	return buildHandler(mux, log, cfg, httpM), nil
}

// newStores decides between Postgres-backed persistence and the in-memory dev stores.
func newStores(ctx context.Context, cfg Config, log Logger) (stores, *pgxpool.Pool, error) {
	if cfg.DB.URL == "" {
		log.Info("db.disabled.inmemory_store")
		return stores{
			users:        identity.NewMemoryStore(),
			refresh:      session.NewMemoryStore(),
			measurements: measurement.NewMemoryStore(),
		}, nil, nil
	}

	pool, err := NewDBPool(ctx, cfg.DB)
	if err != nil {
		return stores{}, nil, fmt.Errorf("db: %w", err)
	}

	if cfg.DB.Migrate {
		mctx, cancel := context.WithTimeout(ctx, time.Minute)
		err := migrations.Up(mctx, pool)
		cancel()
		if err != nil {
			pool.Close()
			return stores{}, nil, err
		}
		log.Info("db.migrated")
	}

	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return stores{}, nil, err
	}
	meas, err := measurement.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return stores{}, nil, err
	}

	log.Info("db.enabled.postgres_store")
	return stores{
		users:        users,
		refresh:      session.NewPostgresStore(pool),
		measurements: meas,
	}, pool, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run serves HTTP until ctx is cancelled or the listener fails, then shuts
// down gracefully and releases the pool.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.HTTP.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.HTTP.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.HTTP.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.HTTP.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.HTTP.MaxHeaderBytes, 1<<20),
	}
	defer func() {
		if a.dbPool != nil {
			a.dbPool.Close()
		}
	}()

	a.log.Info("server.start",
		"addr", a.cfg.HTTP.Addr,
		"base_url", runtimeBaseURL(a.cfg.HTTP.Addr),
		"db_enabled", a.dbPool != nil,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("server.fail", "err", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("server.stop", "reason", "context_done")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.HTTP.ShutdownTimeout, 10*time.Second))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.log.Info("server.stopped")
	return nil
}

// runtimeBaseURL turns a listen address into a URL a local client can dial.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
