// Package app wires the chai server runtime: config, logging, storage, and HTTP routes.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/ameynaysathe/chai-backend/cmd/identity"
	authapi "github.com/ameynaysathe/chai-backend/cmd/internal/auth/api"
	"github.com/ameynaysathe/chai-backend/cmd/internal/auth/session"
	"github.com/ameynaysathe/chai-backend/cmd/security/password"
)

// App is the chai server runtime. It owns the DB pool and the HTTP handler tree.
type App struct {
	cfg Config
	log Logger

	pool    *pgxpool.Pool
	handler http.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	prints, err := ValidateSecurityConfig(cfg)
	if err != nil {
		return nil, err
	}

	users, pool, err := newUserStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	closePool := func() {
		if pool != nil {
			pool.Close()
		}
	}

	sessCfg, err := loadSessionConfig(cfg, pool != nil, log)
	if err != nil {
		closePool()
		return nil, err
	}
	issuer, err := session.NewIssuer(sessCfg)
	if err != nil {
		closePool()
		return nil, err
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		closePool()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := session.NewMetrics(reg)
	if err != nil {
		closePool()
		return nil, err
	}

	sessions, err := session.NewManager(users, issuer, password.NewVerifier(pwCfg),
		session.WithLogger(log.With("component", "session")),
		session.WithObserver(metrics),
		session.WithFingerprinter(prints),
		session.WithPasswordHasher(pwCfg),
	)
	if err != nil {
		closePool()
		return nil, err
	}

	auth, err := authapi.NewHandler(log.With("component", "auth"), sessions, authapi.LoadConfigFromEnv())
	if err != nil {
		closePool()
		return nil, err
	}

	handler := newRouter(routerDeps{
		log:      log,
		cfg:      cfg,
		pool:     pool,
		auth:     auth.Routes(),
		gatherer: reg,
	})

	return &App{cfg: cfg, log: log, pool: pool, handler: handler}, nil
}

// Handler exposes the routed handler tree.
func (a *App) Handler() http.Handler { return a.handler }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"base_url", runtimeBaseURL(a.cfg.HTTPAddr),
		"db_enabled", a.pool != nil,
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			return err
		}
		return nil
	})

	err := g.Wait()
	if a.pool != nil {
		a.pool.Close()
	}
	if err != nil {
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

// newUserStore picks Postgres when a database URL is configured and the
// in-memory store otherwise. The returned pool is nil in memory mode.
func newUserStore(ctx context.Context, cfg Config, log Logger) (identity.Store, *pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return identity.NewMemoryStore(), nil, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if cfg.DBAutoMigrate {
		if err := MigrateDB(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("db.migrated")
	}

	st, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := st.CheckSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	log.Info("db.enabled.postgres_store")
	return st, pool, nil
}

// loadSessionConfig reads signing keys from the environment. Dev mode and
// the in-memory store fall back to throwaway keys when none are configured.
func loadSessionConfig(cfg Config, dbEnabled bool, log Logger) (session.Config, error) {
	sc, err := session.LoadConfigFromEnv()
	if err == nil {
		return sc, nil
	}
	if dbEnabled && !cfg.DevKeys {
		return session.Config{}, err
	}

	log.Warn("auth.keys.ephemeral", "reason", err.Error())
	sc = session.DefaultConfig()
	sc.Issuer = EnvString("CHAI_AUTH_ISSUER", sc.Issuer)
	return sc.WithEphemeralKeys()
}

func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return "http://" + strings.TrimSpace(addr)
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
