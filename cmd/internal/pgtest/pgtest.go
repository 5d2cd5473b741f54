// Package pgtest provides a migrated PostgreSQL database for integration tests.
//
// CHAI_TEST_DATABASE_URL points the tests at an existing server. Otherwise a
// postgres container is started once per test binary with testcontainers-go
// and reaped when the binary exits. Tests skip when Docker is unavailable
// (outside CI) or when CHAI_SKIP_CONTAINERS is set.
package pgtest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ameynaysathe/chai-backend/cmd/identity/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// EnvDatabaseURL overrides the container with an existing database.
const EnvDatabaseURL = "CHAI_TEST_DATABASE_URL"

const image = "postgres:16-alpine"

var (
	once    sync.Once
	dsn     string
	initErr error
)

// Pool returns a pool connected to a database with every migration applied.
// The pool is closed when t finishes.
func Pool(t testing.TB) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("CHAI_SKIP_CONTAINERS") != "" && os.Getenv(EnvDatabaseURL) == "" {
		t.Skip("integration test skipped: CHAI_SKIP_CONTAINERS is set")
	}

	once.Do(func() { dsn, initErr = prepare() })
	if initErr != nil {
		if os.Getenv("CI") == "" {
			t.Skipf("integration test skipped: %v", initErr)
		}
		t.Fatalf("postgres: %v", initErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("ping postgres: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func prepare() (out string, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	out = strings.TrimSpace(os.Getenv(EnvDatabaseURL))
	if out == "" {
		out, err = startContainer(ctx)
		if err != nil {
			return "", err
		}
	}

	db, err := sql.Open("pgx", out)
	if err != nil {
		return "", err
	}
	defer func() { _ = db.Close() }()

	if err := migrations.Up(ctx, db); err != nil {
		return "", fmt.Errorf("migrate: %w", err)
	}
	return out, nil
}

func startContainer(ctx context.Context) (dsn string, err error) {
	// Some docker host probes panic instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker unavailable: %v", r)
		}
	}()

	ctr, err := postgres.Run(ctx, image,
		postgres.WithDatabase("chai"),
		postgres.WithUsername("chai"),
		postgres.WithPassword("chai"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return "", fmt.Errorf("start postgres container: %w", err)
	}

	return ctr.ConnectionString(ctx, "sslmode=disable")
}
