package migrations

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"
)

func TestFS_ContainsUsersMigration(t *testing.T) {
	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		t.Fatalf("read embedded dir: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected embedded migrations")
	}

	b, err := fs.ReadFile(FS, "00001_create_users.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sqlText := string(b)
	for _, want := range []string{"-- +goose Up", "-- +goose Down", "refresh_token_hash", "uq_users_email_norm"} {
		if !strings.Contains(sqlText, want) {
			t.Fatalf("migration is missing %q", want)
		}
	}
}

func TestUp_PropagatesGooseError(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	boom := errors.New("boom")
	var gotDir string
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return boom
	}

	if err := Up(context.Background(), nil); !errors.Is(err, boom) {
		t.Fatalf("expected goose error, got %v", err)
	}
	if gotDir != "." {
		t.Fatalf("expected migrations dir \".\", got %q", gotDir)
	}
}
