package client

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		t.Fatalf("tableExists query failed: %v", err)
	}
	return n > 0
}

func TestOpenCacheDB_CreatesSchema(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "themes.db")

	db, err := OpenCacheDB(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	for _, name := range []string{"goose_db_version", "theme_records", "metadata"} {
		if !tableExists(t, db, name) {
			t.Fatalf("expected table %s to exist after migrations", name)
		}
	}
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "themes.db")

	db, err := OpenCacheDB(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("RunMigrations (second) should be idempotent, got error: %v", err)
	}
}

func TestOpenCacheDB_MigrationError(t *testing.T) {
	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	_, err := OpenCacheDB(context.Background(), filepath.Join(t.TempDir(), "themes.db"))
	require.ErrorContains(t, err, "migrate cache db")
}

func TestOpenCacheDB_BadPath(t *testing.T) {
	_, err := OpenCacheDB(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "themes.db"))
	require.Error(t, err)
}
