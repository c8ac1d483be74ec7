package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/usertheme/internal/server/repositories/themes"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	return db, mock
}

func TestNewPostgresRepositoryManager_ReturnsInterface(t *testing.T) {
	var _ RepositoryManager = NewPostgresRepositoryManager()
}

func TestThemes_ReturnsPostgresRepository(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	repo := (&PostgresRepositoryManager{}).Themes(db)
	require.NotNil(t, repo)
	_, ok := repo.(*themes.PostgresRepository)
	assert.True(t, ok)
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	require.NoError(t, (&PostgresRepositoryManager{}).RunMigrations(context.Background(), db))
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	err := (&PostgresRepositoryManager{}).RunMigrations(context.Background(), db)
	require.EqualError(t, err, "boom")
}

type fakeManager struct {
	PostgresRepositoryManager
	err error
}

func (f *fakeManager) RunMigrations(context.Context, *sql.DB) error { return f.err }

func withMockOpen(t *testing.T, db *sql.DB, openErr error) {
	t.Helper()
	orig := sqlOpen
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		if driver != "pgx" {
			t.Fatalf("unexpected driver %q", driver)
		}
		return db, openErr
	}
	t.Cleanup(func() { sqlOpen = orig })
}

func TestOpenPostgres(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		db, mock := newDB(t)
		defer db.Close()
		mock.ExpectPing()
		withMockOpen(t, db, nil)

		got, err := OpenPostgres(context.Background(), "postgres://x", &fakeManager{})
		require.NoError(t, err)
		assert.Same(t, db, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("open error", func(t *testing.T) {
		withMockOpen(t, nil, errors.New("bad dsn"))
		_, err := OpenPostgres(context.Background(), "x", &fakeManager{})
		require.ErrorContains(t, err, "db open")
	})

	t.Run("ping error", func(t *testing.T) {
		db, mock := newDB(t)
		mock.ExpectPing().WillReturnError(errors.New("refused"))
		mock.ExpectClose()
		withMockOpen(t, db, nil)

		_, err := OpenPostgres(context.Background(), "x", &fakeManager{})
		require.ErrorContains(t, err, "db ping")
	})

	t.Run("migration error", func(t *testing.T) {
		db, mock := newDB(t)
		mock.ExpectPing()
		mock.ExpectClose()
		withMockOpen(t, db, nil)

		_, err := OpenPostgres(context.Background(), "x", &fakeManager{err: errors.New("boom")})
		require.ErrorContains(t, err, "db migrations")
	})
}
