package cache

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/usertheme/internal/client/models"
	"github.com/dmitrijs2005/usertheme/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/usertheme/internal/client/repositories/records"
	"github.com/dmitrijs2005/usertheme/internal/dbx"
)

// SQLiteBackend persists the cache in the migrated client database.
type SQLiteBackend struct {
	db       *sql.DB
	records  records.Repository
	metadata metadata.Repository
}

func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{
		db:       db,
		records:  records.NewSQLiteRepository(db),
		metadata: metadata.NewSQLiteRepository(db),
	}
}

func (b *SQLiteBackend) Get(ctx context.Context, version string) (*models.Record, error) {
	return b.records.Get(ctx, version)
}

func (b *SQLiteBackend) Put(ctx context.Context, rec *models.Record) error {
	return b.records.Put(ctx, rec)
}

func (b *SQLiteBackend) Versions(ctx context.Context) ([]string, error) {
	return b.records.Versions(ctx)
}

func (b *SQLiteBackend) Delete(ctx context.Context, version string) error {
	return dbx.WithTx(ctx, b.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := records.NewSQLiteRepository(tx).Delete(ctx, version); err != nil {
			return err
		}
		return metadata.NewSQLiteRepository(tx).DeleteIf(ctx, CurrentVersionKey, []byte(version))
	})
}

func (b *SQLiteBackend) CurrentVersion(ctx context.Context) (string, error) {
	v, err := b.metadata.Get(ctx, CurrentVersionKey)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (b *SQLiteBackend) SetCurrentVersion(ctx context.Context, version string) error {
	if version == "" {
		return b.metadata.Delete(ctx, CurrentVersionKey)
	}
	return b.metadata.Set(ctx, CurrentVersionKey, []byte(version))
}

func (b *SQLiteBackend) History(ctx context.Context) ([]*models.Record, error) {
	return b.records.History(ctx)
}
