package themes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/usertheme/internal/common"
	"github.com/dmitrijs2005/usertheme/internal/dbx"
	"github.com/dmitrijs2005/usertheme/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) SaveRecord(ctx context.Context, rec *models.Record) error {
	query := `
		INSERT INTO theme_records (user_id, version, hash, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, version) DO NOTHING;
	`
	if _, err := r.db.ExecContext(ctx, query, rec.UserID, rec.Version, rec.Hash, rec.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetRecord(ctx context.Context, userID, version string) (*models.Record, error) {
	query := `SELECT version, user_id, hash, created_at FROM theme_records WHERE user_id = $1 AND version = $2`

	var rec models.Record
	err := r.db.QueryRowContext(ctx, query, userID, version).Scan(&rec.Version, &rec.UserID, &rec.Hash, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select record: %w", err)
	}
	return &rec, nil
}

func (r *PostgresRepository) GetManifest(ctx context.Context, userID string) (*models.Manifest, error) {
	m := &models.Manifest{Versions: []models.ManifestEntry{}}

	var current sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT current_version FROM theme_manifests WHERE user_id = $1`, userID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select manifest: %w", err)
	}
	if current.Valid {
		v := current.String
		m.CurrentVersion = &v
	}

	query := `SELECT version, hash, created_at FROM theme_manifest_entries WHERE user_id = $1 ORDER BY position`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select manifest entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.ManifestEntry
		if err := rows.Scan(&e.Version, &e.Hash, &e.CreatedAt); err != nil {
			return nil, err
		}
		m.Versions = append(m.Versions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// SaveManifest rewrites the pointer and the entry list together. On a
// *sql.DB it opens its own transaction; on a *sql.Tx it joins the caller's.
func (r *PostgresRepository) SaveManifest(ctx context.Context, userID string, m *models.Manifest) error {
	if conn, ok := r.db.(*sql.DB); ok {
		return dbx.WithTx(ctx, conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return saveManifest(ctx, tx, userID, m)
		})
	}
	return saveManifest(ctx, r.db, userID, m)
}

func saveManifest(ctx context.Context, tx dbx.DBTX, userID string, m *models.Manifest) error {
	var current sql.NullString
	if m.CurrentVersion != nil {
		current = sql.NullString{String: *m.CurrentVersion, Valid: true}
	}

	upsert := `
		INSERT INTO theme_manifests (user_id, current_version, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id)
		DO UPDATE SET current_version = EXCLUDED.current_version, updated_at = now();
	`
	if _, err := tx.ExecContext(ctx, upsert, userID, current); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM theme_manifest_entries WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	insert := `
		INSERT INTO theme_manifest_entries (user_id, version, hash, created_at, position)
		VALUES ($1, $2, $3, $4, $5);
	`
	for i, e := range m.Versions {
		if _, err := tx.ExecContext(ctx, insert, userID, e.Version, e.Hash, e.CreatedAt, i); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}
