package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/usertheme/internal/client/models"
	"github.com/dmitrijs2005/usertheme/internal/dbx"
)

// SQLiteRepository keeps CreatedAt as unix milliseconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, version string) (*models.Record, error) {
	var (
		rec       models.Record
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT version, css, hash, created_at, user_id FROM theme_records WHERE version = ?`, version).
		Scan(&rec.Version, &rec.CSS, &rec.Hash, &createdAt, &rec.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record[%s]: %w", version, err)
	}
	rec.CreatedAt = time.UnixMilli(createdAt)
	return &rec, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, rec *models.Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO theme_records (version, css, hash, created_at, user_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(version) DO UPDATE SET
			css = excluded.css,
			hash = excluded.hash,
			created_at = excluded.created_at,
			user_id = excluded.user_id
	`, rec.Version, rec.CSS, rec.Hash, rec.CreatedAt.UnixMilli(), rec.UserID)
	if err != nil {
		return fmt.Errorf("failed to put record[%s]: %w", rec.Version, err)
	}
	return nil
}

func (r *SQLiteRepository) Versions(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT version FROM theme_records ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	versions := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate versions: %w", err)
	}
	return versions, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, version string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM theme_records WHERE version = ?`, version); err != nil {
		return fmt.Errorf("failed to delete record[%s]: %w", version, err)
	}
	return nil
}

func (r *SQLiteRepository) History(ctx context.Context) ([]*models.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT version, css, hash, created_at, user_id FROM theme_records ORDER BY created_at DESC, version`)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	history := []*models.Record{}
	for rows.Next() {
		var (
			rec       models.Record
			createdAt int64
		)
		if err := rows.Scan(&rec.Version, &rec.CSS, &rec.Hash, &createdAt, &rec.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(createdAt)
		history = append(history, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return history, nil
}
