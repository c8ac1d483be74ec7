// Package records persists cached theme versions on the client.
package records

import (
	"context"

	"github.com/dmitrijs2005/usertheme/internal/client/models"
)

// Repository stores records keyed by version. Get returns (nil, nil) when
// the version is not stored.
type Repository interface {
	Get(ctx context.Context, version string) (*models.Record, error)
	Put(ctx context.Context, rec *models.Record) error
	Versions(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, version string) error
	// History returns every record, newest CreatedAt first.
	History(ctx context.Context) ([]*models.Record, error)
}
