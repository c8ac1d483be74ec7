// Package themes persists theme record metadata and per-user manifests.
// Theme bytes are kept separately in blob storage.
package themes

import (
	"context"

	"github.com/dmitrijs2005/usertheme/internal/server/models"
)

// Repository stores record metadata and manifests for one user namespace
// per call. Implementations do not lock across calls: concurrent
// SaveManifest calls for one user race and the last write wins.
type Repository interface {
	// SaveRecord creates the record metadata. Saving an existing version
	// is a no-op since records are immutable.
	SaveRecord(ctx context.Context, rec *models.Record) error
	// GetRecord returns common.ErrorNotFound when the version is unknown.
	GetRecord(ctx context.Context, userID, version string) (*models.Record, error)
	// GetManifest returns an empty manifest for users with none.
	GetManifest(ctx context.Context, userID string) (*models.Manifest, error)
	// SaveManifest replaces the user's manifest.
	SaveManifest(ctx context.Context, userID string, m *models.Manifest) error
}
