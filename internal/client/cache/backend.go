// Package cache is the client's persistent theme cache. A durable SQLite
// backend is paired with an in-memory one; any durable failure is retried
// on memory so callers never observe storage errors.
package cache

import (
	"context"

	"github.com/dmitrijs2005/usertheme/internal/client/models"
)

// CurrentVersionKey is the metadata key holding the locally active version.
const CurrentVersionKey = "current-version"

// Backend is the storage capability shared by both tiers. Get returns
// (nil, nil) on a miss and CurrentVersion returns "" when none is set.
type Backend interface {
	Get(ctx context.Context, version string) (*models.Record, error)
	Put(ctx context.Context, rec *models.Record) error
	Versions(ctx context.Context) ([]string, error)
	// Delete removes version and clears the current pointer if it
	// referenced it.
	Delete(ctx context.Context, version string) error
	CurrentVersion(ctx context.Context) (string, error)
	// SetCurrentVersion stores version; "" clears the pointer.
	SetCurrentVersion(ctx context.Context, version string) error
	History(ctx context.Context) ([]*models.Record, error)
}
