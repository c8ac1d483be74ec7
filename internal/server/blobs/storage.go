// Package blobs stores the raw bytes of theme versions. Metadata lives in
// the themes repository; a blob is addressed by (userID, version) only.
package blobs

import (
	"context"

	"github.com/dmitrijs2005/usertheme/internal/common"
)

// Storage persists version bytes. Get returns common.ErrorNotFound when
// nothing is stored under the key.
type Storage interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Key is the storage key of a version's bytes. Both segments are sanitized,
// so a key never escapes its user prefix.
func Key(userID, version string) string {
	return common.UserSegment(userID) + "/" + common.SanitizeSegment(version) + ".css"
}
