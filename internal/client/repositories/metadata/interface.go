// Package metadata stores small key/value settings of the client cache,
// such as the locally believed current theme version.
package metadata

import (
	"context"
)

// Repository is a string-keyed byte store. Get returns (nil, nil) when the
// key is absent.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// DeleteIf removes key only while it still holds value.
	DeleteIf(ctx context.Context, key string, value []byte) error
}
