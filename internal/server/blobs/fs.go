package blobs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/usertheme/internal/common"
	"github.com/dmitrijs2005/usertheme/internal/filex"
)

// FSStorage keeps blobs as files below a root directory.
type FSStorage struct {
	root string
}

func NewFSStorage(root string) (*FSStorage, error) {
	abs, err := filex.EnsureDir(root)
	if err != nil {
		return nil, err
	}
	return &FSStorage{root: abs}, nil
}

func (s *FSStorage) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *FSStorage) Put(ctx context.Context, key string, data []byte) error {
	if err := filex.WriteFileAtomic(s.path(key), data, 0o640); err != nil {
		return fmt.Errorf("put blob %s: %w", key, err)
	}
	return nil
}

func (s *FSStorage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", key, err)
	}
	return data, nil
}
