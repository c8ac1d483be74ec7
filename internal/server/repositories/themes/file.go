package themes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/usertheme/internal/common"
	"github.com/dmitrijs2005/usertheme/internal/filex"
	"github.com/dmitrijs2005/usertheme/internal/server/models"
)

const manifestFile = "manifest.json"

// FileRepository keeps one directory per user holding manifest.json and a
// {version}.json metadata file per record. Each file is replaced
// atomically; the set of files is not.
type FileRepository struct {
	root string
}

// NewFileRepository creates root if needed.
func NewFileRepository(root string) (*FileRepository, error) {
	abs, err := filex.EnsureDir(root)
	if err != nil {
		return nil, err
	}
	return &FileRepository{root: abs}, nil
}

func (r *FileRepository) userDir(userID string) string {
	return filepath.Join(r.root, common.UserSegment(userID))
}

func (r *FileRepository) recordPath(userID, version string) string {
	return filepath.Join(r.userDir(userID), common.SanitizeSegment(version)+".json")
}

func (r *FileRepository) SaveRecord(ctx context.Context, rec *models.Record) error {
	path := r.recordPath(rec.UserID, rec.Version)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	meta := *rec
	meta.CSS = ""
	return writeJSON(path, &meta)
}

func (r *FileRepository) GetRecord(ctx context.Context, userID, version string) (*models.Record, error) {
	var rec models.Record
	if err := readJSON(r.recordPath(userID, version), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *FileRepository) GetManifest(ctx context.Context, userID string) (*models.Manifest, error) {
	m := &models.Manifest{}
	err := readJSON(filepath.Join(r.userDir(userID), manifestFile), m)
	if errors.Is(err, common.ErrorNotFound) {
		return &models.Manifest{Versions: []models.ManifestEntry{}}, nil
	}
	if err != nil {
		return nil, err
	}
	if m.Versions == nil {
		m.Versions = []models.ManifestEntry{}
	}
	return m, nil
}

func (r *FileRepository) SaveManifest(ctx context.Context, userID string, m *models.Manifest) error {
	return writeJSON(filepath.Join(r.userDir(userID), manifestFile), m)
}

func readJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return common.ErrorNotFound
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return filex.WriteFileAtomic(path, data, 0o640)
}
