package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/usertheme/internal/common"
	"github.com/dmitrijs2005/usertheme/internal/cryptox"
	"github.com/dmitrijs2005/usertheme/internal/logging"
	"github.com/dmitrijs2005/usertheme/internal/server/blobs"
	"github.com/dmitrijs2005/usertheme/internal/server/cache"
	"github.com/dmitrijs2005/usertheme/internal/server/models"
	"github.com/dmitrijs2005/usertheme/internal/server/repositories/themes"
)

// SubmitResult describes a stored version.
type SubmitResult struct {
	Version string
	Hash    string
	Record  *models.Record
}

// ThemeService is the per-user versioned record store. Bytes go to blob
// storage, metadata and the manifest go to the repository, and reads are
// served through the cache.
//
// Nothing here serializes requests for the same user: two concurrent
// submissions both rewrite the manifest and the later write wins.
type ThemeService struct {
	repo  themes.Repository
	blobs blobs.Storage
	cache *cache.Cache
	log   logging.Logger
	now   func() time.Time
}

func NewThemeService(repo themes.Repository, store blobs.Storage, c *cache.Cache, log logging.Logger) *ThemeService {
	return &ThemeService{
		repo:  repo,
		blobs: store,
		cache: c,
		log:   log.With("module", "themes"),
		now:   time.Now,
	}
}

// Submit stores css as the user's newest version and makes it current.
// The caller is expected to have validated css already.
//
// Writes happen in order: blob, record, manifest. A failure part way leaves
// either an unreferenced blob or record, or (if a previous manifest write
// raced) a pointer that Current reports as no theme.
func (s *ThemeService) Submit(ctx context.Context, userID, css string) (*SubmitResult, error) {
	hash := cryptox.DigestString(css)
	version := common.VersionID(userID, hash)
	rec := &models.Record{
		Version:   version,
		UserID:    userID,
		Hash:      hash,
		CSS:       css,
		CreatedAt: s.now().UTC(),
	}

	if err := s.blobs.Put(ctx, blobs.Key(userID, version), []byte(css)); err != nil {
		return nil, fmt.Errorf("store bytes: %w", err)
	}

	if err := s.repo.SaveRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("store record: %w", err)
	}

	m, err := s.repo.GetManifest(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	m.Upsert(models.ManifestEntry{Version: version, Hash: hash, CreatedAt: rec.CreatedAt})
	m.CurrentVersion = &version
	if err := s.repo.SaveManifest(ctx, userID, m); err != nil {
		return nil, fmt.Errorf("store manifest: %w", err)
	}

	s.cache.Set(rec)
	s.log.Info(ctx, "theme stored", "user_id", userID, "version", version, "bytes", len(css))

	return &SubmitResult{Version: version, Hash: hash, Record: rec}, nil
}

// Read returns a version with its bytes, or common.ErrorNotFound. Bytes that
// fail their hash check are never cached or returned; the error wraps
// common.ErrorCorrupted.
func (s *ThemeService) Read(ctx context.Context, userID, version string) (*models.Record, error) {
	if rec, ok := s.cache.Get(userID, version); ok {
		return rec, nil
	}

	rec, err := s.repo.GetRecord(ctx, userID, version)
	if err != nil {
		return nil, err
	}

	data, err := s.blobs.Get(ctx, blobs.Key(userID, version))
	if err != nil {
		return nil, err
	}
	if !cryptox.Verify(data, rec.Hash) {
		s.log.Error(ctx, "stored bytes do not match record hash", "user_id", userID, "version", version)
		return nil, fmt.Errorf("version %s: %w", version, common.ErrorCorrupted)
	}
	rec.CSS = string(data)

	s.cache.Set(rec)
	return rec, nil
}

// Current resolves the manifest pointer. No pointer, or a pointer whose
// version cannot be read, yields (nil, nil).
func (s *ThemeService) Current(ctx context.Context, userID string) (*models.Record, error) {
	m, err := s.repo.GetManifest(ctx, userID)
	if err != nil {
		return nil, err
	}
	if m.CurrentVersion == nil {
		return nil, nil
	}

	version := *m.CurrentVersion
	if !m.Has(version) {
		s.log.Warn(ctx, "current version missing from manifest", "user_id", userID, "version", version)
		return nil, nil
	}

	rec, err := s.Read(ctx, userID, version)
	if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorCorrupted) {
		s.log.Warn(ctx, "unusable current version", "user_id", userID, "version", version, "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SetCurrent points the manifest at version, or clears it when version is nil.
func (s *ThemeService) SetCurrent(ctx context.Context, userID string, version *string) error {
	m, err := s.repo.GetManifest(ctx, userID)
	if err != nil {
		return err
	}
	if version != nil && !m.Has(*version) {
		return common.ErrorNotFound
	}

	m.CurrentVersion = version
	if err := s.repo.SaveManifest(ctx, userID, m); err != nil {
		return fmt.Errorf("store manifest: %w", err)
	}

	if version == nil {
		s.log.Info(ctx, "current theme cleared", "user_id", userID)
	} else {
		s.log.Info(ctx, "current theme set", "user_id", userID, "version", *version)
	}
	return nil
}

// ListVersions returns version ids newest first.
func (s *ThemeService) ListVersions(ctx context.Context, userID string) ([]string, error) {
	m, err := s.repo.GetManifest(ctx, userID)
	if err != nil {
		return nil, err
	}
	return m.VersionIDs(), nil
}

// Info projects the current theme for the client.
func (s *ThemeService) Info(ctx context.Context, userID string) (*models.ThemeInfo, error) {
	rec, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}

	info := &models.ThemeInfo{UserID: userID}
	if rec != nil {
		info.HasCustomTheme = true
		info.Version = rec.Version
		info.Hash = rec.Hash
		info.ContentURL = common.ContentURL(rec.Version)
	}
	return info, nil
}
