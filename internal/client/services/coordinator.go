// Package services holds the client's theme coordinator: it decides which
// version is active, resolves its bytes from the page shell, the local
// cache or the server, and keeps the page document in step.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/usertheme/internal/client/client"
	"github.com/dmitrijs2005/usertheme/internal/client/models"
	"github.com/dmitrijs2005/usertheme/internal/common"
	"github.com/dmitrijs2005/usertheme/internal/cryptox"
	"github.com/dmitrijs2005/usertheme/internal/logging"
	"github.com/dmitrijs2005/usertheme/internal/validator"
)

var (
	ErrHashMismatch     = errors.New("hash mismatch")
	ErrValidationFailed = errors.New("stylesheet validation failed")
)

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateApplied State = "applied"
	StateFailed  State = "failed"
)

// ThemeCache is the local record store. It never reports errors.
type ThemeCache interface {
	Get(ctx context.Context, version string) (*models.Record, bool)
	Put(ctx context.Context, rec *models.Record)
	Versions(ctx context.Context) []string
	CurrentVersion(ctx context.Context) string
	SetCurrentVersion(ctx context.Context, version string)
	History(ctx context.Context) []*models.Record
}

// StyleHost is the page the active style lives in.
type StyleHost interface {
	InjectStyle(id, version, css string)
	RemoveStyle(id string) bool
	RemoveAllManagedStyles() int
	InlineStyle(version string) (string, bool)
	SetBodyClass(class string, on bool)
}

// ApplyRequest selects a version and where its bytes may come from.
// ExpectedHash and ContentURL are optional.
type ApplyRequest struct {
	Version              string
	ExpectedHash         string
	ContentURL           string
	PreferServerRendered bool
}

type Snapshot struct {
	State             State
	CurrentVersion    string
	AvailableVersions []string
	Loading           bool
	Err               error
}

// ThemeCoordinator is safe for concurrent use. Every apply takes a token
// from seq; only the holder of the latest token may change the page or the
// observable state, and it does so under mu.
type ThemeCoordinator struct {
	client client.Client
	cache  ThemeCache
	page   StyleHost
	log    logging.Logger
	now    func() time.Time

	seq atomic.Uint64

	mu        sync.Mutex
	state     State
	current   string
	available []string
	loading   bool
	err       error
}

func NewThemeCoordinator(c client.Client, cache ThemeCache, page StyleHost, l logging.Logger) *ThemeCoordinator {
	return &ThemeCoordinator{
		client:    c,
		cache:     cache,
		page:      page,
		log:       l.With("module", "theme_coordinator"),
		now:       time.Now,
		state:     StateIdle,
		available: []string{},
	}
}

func (tc *ThemeCoordinator) Snapshot() Snapshot {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	return Snapshot{
		State:             tc.state,
		CurrentVersion:    tc.current,
		AvailableVersions: slices.Clone(tc.available),
		Loading:           tc.loading,
		Err:               tc.err,
	}
}

// Refresh asks the server which theme is active and applies it, preferring
// bytes already rendered into the page.
func (tc *ThemeCoordinator) Refresh(ctx context.Context) error {
	var info *models.UserInfo

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = tc.client.UserInfo(gctx)
		if err != nil {
			return fmt.Errorf("user info: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		tc.refreshCatalog(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if info == nil || !info.HasCustomTheme || info.Version == "" {
		tc.clearActive(ctx)
		return nil
	}

	return tc.Apply(ctx, ApplyRequest{
		Version:              info.Version,
		ExpectedHash:         info.Hash,
		ContentURL:           info.ContentURL,
		PreferServerRendered: true,
	})
}

// refreshCatalog merges server and local version ids. A server failure
// leaves only the local ids.
func (tc *ThemeCoordinator) refreshCatalog(ctx context.Context) []string {
	var server, local []string

	var g errgroup.Group
	g.Go(func() error {
		ids, err := tc.client.ListVersions(ctx)
		if err != nil {
			tc.log.Warn(ctx, "list server versions failed", "error", err)
			return nil
		}
		server = ids
		return nil
	})
	g.Go(func() error {
		local = tc.cache.Versions(ctx)
		return nil
	})
	_ = g.Wait()

	merged := make([]string, 0, len(server)+len(local))
	for _, v := range slices.Concat(server, local) {
		if v != "" {
			merged = append(merged, v)
		}
	}
	slices.Sort(merged)
	merged = slices.Compact(merged)

	tc.mu.Lock()
	tc.available = merged
	tc.mu.Unlock()

	return merged
}

// Apply makes req.Version the active theme. A superseded attempt returns
// nil without touching the page.
func (tc *ThemeCoordinator) Apply(ctx context.Context, req ApplyRequest) error {
	version := strings.TrimSpace(req.Version)
	if version == "" {
		return common.ErrorInvalidVersion
	}
	req.Version = version

	token := tc.seq.Add(1)
	tc.mu.Lock()
	if tc.isLatest(token) {
		tc.state = StateLoading
		tc.loading = true
		tc.err = nil
	}
	tc.mu.Unlock()

	rec, source, err := tc.resolve(ctx, req)
	if err == nil && source != sourceCache {
		tc.cache.Put(ctx, rec)
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	if !tc.isLatest(token) {
		tc.log.Debug(ctx, "apply superseded", "version", version, "error", err)
		return nil
	}

	if err != nil {
		tc.state = StateFailed
		tc.loading = false
		tc.err = err
		tc.log.Warn(ctx, "apply failed", "version", version, "error", err)
		return err
	}

	previous := tc.current
	tc.cache.SetCurrentVersion(ctx, version)
	tc.page.InjectStyle(common.StyleID(version), version, rec.CSS)
	tc.page.SetBodyClass(common.ThemeBodyClass, true)
	if previous != "" && previous != version {
		tc.page.RemoveStyle(common.StyleID(previous))
	}

	tc.current = version
	tc.state = StateApplied
	tc.loading = false
	tc.log.Info(ctx, "theme applied", "version", version, "source", source)
	return nil
}

func (tc *ThemeCoordinator) isLatest(token uint64) bool {
	return tc.seq.Load() == token
}

// Where applied bytes came from.
const (
	sourceShell   = "shell"
	sourceCache   = "cache"
	sourceNetwork = "network"
)

func (tc *ThemeCoordinator) resolve(ctx context.Context, req ApplyRequest) (*models.Record, string, error) {
	if req.PreferServerRendered && req.ExpectedHash != "" {
		if css, ok := tc.page.InlineStyle(req.Version); ok && strings.TrimSpace(css) != "" {
			if hash := cryptox.DigestString(css); hash == req.ExpectedHash && validator.Validate(css).Valid {
				return tc.record(req.Version, css, hash), sourceShell, nil
			}
			tc.log.Debug(ctx, "server-rendered style rejected", "version", req.Version)
		}
	}

	if rec, ok := tc.cache.Get(ctx, req.Version); ok {
		if usable(rec, req.ExpectedHash) {
			return rec, sourceCache, nil
		}
		tc.log.Debug(ctx, "cached record rejected", "version", req.Version)
	}

	contentURL := req.ContentURL
	if contentURL == "" {
		contentURL = common.ContentPathPrefix + url.PathEscape(req.Version)
	}
	css, err := tc.client.FetchCSS(ctx, contentURL)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", req.Version, err)
	}

	if res := validator.Validate(css); !res.Valid {
		msg := "unknown"
		if len(res.Errors) > 0 {
			msg = res.Errors[0].Message
		}
		return nil, "", fmt.Errorf("%w: %s", ErrValidationFailed, msg)
	}

	hash := cryptox.DigestString(css)
	if req.ExpectedHash != "" && hash != req.ExpectedHash {
		return nil, "", fmt.Errorf("%w: %s", ErrHashMismatch, req.Version)
	}
	return tc.record(req.Version, css, hash), sourceNetwork, nil
}

// usable reports whether a cached record is intact, matches expected when
// given and still passes the validator.
func usable(rec *models.Record, expected string) bool {
	if cryptox.DigestString(rec.CSS) != rec.Hash {
		return false
	}
	if expected != "" && rec.Hash != expected {
		return false
	}
	return validator.Validate(rec.CSS).Valid
}

func (tc *ThemeCoordinator) record(version, css, hash string) *models.Record {
	return &models.Record{Version: version, CSS: css, Hash: hash, CreatedAt: tc.now()}
}

// SwitchTheme applies version, then records it on the server on a best
// effort basis. Blank versions are ignored.
func (tc *ThemeCoordinator) SwitchTheme(ctx context.Context, version string) error {
	version = strings.TrimSpace(version)
	if version == "" {
		return nil
	}

	tc.mu.Lock()
	if tc.current != "" {
		tc.page.RemoveStyle(common.StyleID(tc.current))
	}
	tc.mu.Unlock()

	if err := tc.Apply(ctx, ApplyRequest{Version: version}); err != nil {
		return err
	}

	if err := tc.client.SetCurrent(ctx, &version); err != nil {
		tc.log.Warn(ctx, "failed to update server current version", "version", version, "error", err)
	}

	tc.refreshCatalog(ctx)
	return nil
}

// RevertToOfficial drops every user style and clears the active version
// locally and, on a best effort basis, on the server.
func (tc *ThemeCoordinator) RevertToOfficial(ctx context.Context) error {
	tc.clearActive(ctx)

	if err := tc.client.SetCurrent(ctx, nil); err != nil {
		tc.log.Warn(ctx, "failed to clear server current version", "error", err)
	}
	return nil
}

// clearActive supersedes any in-flight apply and returns the page to the
// official theme.
func (tc *ThemeCoordinator) clearActive(ctx context.Context) {
	tc.seq.Add(1)

	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.page.RemoveAllManagedStyles()
	tc.page.SetBodyClass(common.ThemeBodyClass, false)
	tc.cache.SetCurrentVersion(ctx, "")
	tc.current = ""
	tc.state = StateIdle
	tc.loading = false
	tc.err = nil
}

// History lists locally cached versions, newest first.
func (tc *ThemeCoordinator) History(ctx context.Context) []*models.Record {
	return tc.cache.History(ctx)
}
