package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/usertheme/internal/client/cache"
	"github.com/dmitrijs2005/usertheme/internal/client/client"
	"github.com/dmitrijs2005/usertheme/internal/client/config"
	"github.com/dmitrijs2005/usertheme/internal/client/dom"
	"github.com/dmitrijs2005/usertheme/internal/client/services"
	"github.com/dmitrijs2005/usertheme/internal/filex"
	"github.com/dmitrijs2005/usertheme/internal/logging"
)

type App struct {
	config      *config.Config
	client      client.Client
	cache       *cache.Cache
	page        *dom.Document
	coordinator *services.ThemeCoordinator
	log         logging.Logger
}

// NewApp opens the local cache, loads the page shell and builds the
// coordinator. A server that cannot serve the shell leaves an empty page.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	l := logging.New(os.Stderr, "text", c.LogLevel)

	api, err := client.NewHTTPClient(c.ServerURL,
		client.WithUserID(c.UserID),
		client.WithAccessToken(c.AccessToken),
		client.WithTimeout(c.RequestTimeout),
	)
	if err != nil {
		return nil, err
	}

	return newApp(ctx, c, api, openCache(ctx, c.CachePath, l), l), nil
}

func newApp(ctx context.Context, c *config.Config, api client.Client, tc *cache.Cache, l logging.Logger) *App {
	page := dom.New()
	if shell, err := api.PageShell(ctx); err != nil {
		l.Warn(ctx, "page shell unavailable", "error", err)
	} else if parsed, err := dom.ParseString(shell); err != nil {
		l.Warn(ctx, "page shell unreadable", "error", err)
	} else {
		page = parsed
	}

	return &App{
		config:      c,
		client:      api,
		cache:       tc,
		page:        page,
		coordinator: services.NewThemeCoordinator(api, tc, page, l),
		log:         l,
	}
}

func openCache(ctx context.Context, path string, l logging.Logger) *cache.Cache {
	if path == "" {
		return cache.New(nil, l)
	}
	if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
		l.Debug(ctx, "cache dir unavailable", "path", path, "error", err)
		return cache.New(nil, l)
	}
	return cache.Open(ctx, path, l)
}

// Run syncs the active theme once, then serves the REPL until exit.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if err := a.cache.Close(); err != nil {
			a.log.Warn(ctx, "close cache", "error", err)
		}
	}()

	printlnFn("Theme client (type 'help' for commands)")
	if err := a.coordinator.Refresh(ctx); err != nil {
		printlnFn("Refresh failed:", err)
	}

	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
}

func (a *App) status() string {
	s := a.coordinator.Snapshot()
	if s.CurrentVersion == "" {
		return "(official)"
	}
	return "(" + s.CurrentVersion + ")"
}

func (a *App) Status(ctx context.Context) error {
	s := a.coordinator.Snapshot()

	current := s.CurrentVersion
	if current == "" {
		current = "official theme"
	}
	printlnFn("State:   ", s.State)
	printlnFn("Current: ", current)
	if a.cache.Durable() {
		printlnFn("Cache:    durable")
	} else {
		printlnFn("Cache:    memory")
	}
	if s.Err != nil {
		printlnFn("Last error:", s.Err)
	}
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.coordinator.Refresh(ctx); err != nil {
		return err
	}
	return a.Status(ctx)
}

func (a *App) Versions(ctx context.Context) error {
	s := a.coordinator.Snapshot()
	if len(s.AvailableVersions) == 0 {
		printlnFn("No versions")
		return nil
	}
	for _, v := range s.AvailableVersions {
		marker := " "
		if v == s.CurrentVersion {
			marker = "*"
		}
		printlnFn(marker, v)
	}
	return nil
}

func (a *App) History(ctx context.Context) error {
	history := a.coordinator.History(ctx)
	if len(history) == 0 {
		printlnFn("No cached versions")
		return nil
	}
	for _, rec := range history {
		printlnFn(rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Version, fmt.Sprintf("%d bytes", len(rec.CSS)))
	}
	return nil
}

func (a *App) Switch(ctx context.Context, version string) error {
	if err := a.coordinator.SwitchTheme(ctx, version); err != nil {
		return err
	}
	printlnFn("Active:", a.coordinator.Snapshot().CurrentVersion)
	return nil
}

func (a *App) Revert(ctx context.Context) error {
	if err := a.coordinator.RevertToOfficial(ctx); err != nil {
		return err
	}
	printlnFn("Reverted to the official theme")
	return nil
}

// Submit uploads a stylesheet and activates the new version.
func (a *App) Submit(ctx context.Context, path, source string) error {
	css, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	res, err := a.client.Submit(ctx, string(css), source)
	var rej *client.RejectedError
	if errors.As(err, &rej) {
		printViolations(rej)
		return nil
	}
	if err != nil {
		return err
	}

	printlnFn("Stored version", res.Version)
	return a.coordinator.Apply(ctx, services.ApplyRequest{
		Version:      res.Version,
		ExpectedHash: res.Hash,
		ContentURL:   res.CSSURL,
	})
}

// Validate asks the server for its verdict without storing anything.
func (a *App) Validate(ctx context.Context, path string) error {
	css, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	res, err := a.client.Validate(ctx, string(css))
	if err != nil {
		return err
	}
	if res.Valid {
		printlnFn("Valid")
		return nil
	}
	printViolations(&client.RejectedError{Violations: res.Errors})
	return nil
}

// Render writes the page document with the active theme applied.
func (a *App) Render(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		path = a.config.OutputPath
	}
	if err := filex.WriteFileAtomic(path, []byte(a.page.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	printlnFn("Page written to", path)
	return nil
}

func printViolations(rej *client.RejectedError) {
	printlnFn("Rejected:")
	for _, v := range rej.Violations {
		loc := ""
		if v.Line > 0 {
			loc = fmt.Sprintf(" (%d:%d)", v.Line, v.Column)
		}
		printlnFn(fmt.Sprintf("  [%s] %s%s", v.Kind, v.Message, loc))
	}
}
