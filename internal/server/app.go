// Package server wires the theme server together: storage backends chosen
// from configuration, the record store and its cache, and the HTTP server.
// It also handles graceful shutdown on SIGINT/SIGTERM/SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/usertheme/internal/logging"
	"github.com/dmitrijs2005/usertheme/internal/server/blobs"
	"github.com/dmitrijs2005/usertheme/internal/server/cache"
	"github.com/dmitrijs2005/usertheme/internal/server/config"
	"github.com/dmitrijs2005/usertheme/internal/server/httpapi"
	"github.com/dmitrijs2005/usertheme/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/usertheme/internal/server/repositories/themes"
	"github.com/dmitrijs2005/usertheme/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	cache  *cache.Cache
	themes *services.ThemeService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, "json", c.LogLevel)

	app := &App{config: c, logger: logger}

	repo, err := app.openRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository init error: %w", err)
	}

	store, err := app.openBlobs(ctx)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("blob storage init error: %w", err)
	}

	app.cache = cache.New(c.CacheTTL)
	app.themes = services.NewThemeService(repo, store, app.cache, logger)

	return app, nil
}

func (app *App) openRepository(ctx context.Context) (themes.Repository, error) {
	if app.config.DatabaseDSN == "" {
		app.logger.Info(ctx, "using file repository", "dir", app.config.DataDir)
		return themes.NewFileRepository(app.config.DataDir)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	db, err := repomanager.OpenPostgres(ctx, app.config.DatabaseDSN, rm)
	if err != nil {
		return nil, err
	}
	app.db = db
	app.logger.Info(ctx, "using postgres repository")
	return rm.Themes(db), nil
}

func (app *App) openBlobs(ctx context.Context) (blobs.Storage, error) {
	if app.config.S3Bucket == "" {
		return blobs.NewFSStorage(app.config.DataDir)
	}

	app.logger.Info(ctx, "using s3 blob storage", "bucket", app.config.S3Bucket, "endpoint", app.config.S3BaseEndpoint)
	return blobs.NewS3Storage(ctx, blobs.S3Options{
		Region:       app.config.S3Region,
		AccessKey:    app.config.S3RootUser,
		SecretKey:    app.config.S3RootPassword,
		Bucket:       app.config.S3Bucket,
		BaseEndpoint: app.config.S3BaseEndpoint,
	})
}

func (app *App) close() {
	if app.cache != nil {
		app.cache.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config, app.logger, app.themes)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.close()

	app.logger.Info(ctx, "App stopped")
}
