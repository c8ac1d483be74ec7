// Package httpapi exposes the theme store over HTTP: the JSON API under
// /api, the page shell at / and the operational endpoints.
package httpapi

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/dmitrijs2005/usertheme/internal/logging"
	"github.com/dmitrijs2005/usertheme/internal/server/config"
	"github.com/dmitrijs2005/usertheme/internal/server/models"
	"github.com/dmitrijs2005/usertheme/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ThemeStore is the part of services.ThemeService the handlers need.
type ThemeStore interface {
	Submit(ctx context.Context, userID, css string) (*services.SubmitResult, error)
	Read(ctx context.Context, userID, version string) (*models.Record, error)
	Current(ctx context.Context, userID string) (*models.Record, error)
	SetCurrent(ctx context.Context, userID string, version *string) error
	ListVersions(ctx context.Context, userID string) ([]string, error)
	Info(ctx context.Context, userID string) (*models.ThemeInfo, error)
}

type Server struct {
	address          string
	themes           ThemeStore
	logger           logging.Logger
	jwtSecret        []byte
	defaultUserID    string
	maxCSSBytes      int
	fetchTimeout     time.Duration
	officialThemeURL string
	limiter          *userLimiter
	shell            *template.Template
	engine           *gin.Engine
}

func NewServer(cfg *config.Config, l logging.Logger, themes ThemeStore) *Server {
	s := &Server{
		address:          cfg.ListenAddr,
		themes:           themes,
		logger:           l.With("module", "http_server"),
		jwtSecret:        []byte(cfg.SecretKey),
		defaultUserID:    cfg.DefaultUserID,
		maxCSSBytes:      cfg.MaxCSSBytes,
		fetchTimeout:     cfg.ThemeFetchTimeout,
		officialThemeURL: cfg.OfficialThemeURL,
		limiter:          newUserLimiter(cfg.SubmitRatePerMinute),
		shell:            template.Must(template.New("shell").Parse(shellTemplate)),
	}
	if s.maxCSSBytes <= 0 {
		s.maxCSSBytes = config.DefaultMaxCSSBytes
	}
	if s.fetchTimeout <= 0 {
		s.fetchTimeout = config.DefaultThemeFetchTimeout
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), observeDuration())

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	withUser := r.Group("/", s.identity())
	withUser.GET("/", s.pageShell)

	api := withUser.Group("/api")
	api.GET("/user/info", s.userInfo)

	themes := api.Group("/user-theme")
	themes.POST("", s.limitSubmissions(), s.submit)
	themes.POST("/validate", s.validate)
	themes.GET("/versions", s.listVersions)
	themes.PUT("/current", s.setCurrent)
	themes.GET("/:version", s.readVersion)

	return r
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC()})
}
