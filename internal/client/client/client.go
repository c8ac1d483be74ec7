package client

import (
	"context"

	"github.com/dmitrijs2005/usertheme/internal/client/models"
	"github.com/dmitrijs2005/usertheme/internal/validator"
)

// Client is the theme server contract used by the coordinator and the REPL.
type Client interface {
	UserInfo(ctx context.Context) (*models.UserInfo, error)
	ListVersions(ctx context.Context) ([]string, error)
	FetchCSS(ctx context.Context, contentURL string) (string, error)
	SetCurrent(ctx context.Context, version *string) error
	Submit(ctx context.Context, css, source string) (*models.SubmitResult, error)
	Validate(ctx context.Context, css string) (*validator.Result, error)
	PageShell(ctx context.Context) (string, error)
}
