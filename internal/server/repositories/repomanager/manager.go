package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/usertheme/internal/dbx"
	"github.com/dmitrijs2005/usertheme/internal/server/repositories/themes"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Themes(db dbx.DBTX) themes.Repository
}
