// Package migrations embeds the goose migrations of the client cache database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
