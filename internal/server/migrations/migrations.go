// Package migrations embeds the PostgreSQL schema for theme metadata.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
