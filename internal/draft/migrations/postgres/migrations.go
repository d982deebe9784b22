// Package postgres embeds the goose migrations for the Postgres draft store.
package postgres

import "embed"

//go:embed *.sql
var Migrations embed.FS
