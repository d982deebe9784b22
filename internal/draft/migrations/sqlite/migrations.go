// Package sqlite embeds the goose migrations for the local SQLite database:
// the drafts table and the bundled directory tables.
package sqlite

import "embed"

//go:embed *.sql
var Migrations embed.FS
