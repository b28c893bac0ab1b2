// Package migrations embeds the goose SQL migrations of the upload tracker.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
