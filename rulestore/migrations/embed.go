// Package migrations embeds the rule store SQL migration files for goose.
package migrations

import "embed"

// FS contains all goose migration SQL files.
//
//go:embed *.sql
var FS embed.FS
