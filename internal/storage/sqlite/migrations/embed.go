// Package migrations embeds the roll history schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
