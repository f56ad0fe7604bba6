// Package migrations embeds the schema of the games service.
package migrations

import "embed"

// FS holds the *.up.sql files, applied in file name order.
//
//go:embed *.up.sql
var FS embed.FS
