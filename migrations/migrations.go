// Package migrations embeds the versioned schema files. Files are named
// NNN_description.sql and applied in lexical order by db.Migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
