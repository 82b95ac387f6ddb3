// Package migrations embeds the SQL schema migrations into the binary.
package migrations

import "embed"

// FS holds the *.sql files at its root; pass it to database.DB.Migrate
// with dir ".".
//
//go:embed *.sql
var FS embed.FS

// Dir is the directory within FS containing the migrations.
const Dir = "."
