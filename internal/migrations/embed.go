package migrations

import "embed"

// Embedded per-dialect schema migrations; go:embed cannot reach ../ so
// the SQL lives next to this file and other packages read it via FS.
//
//go:embed mysql postgres sqllite3
var FS embed.FS
