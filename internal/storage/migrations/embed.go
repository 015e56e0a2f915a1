package migrations

import "embed"

// FS embeds all SQL migration files for the SQLite progress store.
//
//go:embed *.sql
var FS embed.FS
