// Package migrations embeds the SQL migration files.
package migrations

import "embed"

// PostgresFS contains the PostgreSQL migrations, applied in lexicographic
// order by the store's migration runner.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// PostgresDir is the directory within PostgresFS where migrations live.
const PostgresDir = "postgres"
