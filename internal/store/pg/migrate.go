package pg

import (
	"context"
	"fmt"
	"hash/fnv"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/govpass/govpass/migrations"
)

// migrationLockID derives a deterministic 64-bit advisory lock ID so that
// concurrent replicas serialize schema changes on the same database.
func migrationLockID() int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("govpass:migrate"))
	return int64(h.Sum64())
}

// Migrate applies the embedded *_up.sql files in lexicographic order,
// tracking applied versions in schema_migrations. Safe to run from every
// replica at startup: an advisory lock makes it single-flight.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	lockID := migrationLockID()

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	lctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := conn.Exec(lctx, "SELECT pg_advisory_lock($1)", lockID); err != nil {
		return 0, fmt.Errorf("pg: acquire migration lock: %w", err)
	}
	defer func() {
		// Release on the same connection the lock was taken on.
		_, _ = conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", lockID)
	}()

	return s.runMigrations(ctx)
}

func (s *Store) runMigrations(ctx context.Context) (int, error) {
	const ensure = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := s.pool.Exec(ctx, ensure); err != nil {
		return 0, fmt.Errorf("pg: ensure schema_migrations: %w", err)
	}

	rows, err := s.pool.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return 0, fmt.Errorf("pg: read schema_migrations: %w", err)
	}
	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return 0, err
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	entries, err := fs.ReadDir(migrations.PostgresFS, migrations.PostgresDir)
	if err != nil {
		return 0, err
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), "_up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	count := 0
	for _, name := range files {
		if applied[name] {
			continue
		}
		b, err := fs.ReadFile(migrations.PostgresFS, migrations.PostgresDir+"/"+name)
		if err != nil {
			return count, err
		}

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return count, fmt.Errorf("pg: begin migration tx: %w", err)
		}
		if _, err := tx.Exec(ctx, string(b)); err != nil {
			_ = tx.Rollback(ctx)
			return count, fmt.Errorf("pg: exec %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", name); err != nil {
			_ = tx.Rollback(ctx)
			return count, fmt.Errorf("pg: record %s: %w", name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return count, fmt.Errorf("pg: commit %s: %w", name, err)
		}
		count++
	}
	return count, nil
}
