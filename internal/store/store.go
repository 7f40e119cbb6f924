// Package store selects and wires the persistence backend.
//
// Two drivers:
//   - "postgres": pgx pool, the production backend
//   - "memory":   in-process maps, for development and tests
package store

import (
	"context"
	"fmt"

	"github.com/govpass/govpass/internal/domain/repository"
	"github.com/govpass/govpass/internal/store/memory"
	"github.com/govpass/govpass/internal/store/pg"
)

// Store aggregates the repositories over one backend.
type Store interface {
	Clients() repository.ClientRepository
	Codes() repository.CodeRepository
	Tokens() repository.TokenRepository
	Consents() repository.ConsentRepository
	Citizens() repository.CitizenRepository
	Audit() repository.AuditRepository

	// Migrate applies pending schema migrations. The memory driver is
	// schemaless and reports zero applied.
	Migrate(ctx context.Context) (int, error)

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases the backend resources.
	Close() error
}

// Config selects the driver.
type Config struct {
	Driver       string // "postgres" | "memory"
	DSN          string
	MaxOpenConns int
}

// New builds a Store for the configured driver.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return pg.New(ctx, pg.Config{DSN: cfg.DSN, MaxConns: cfg.MaxOpenConns})
	case "memory", "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
