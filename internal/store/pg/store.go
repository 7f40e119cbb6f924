// Package pg implements the repositories on PostgreSQL via pgx.
package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/govpass/govpass/internal/domain/repository"
)

// Config for the pgx pool.
type Config struct {
	DSN      string
	MaxConns int
}

// Store holds the shared pool. The repository accessors all share it;
// transactions are opened per-operation where atomicity is required.
type Store struct {
	pool *pgxpool.Pool
}

// New connects the pool and verifies it with a ping.
func New(ctx context.Context, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Clients() repository.ClientRepository   { return &clientRepo{pool: s.pool} }
func (s *Store) Codes() repository.CodeRepository       { return &codeRepo{pool: s.pool} }
func (s *Store) Tokens() repository.TokenRepository     { return &tokenRepo{pool: s.pool} }
func (s *Store) Consents() repository.ConsentRepository { return &consentRepo{pool: s.pool} }
func (s *Store) Citizens() repository.CitizenRepository { return &citizenRepo{pool: s.pool} }
func (s *Store) Audit() repository.AuditRepository      { return &auditRepo{pool: s.pool} }

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
