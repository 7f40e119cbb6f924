package pg

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/govpass/govpass/internal/domain/repository"
)

type clientRepo struct {
	pool *pgxpool.Pool
}

func (r *clientRepo) GetByClientID(ctx context.Context, clientID string) (*repository.Client, error) {
	const q = `
		SELECT id, client_id, name, type, secret_hash, redirect_uris, scopes, active, verified
		FROM oauth_clients
		WHERE client_id = $1`

	var c repository.Client
	err := r.pool.QueryRow(ctx, q, clientID).Scan(
		&c.ID, &c.ClientID, &c.Name, &c.Type, &c.SecretHash,
		&c.RedirectURIs, &c.Scopes, &c.Active, &c.Verified,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *clientRepo) Create(ctx context.Context, input repository.ClientInput) (*repository.Client, error) {
	const q = `
		INSERT INTO oauth_clients (id, client_id, name, type, secret_hash, redirect_uris, scopes, active, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`

	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, q,
		id, input.ClientID, input.Name, input.Type, input.SecretHash,
		input.RedirectURIs, input.Scopes, input.Active, input.Verified,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return &repository.Client{
		ID:           id,
		ClientID:     input.ClientID,
		Name:         input.Name,
		Type:         input.Type,
		SecretHash:   input.SecretHash,
		RedirectURIs: input.RedirectURIs,
		Scopes:       input.Scopes,
		Active:       input.Active,
		Verified:     input.Verified,
	}, nil
}
