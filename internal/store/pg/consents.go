package pg

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/govpass/govpass/internal/domain/repository"
)

type consentRepo struct {
	pool *pgxpool.Pool
}

func (r *consentRepo) Upsert(ctx context.Context, userID, clientID string, scopes []string) (*repository.Consent, error) {
	const q = `
		INSERT INTO user_consents (id, user_id, client_id, granted_scopes, granted_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (user_id, client_id)
		DO UPDATE SET granted_scopes = EXCLUDED.granted_scopes, updated_at = NOW()
		RETURNING id, granted_at, updated_at`

	c := repository.Consent{
		UserID:   userID,
		ClientID: clientID,
		Scopes:   scopes,
	}
	err := r.pool.QueryRow(ctx, q, uuid.NewString(), userID, clientID, scopes).
		Scan(&c.ID, &c.GrantedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *consentRepo) Get(ctx context.Context, userID, clientID string) (*repository.Consent, error) {
	const q = `
		SELECT id, user_id, client_id, granted_scopes, granted_at, updated_at
		FROM user_consents
		WHERE user_id = $1 AND client_id = $2`

	var c repository.Consent
	err := r.pool.QueryRow(ctx, q, userID, clientID).Scan(
		&c.ID, &c.UserID, &c.ClientID, &c.Scopes, &c.GrantedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
