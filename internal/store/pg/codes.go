package pg

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/govpass/govpass/internal/domain/repository"
)

type codeRepo struct {
	pool *pgxpool.Pool
}

func (r *codeRepo) Create(ctx context.Context, input repository.CreateCodeInput) (*repository.AuthorizationCode, error) {
	const q = `
		INSERT INTO authorization_codes
			(id, code_hash, client_id, user_id, citizen_id, scopes, redirect_uri,
			 code_challenge, code_challenge_method, nonce, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING expires_at, created_at`

	ac := repository.AuthorizationCode{
		ID:                  uuid.NewString(),
		CodeHash:            input.CodeHash,
		ClientID:            input.ClientID,
		UserID:              input.UserID,
		CitizenID:           input.CitizenID,
		Scopes:              input.Scopes,
		RedirectURI:         input.RedirectURI,
		CodeChallenge:       input.CodeChallenge,
		CodeChallengeMethod: input.CodeChallengeMethod,
		Nonce:               input.Nonce,
	}
	err := r.pool.QueryRow(ctx, q,
		ac.ID, ac.CodeHash, ac.ClientID, ac.UserID, ac.CitizenID, ac.Scopes,
		ac.RedirectURI, ac.CodeChallenge, ac.CodeChallengeMethod, ac.Nonce,
		time.Now().UTC().Add(input.TTL),
	).Scan(&ac.ExpiresAt, &ac.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ac, nil
}

func (r *codeRepo) GetByHash(ctx context.Context, codeHash, clientID string) (*repository.AuthorizationCode, error) {
	const q = `
		SELECT id, code_hash, client_id, user_id, citizen_id, scopes, redirect_uri,
		       code_challenge, code_challenge_method, nonce, expires_at, used_at, created_at
		FROM authorization_codes
		WHERE code_hash = $1 AND client_id = $2`

	var ac repository.AuthorizationCode
	err := r.pool.QueryRow(ctx, q, codeHash, clientID).Scan(
		&ac.ID, &ac.CodeHash, &ac.ClientID, &ac.UserID, &ac.CitizenID, &ac.Scopes,
		&ac.RedirectURI, &ac.CodeChallenge, &ac.CodeChallengeMethod, &ac.Nonce,
		&ac.ExpiresAt, &ac.UsedAt, &ac.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ac, nil
}

// MarkUsed is the replay boundary. The WHERE used_at IS NULL predicate makes
// the update a compare-and-set: concurrent exchanges race on it and the row
// lock guarantees exactly one sees RowsAffected == 1.
func (r *codeRepo) MarkUsed(ctx context.Context, id string) error {
	const q = `UPDATE authorization_codes SET used_at = NOW() WHERE id = $1 AND used_at IS NULL`

	ct, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	// Distinguish replay from a bogus id.
	const check = `SELECT 1 FROM authorization_codes WHERE id = $1`
	var one int
	if err := r.pool.QueryRow(ctx, check, id).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}
	return repository.ErrCodeUsed
}
