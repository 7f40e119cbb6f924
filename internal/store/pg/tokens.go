package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/govpass/govpass/internal/domain/repository"
)

type tokenRepo struct {
	pool *pgxpool.Pool
}

func (r *tokenRepo) CreatePair(ctx context.Context, input repository.CreatePairInput) (*repository.AccessToken, *repository.RefreshToken, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	at, rt, err := createPairTx(ctx, tx, input)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return at, rt, nil
}

func (r *tokenRepo) GetRefreshByHash(ctx context.Context, tokenHash, clientID string) (*repository.RefreshToken, error) {
	const q = `
		SELECT id, token_hash, access_token_id, client_id, user_id, issued_at, expires_at, revoked_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND client_id = $2`

	var rt repository.RefreshToken
	err := r.pool.QueryRow(ctx, q, tokenHash, clientID).Scan(
		&rt.ID, &rt.TokenHash, &rt.AccessTokenID, &rt.ClientID, &rt.UserID,
		&rt.IssuedAt, &rt.ExpiresAt, &rt.RevokedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *tokenRepo) GetRefreshByHashAnyClient(ctx context.Context, tokenHash string) (*repository.RefreshToken, error) {
	const q = `
		SELECT id, token_hash, access_token_id, client_id, user_id, issued_at, expires_at, revoked_at
		FROM refresh_tokens
		WHERE token_hash = $1`

	var rt repository.RefreshToken
	err := r.pool.QueryRow(ctx, q, tokenHash).Scan(
		&rt.ID, &rt.TokenHash, &rt.AccessTokenID, &rt.ClientID, &rt.UserID,
		&rt.IssuedAt, &rt.ExpiresAt, &rt.RevokedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *tokenRepo) GetAccessByHash(ctx context.Context, tokenHash string) (*repository.AccessToken, error) {
	const q = `
		SELECT id, token_hash, client_id, user_id, citizen_id, scopes, issued_at, expires_at, revoked_at
		FROM access_tokens
		WHERE token_hash = $1`
	return r.scanAccess(ctx, q, tokenHash)
}

func (r *tokenRepo) GetAccessByID(ctx context.Context, id string) (*repository.AccessToken, error) {
	const q = `
		SELECT id, token_hash, client_id, user_id, citizen_id, scopes, issued_at, expires_at, revoked_at
		FROM access_tokens
		WHERE id = $1`
	return r.scanAccess(ctx, q, id)
}

func (r *tokenRepo) scanAccess(ctx context.Context, q, arg string) (*repository.AccessToken, error) {
	var at repository.AccessToken
	err := r.pool.QueryRow(ctx, q, arg).Scan(
		&at.ID, &at.TokenHash, &at.ClientID, &at.UserID, &at.CitizenID, &at.Scopes,
		&at.IssuedAt, &at.ExpiresAt, &at.RevokedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &at, nil
}

func (r *tokenRepo) GetRefreshByAccessID(ctx context.Context, accessID string) (*repository.RefreshToken, error) {
	const q = `
		SELECT id, token_hash, access_token_id, client_id, user_id, issued_at, expires_at, revoked_at
		FROM refresh_tokens
		WHERE access_token_id = $1`

	var rt repository.RefreshToken
	err := r.pool.QueryRow(ctx, q, accessID).Scan(
		&rt.ID, &rt.TokenHash, &rt.AccessTokenID, &rt.ClientID, &rt.UserID,
		&rt.IssuedAt, &rt.ExpiresAt, &rt.RevokedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// Rotate revokes the old pair and creates the new one inside a single
// transaction. A failure at any point rolls back and leaves the old pair
// valid, so the client is never stranded with neither pair usable.
//
// The refresh revoke is a compare-and-set on revoked_at: two rotations racing
// on the same refresh token commit exactly one replacement pair, the loser
// gets ErrTokenRevoked.
func (r *tokenRepo) Rotate(ctx context.Context, oldRefreshID, oldAccessID string, input repository.CreatePairInput) (*repository.AccessToken, *repository.RefreshToken, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	const qr = `UPDATE refresh_tokens SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`
	tag, err := tx.Exec(ctx, qr, oldRefreshID)
	if err != nil {
		return nil, nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil, repository.ErrTokenRevoked
	}

	const qa = `UPDATE access_tokens SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`
	if _, err := tx.Exec(ctx, qa, oldAccessID); err != nil {
		return nil, nil, fmt.Errorf("revoke access token: %w", err)
	}
	at, rt, err := createPairTx(ctx, tx, input)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return at, rt, nil
}

func (r *tokenRepo) RevokePair(ctx context.Context, refreshID, accessID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := revokePairTx(ctx, tx, refreshID, accessID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func createPairTx(ctx context.Context, tx pgx.Tx, input repository.CreatePairInput) (*repository.AccessToken, *repository.RefreshToken, error) {
	now := time.Now().UTC()

	at := repository.AccessToken{
		ID:        uuid.NewString(),
		TokenHash: input.AccessTokenHash,
		ClientID:  input.ClientID,
		UserID:    input.UserID,
		CitizenID: input.CitizenID,
		Scopes:    input.Scopes,
		IssuedAt:  now,
		ExpiresAt: now.Add(input.AccessTTL),
	}
	rt := repository.RefreshToken{
		ID:            uuid.NewString(),
		TokenHash:     input.RefreshTokenHash,
		AccessTokenID: at.ID,
		ClientID:      input.ClientID,
		UserID:        input.UserID,
		IssuedAt:      now,
		ExpiresAt:     now.Add(input.RefreshTTL),
	}

	const qa = `
		INSERT INTO access_tokens (id, token_hash, client_id, user_id, citizen_id, scopes, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.Exec(ctx, qa, at.ID, at.TokenHash, at.ClientID, at.UserID, at.CitizenID, at.Scopes, at.IssuedAt, at.ExpiresAt); err != nil {
		return nil, nil, fmt.Errorf("insert access token: %w", err)
	}

	const qr = `
		INSERT INTO refresh_tokens (id, token_hash, access_token_id, client_id, user_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.Exec(ctx, qr, rt.ID, rt.TokenHash, rt.AccessTokenID, rt.ClientID, rt.UserID, rt.IssuedAt, rt.ExpiresAt); err != nil {
		return nil, nil, fmt.Errorf("insert refresh token: %w", err)
	}
	return &at, &rt, nil
}

func revokePairTx(ctx context.Context, tx pgx.Tx, refreshID, accessID string) error {
	const qr = `UPDATE refresh_tokens SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`
	if _, err := tx.Exec(ctx, qr, refreshID); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	const qa = `UPDATE access_tokens SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`
	if _, err := tx.Exec(ctx, qa, accessID); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}
