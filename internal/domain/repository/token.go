package repository

import (
	"context"
	"time"
)

// AccessToken is an opaque bearer credential. Revoked on rotation, never
// deleted, so introspection can report active:false for the old token.
type AccessToken struct {
	ID        string
	TokenHash string
	ClientID  string
	UserID    string
	CitizenID string
	Scopes    []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// RefreshToken owns exactly one AccessToken. Rotation revokes the pair and
// creates a fresh pair referencing a new access token.
type RefreshToken struct {
	ID            string
	TokenHash     string
	AccessTokenID string
	ClientID      string
	UserID        string
	IssuedAt      time.Time
	ExpiresAt     time.Time
	RevokedAt     *time.Time
}

// CreatePairInput carries the fields for issuing an access/refresh pair.
type CreatePairInput struct {
	AccessTokenHash  string
	RefreshTokenHash string
	ClientID         string
	UserID           string
	CitizenID        string
	Scopes           []string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
}

// TokenRepository persists access/refresh token pairs.
//
// Rotate must be transactional: revoking the old pair and creating the new
// one commit as a single unit, and any failure leaves the old pair valid.
type TokenRepository interface {
	// CreatePair stores a new access token and its companion refresh token.
	CreatePair(ctx context.Context, input CreatePairInput) (*AccessToken, *RefreshToken, error)

	// GetRefreshByHash fetches a refresh token by hash, scoped to the given
	// client_id. Returns ErrNotFound when absent.
	GetRefreshByHash(ctx context.Context, tokenHash, clientID string) (*RefreshToken, error)

	// GetRefreshByHashAnyClient fetches a refresh token by hash without
	// client scoping, for introspection.
	GetRefreshByHashAnyClient(ctx context.Context, tokenHash string) (*RefreshToken, error)

	// GetAccessByHash fetches an access token by hash, for introspection.
	GetAccessByHash(ctx context.Context, tokenHash string) (*AccessToken, error)

	// GetAccessByID fetches an access token by primary key.
	GetAccessByID(ctx context.Context, id string) (*AccessToken, error)

	// GetRefreshByAccessID fetches the refresh token paired with the given
	// access token, for pair-wide revocation.
	GetRefreshByAccessID(ctx context.Context, accessID string) (*RefreshToken, error)

	// Rotate revokes the old pair and creates a new one in one transaction.
	Rotate(ctx context.Context, oldRefreshID, oldAccessID string, input CreatePairInput) (*AccessToken, *RefreshToken, error)

	// RevokePair sets revoked_at on a refresh token and its access token.
	RevokePair(ctx context.Context, refreshID, accessID string) error
}
