package repository

import (
	"context"
	"time"
)

// AuthorizationCode is a single-use credential binding a client, a user and
// a scope set to one future token exchange. The raw code never touches the
// database; only its SHA-256 hash is stored.
type AuthorizationCode struct {
	ID                  string
	CodeHash            string
	ClientID            string // public client_id
	UserID              string
	CitizenID           string
	Scopes              []string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string // "S256" or empty
	Nonce               string // carried into the ID token when present
	ExpiresAt           time.Time
	UsedAt              *time.Time
	CreatedAt           time.Time
}

// CreateCodeInput carries the fields for minting an authorization code.
type CreateCodeInput struct {
	CodeHash            string
	ClientID            string
	UserID              string
	CitizenID           string
	Scopes              []string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
	Nonce               string
	TTL                 time.Duration
}

// CodeRepository persists authorization codes.
//
// MarkUsed is the replay-prevention boundary: it must be an atomic
// compare-and-set on used_at so that of two concurrent exchanges for the
// same code exactly one succeeds.
type CodeRepository interface {
	// Create stores a new code with used_at = NULL.
	Create(ctx context.Context, input CreateCodeInput) (*AuthorizationCode, error)

	// GetByHash fetches a code by hash, scoped to the given client_id.
	// Returns ErrNotFound when absent or owned by another client.
	GetByHash(ctx context.Context, codeHash, clientID string) (*AuthorizationCode, error)

	// MarkUsed sets used_at = now iff it is still NULL. Returns ErrCodeUsed
	// when the code was already consumed, ErrNotFound when absent.
	MarkUsed(ctx context.Context, id string) error
}
