package repository

import (
	"context"
	"time"
)

// Consent records the scope set a user granted to a client. Repeat
// authorization requests covered by an existing grant auto-approve without
// re-prompting.
type Consent struct {
	ID        string
	UserID    string
	ClientID  string
	Scopes    []string
	GrantedAt time.Time
	UpdatedAt time.Time
}

// Covers reports whether the granted set contains every requested scope.
func (c *Consent) Covers(requested []string) bool {
	granted := make(map[string]struct{}, len(c.Scopes))
	for _, s := range c.Scopes {
		granted[s] = struct{}{}
	}
	for _, s := range requested {
		if _, ok := granted[s]; !ok {
			return false
		}
	}
	return true
}

// ConsentRepository persists user consent grants.
type ConsentRepository interface {
	// Upsert replaces the granted scopes for (user, client).
	Upsert(ctx context.Context, userID, clientID string, scopes []string) (*Consent, error)

	// Get returns the grant for (user, client), ErrNotFound if none.
	Get(ctx context.Context, userID, clientID string) (*Consent, error)
}
