package repository

import "context"

const (
	ClientTypePublic       = "public"
	ClientTypeConfidential = "confidential"
)

// Client is a registered OAuth2/OIDC relying party. Immutable during a flow;
// mutated only by client-management tooling outside this core.
type Client struct {
	ID           string
	ClientID     string // public identifier
	Name         string
	Type         string // "public" | "confidential"
	SecretHash   string // bcrypt hash, confidential clients only
	RedirectURIs []string
	Scopes       []string // allowed scopes
	Active       bool
	Verified     bool
}

// IsConfidential reports whether the client authenticates with a secret.
func (c *Client) IsConfidential() bool {
	return c.Type == ClientTypeConfidential
}

// AllowsRedirectURI checks uri against the registered set. Exact string
// match only, no prefix or wildcard matching.
func (c *Client) AllowsRedirectURI(uri string) bool {
	for _, allowed := range c.RedirectURIs {
		if allowed == uri {
			return true
		}
	}
	return false
}

// AllowsScope checks a single scope against the allowed set.
func (c *Client) AllowsScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ClientInput carries the fields for registering a client.
type ClientInput struct {
	ClientID     string
	Name         string
	Type         string
	SecretHash   string
	RedirectURIs []string
	Scopes       []string
	Active       bool
	Verified     bool
}

// ClientRepository resolves and manages registered clients.
type ClientRepository interface {
	// GetByClientID resolves a client by its public client_id.
	// Returns ErrNotFound if unknown.
	GetByClientID(ctx context.Context, clientID string) (*Client, error)

	// Create registers a new client. Returns ErrConflict if the client_id
	// is taken.
	Create(ctx context.Context, input ClientInput) (*Client, error)
}
