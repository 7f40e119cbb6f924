// Package oauth contains DTOs for the OAuth2/OIDC endpoints.
package oauth

import "time"

// AuthorizeRequest contains the parsed query params for GET /oauth/authorize.
type AuthorizeRequest struct {
	ResponseType        string `json:"response_type"`
	ClientID            string `json:"client_id"`
	RedirectURI         string `json:"redirect_uri"`
	Scope               string `json:"scope"`
	State               string `json:"state"`
	Nonce               string `json:"nonce"`
	CodeChallenge       string `json:"code_challenge"`
	CodeChallengeMethod string `json:"code_challenge_method"`
	Prompt              string `json:"prompt"` // e.g. "none", "consent"
}

// PendingAuthorization is the validated authorize request parked in cache
// while the user decides on the consent screen. The consent endpoint trusts
// only this server-side copy; nothing security-relevant comes back from the
// browser except the request_id and the decision.
type PendingAuthorization struct {
	RequestID           string    `json:"request_id"`
	UserID              string    `json:"user_id"`
	CitizenID           string    `json:"citizen_id"`
	ClientID            string    `json:"client_id"`
	RedirectURI         string    `json:"redirect_uri"`
	Scopes              []string  `json:"scopes"`
	State               string    `json:"state"`
	Nonce               string    `json:"nonce"`
	CodeChallenge       string    `json:"code_challenge"`
	CodeChallengeMethod string    `json:"code_challenge_method"`
	ExpiresAt           time.Time `json:"expires_at"`
}

// ScopeDetail renders one requested scope on the consent screen.
type ScopeDetail struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Category  string `json:"category"`
	Sensitive bool   `json:"sensitive,omitempty"`
	Required  bool   `json:"required,omitempty"`

	// Preview is a masked sample of the data the scope shares, e.g.
	// "m…@e….org" for email. Empty when the profile holds no value.
	Preview string `json:"preview,omitempty"`
}

// ConsentPrompt is the JSON payload the consent screen renders.
type ConsentPrompt struct {
	RequestID  string        `json:"request_id"`
	ClientID   string        `json:"client_id"`
	ClientName string        `json:"client_name"`
	Verified   bool          `json:"client_verified"`
	Scopes     []ScopeDetail `json:"scopes"`
	State      string        `json:"state,omitempty"`
}

// AutoApproved is the fast-path response when prior consent already covers
// the requested scopes: the caller follows redirect_url itself.
type AutoApproved struct {
	AutoApproved bool   `json:"auto_approved"`
	RedirectURL  string `json:"redirect_url"`
}

// AuthResultType indicates the outcome of the authorization request.
type AuthResultType int

const (
	// AuthResultSuccess - prior consent covered the request, code issued
	AuthResultSuccess AuthResultType = iota
	// AuthResultNeedLogin - redirect to login UI
	AuthResultNeedLogin
	// AuthResultConsentRequired - render the consent prompt
	AuthResultConsentRequired
	// AuthResultError - redirect back to the client with error params
	AuthResultError
)

// AuthResult is the outcome from AuthorizeService.Authorize.
type AuthResult struct {
	Type AuthResultType

	// For Success
	Code  string
	State string

	// For NeedLogin
	LoginURL string

	// For ConsentRequired
	Prompt *ConsentPrompt

	// For Error
	ErrorCode        string
	ErrorDescription string

	// Common
	RedirectURI string
}
