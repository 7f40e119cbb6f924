package oauth

// ConsentDecisionRequest is the parsed form for POST /oauth/consent.
// Scopes is the user's selection; anything outside the pending request is
// ignored and required scopes are granted whether listed or not.
type ConsentDecisionRequest struct {
	RequestID string   `json:"request_id"`
	Action    string   `json:"action"` // "approve" | "deny"
	Scopes    []string `json:"scopes"`
}

// ConsentRedirect is the response body: the client redirect carrying either
// code+state or error=access_denied.
type ConsentRedirect struct {
	URL string `json:"redirect_url"`
}
