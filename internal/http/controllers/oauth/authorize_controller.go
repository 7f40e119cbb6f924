// Package oauth - AuthorizeController handles GET /oauth/authorize
package oauth

import (
	"net/http"
	"net/url"
	"strings"

	dto "github.com/govpass/govpass/internal/http/dto/oauth"
	httperrors "github.com/govpass/govpass/internal/http/errors"
	svc "github.com/govpass/govpass/internal/http/services/oauth"
	"github.com/govpass/govpass/internal/observability/logger"
)

// AuthorizeController handles the OAuth2 authorization endpoint.
type AuthorizeController struct {
	service svc.AuthorizeService
}

// NewAuthorizeController creates the controller.
func NewAuthorizeController(s svc.AuthorizeService) *AuthorizeController {
	return &AuthorizeController{service: s}
}

// Authorize handles GET /oauth/authorize.
// Implements: PKCE S256, session auth, consent auto-approval or prompt,
// auth code issuance.
func (c *AuthorizeController) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthorizeController.Authorize"))

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httperrors.WriteError(w, httperrors.New(http.StatusMethodNotAllowed, "invalid_request", "only GET is allowed"))
		return
	}

	// Responses vary with the session
	w.Header().Add("Vary", "Cookie")
	w.Header().Add("Vary", "Authorization")

	q := r.URL.Query()
	req := dto.AuthorizeRequest{
		ResponseType:        strings.TrimSpace(q.Get("response_type")),
		ClientID:            strings.TrimSpace(q.Get("client_id")),
		RedirectURI:         strings.TrimSpace(q.Get("redirect_uri")),
		Scope:               strings.TrimSpace(q.Get("scope")),
		State:               strings.TrimSpace(q.Get("state")),
		Nonce:               strings.TrimSpace(q.Get("nonce")),
		CodeChallenge:       strings.TrimSpace(q.Get("code_challenge")),
		CodeChallengeMethod: strings.TrimSpace(q.Get("code_challenge_method")),
		Prompt:              strings.TrimSpace(q.Get("prompt")),
	}

	result, err := c.service.Authorize(ctx, r, req)
	if err != nil {
		// Errors before redirect validation never redirect: answering
		// through an unvalidated redirect_uri would hand codes to anyone.
		switch err {
		case svc.ErrMissingParams:
			httperrors.WriteError(w, httperrors.ErrInvalidRequest.WithDescription("missing required parameters"))
		case svc.ErrInvalidClient:
			httperrors.WriteError(w, httperrors.New(http.StatusBadRequest, "invalid_client", "unknown or inactive client"))
		case svc.ErrInvalidRedirect:
			httperrors.WriteError(w, httperrors.ErrInvalidRequest.WithDescription("redirect_uri is not registered for this client"))
		default:
			log.Error("authorize failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrServerError)
		}
		return
	}

	switch result.Type {
	case dto.AuthResultSuccess:
		c.writeAutoApproved(w, result)

	case dto.AuthResultNeedLogin:
		http.Redirect(w, r, result.LoginURL, http.StatusFound)

	case dto.AuthResultConsentRequired:
		httperrors.WriteJSON(w, http.StatusOK, result.Prompt)

	case dto.AuthResultError:
		c.redirectError(w, r, result)
	}
}

// writeAutoApproved answers the prior-consent fast path: the caller gets the
// code-bearing redirect target in the body instead of a Location header.
func (c *AuthorizeController) writeAutoApproved(w http.ResponseWriter, result dto.AuthResult) {
	loc := addQueryParam(result.RedirectURI, "code", result.Code)
	if result.State != "" {
		loc = addQueryParam(loc, "state", result.State)
	}
	httperrors.WriteJSON(w, http.StatusOK, dto.AutoApproved{
		AutoApproved: true,
		RedirectURL:  loc,
	})
}

// redirectError redirects back to the client with error params.
func (c *AuthorizeController) redirectError(w http.ResponseWriter, r *http.Request, result dto.AuthResult) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	loc := addQueryParam(result.RedirectURI, "error", result.ErrorCode)
	if result.ErrorDescription != "" {
		loc = addQueryParam(loc, "error_description", result.ErrorDescription)
	}
	if result.State != "" {
		loc = addQueryParam(loc, "state", result.State)
	}
	http.Redirect(w, r, loc, http.StatusFound)
}

// addQueryParam appends one query param, preserving the existing query.
func addQueryParam(base, key, value string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
