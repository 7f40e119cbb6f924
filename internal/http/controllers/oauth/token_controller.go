// Package oauth - TokenController handles POST /oauth/token
package oauth

import (
	"context"
	"net/http"
	"strings"

	httperrors "github.com/govpass/govpass/internal/http/errors"
	svc "github.com/govpass/govpass/internal/http/services/oauth"
	"github.com/govpass/govpass/internal/observability/logger"
)

// TokenController handles the OAuth2 token endpoint.
type TokenController struct {
	service svc.TokenService
}

// NewTokenController creates the controller.
func NewTokenController(s svc.TokenService) *TokenController {
	return &TokenController{service: s}
}

// Token handles POST /oauth/token.
// Implements: Authorization Code (PKCE) and Refresh Token grants.
func (c *TokenController) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TokenController.Token"))

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httperrors.WriteError(w, httperrors.New(http.StatusMethodNotAllowed, "invalid_request", "only POST is allowed"))
		return
	}

	// 64KB is plenty for an OAuth form
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)

	if err := r.ParseForm(); err != nil {
		log.Warn("failed to parse form", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInvalidRequest.WithDescription("invalid form data"))
		return
	}

	grantType := strings.TrimSpace(r.PostForm.Get("grant_type"))
	log = log.With(logger.GrantType(grantType))

	clientID, clientSecret := clientCredentials(r)

	var resp *svc.TokenResponse
	var err error

	switch grantType {
	case "authorization_code":
		resp, err = c.service.ExchangeAuthorizationCode(ctx, svc.AuthCodeRequest{
			Code:         strings.TrimSpace(r.PostForm.Get("code")),
			RedirectURI:  strings.TrimSpace(r.PostForm.Get("redirect_uri")),
			ClientID:     clientID,
			ClientSecret: clientSecret,
			CodeVerifier: strings.TrimSpace(r.PostForm.Get("code_verifier")),
		})

	case "refresh_token":
		resp, err = c.service.ExchangeRefreshToken(ctx, svc.RefreshTokenRequest{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RefreshToken: strings.TrimSpace(r.PostForm.Get("refresh_token")),
		})

	default:
		httperrors.WriteError(w, httperrors.ErrUnsupportedGrantType)
		return
	}

	if err != nil {
		c.handleServiceError(ctx, w, err)
		return
	}

	httperrors.WriteJSON(w, http.StatusOK, resp)
}

func (c *TokenController) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch err {
	case svc.ErrTokenInvalidRequest:
		httperrors.WriteError(w, httperrors.ErrInvalidRequest.WithDescription("missing or invalid parameters"))
	case svc.ErrTokenInvalidClient:
		w.Header().Set("WWW-Authenticate", `Basic realm="oauth", error="invalid_client"`)
		httperrors.WriteError(w, httperrors.ErrInvalidClient)
	case svc.ErrTokenInvalidGrant:
		httperrors.WriteError(w, httperrors.ErrInvalidGrant)
	case svc.ErrTokenUnsupportedGrantType:
		httperrors.WriteError(w, httperrors.ErrUnsupportedGrantType)
	default:
		logger.From(ctx).Error("token endpoint error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrServerError)
	}
}

// clientCredentials reads client_id/client_secret from the Basic auth
// header or the form body. The header wins when both are present.
func clientCredentials(r *http.Request) (string, string) {
	if id, secret, ok := r.BasicAuth(); ok && id != "" {
		return id, secret
	}
	return strings.TrimSpace(r.PostForm.Get("client_id")),
		strings.TrimSpace(r.PostForm.Get("client_secret"))
}
