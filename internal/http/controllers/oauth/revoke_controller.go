// Package oauth - RevokeController handles POST /oauth/revoke
package oauth

import (
	"net/http"
	"strings"

	httperrors "github.com/govpass/govpass/internal/http/errors"
	svc "github.com/govpass/govpass/internal/http/services/oauth"
	"github.com/govpass/govpass/internal/observability/logger"
)

// RevokeController handles RFC 7009 token revocation.
type RevokeController struct {
	service svc.RevokeService
}

// NewRevokeController creates the controller.
func NewRevokeController(s svc.RevokeService) *RevokeController {
	return &RevokeController{service: s}
}

// Revoke handles POST /oauth/revoke. Per RFC 7009 the response is 200 even
// when the token was unknown.
func (c *RevokeController) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("RevokeController.Revoke"))

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httperrors.WriteError(w, httperrors.New(http.StatusMethodNotAllowed, "invalid_request", "only POST is allowed"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidRequest.WithDescription("invalid form data"))
		return
	}

	clientID, clientSecret := clientCredentials(r)
	err := c.service.Revoke(ctx, svc.RevokeRequest{
		Token:         strings.TrimSpace(r.PostForm.Get("token")),
		TokenTypeHint: strings.TrimSpace(r.PostForm.Get("token_type_hint")),
		ClientID:      clientID,
		ClientSecret:  clientSecret,
	})
	if err != nil {
		switch err {
		case svc.ErrRevokeInvalidRequest:
			httperrors.WriteError(w, httperrors.ErrInvalidRequest.WithDescription("token required"))
		case svc.ErrRevokeInvalidClient:
			w.Header().Set("WWW-Authenticate", `Basic realm="oauth", error="invalid_client"`)
			httperrors.WriteError(w, httperrors.ErrInvalidClient)
		default:
			log.Error("revocation failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrServerError)
		}
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
}
