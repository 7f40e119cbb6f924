// Package oauth - IntrospectController handles POST /oauth/introspect
package oauth

import (
	"net/http"
	"strings"

	httperrors "github.com/govpass/govpass/internal/http/errors"
	svc "github.com/govpass/govpass/internal/http/services/oauth"
	"github.com/govpass/govpass/internal/observability/logger"
)

// IntrospectController handles RFC 7662 token introspection.
type IntrospectController struct {
	service svc.IntrospectService
}

// NewIntrospectController creates the controller.
func NewIntrospectController(s svc.IntrospectService) *IntrospectController {
	return &IntrospectController{service: s}
}

// Introspect handles POST /oauth/introspect.
func (c *IntrospectController) Introspect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("IntrospectController.Introspect"))

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

	token := strings.TrimSpace(r.PostForm.Get("token"))
	hint := strings.TrimSpace(r.PostForm.Get("token_type_hint"))

	res, err := c.service.Introspect(ctx, token, hint)
	if err != nil {
		if err == svc.ErrIntrospectTokenEmpty {
			httperrors.WriteError(w, httperrors.ErrInvalidRequest.WithDescription("token required"))
			return
		}
		log.Error("introspection failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrServerError)
		return
	}

	httperrors.WriteJSON(w, http.StatusOK, res)
}
