// Package oauth - ConsentController handles POST /oauth/consent
package oauth

import (
	"net/http"
	"strings"

	dto "github.com/govpass/govpass/internal/http/dto/oauth"
	httperrors "github.com/govpass/govpass/internal/http/errors"
	svc "github.com/govpass/govpass/internal/http/services/oauth"
	"github.com/govpass/govpass/internal/observability/logger"
)

// ConsentController handles the consent decision endpoint.
type ConsentController struct {
	service svc.ConsentService
}

// NewConsentController creates the controller.
func NewConsentController(s svc.ConsentService) *ConsentController {
	return &ConsentController{service: s}
}

// Decide handles POST /oauth/consent. The platform consent screen posts the
// request_id it received from the authorize step plus the user's decision.
func (c *ConsentController) Decide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ConsentController.Decide"))

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

	req := dto.ConsentDecisionRequest{
		RequestID: strings.TrimSpace(r.PostForm.Get("request_id")),
		Action:    strings.TrimSpace(r.PostForm.Get("action")),
		Scopes:    parseScopesField(r.PostForm["scopes"]),
	}

	res, err := c.service.Decide(ctx, r, req)
	if err != nil {
		switch err {
		case svc.ErrConsentMissingRequest:
			httperrors.WriteError(w, httperrors.ErrInvalidRequest.WithDescription("request_id required"))
		case svc.ErrConsentNotFound:
			httperrors.WriteError(w, httperrors.ErrInvalidRequest.WithDescription("invalid or expired request_id"))
		default:
			log.Error("consent decision failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrServerError)
		}
		return
	}

	// The consent screen is a fetch caller, not a browser navigation: it
	// receives the redirect target in the body and follows it itself.
	httperrors.WriteJSON(w, http.StatusOK, res)
}

// parseScopesField accepts both repeated scopes fields and a single
// space-separated value.
func parseScopesField(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Fields(v)...)
	}
	return out
}
