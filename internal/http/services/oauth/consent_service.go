package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/govpass/govpass/internal/audit"
	"github.com/govpass/govpass/internal/cache"
	"github.com/govpass/govpass/internal/claims"
	"github.com/govpass/govpass/internal/domain/repository"
	dto "github.com/govpass/govpass/internal/http/dto/oauth"
	jwtx "github.com/govpass/govpass/internal/jwt"
	"github.com/govpass/govpass/internal/metrics"
	"github.com/govpass/govpass/internal/observability/logger"
	"github.com/govpass/govpass/internal/store"
)

// Errors
var (
	ErrConsentMissingRequest = errors.New("request_id required")
	ErrConsentNotFound       = errors.New("invalid or expired request_id")
	ErrConsentStoreFailed    = errors.New("failed to store consent")
	ErrConsentCodeFailed     = errors.New("failed to generate auth code")
)

// ConsentService handles the user's decision on the consent screen.
type ConsentService interface {
	Decide(ctx context.Context, r *http.Request, req dto.ConsentDecisionRequest) (*dto.ConsentRedirect, error)
}

// ConsentDeps dependencies.
type ConsentDeps struct {
	Store      store.Store
	Cache      cache.Client
	Issuer     *jwtx.Issuer
	Audit      *audit.Logger
	CookieName string
	CodeTTL    time.Duration
}

type consentService struct {
	store      store.Store
	cache      cache.Client
	issuer     *jwtx.Issuer
	audit      *audit.Logger
	cookieName string
	codeTTL    time.Duration
}

func NewConsentService(d ConsentDeps) ConsentService {
	ttl := d.CodeTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &consentService{
		store:      d.Store,
		cache:      d.Cache,
		issuer:     d.Issuer,
		audit:      d.Audit,
		cookieName: d.CookieName,
		codeTTL:    ttl,
	}
}

// Decide consumes the pending authorization (one-shot) and either persists
// the grant and issues a code, or redirects back with access_denied.
func (s *consentService) Decide(ctx context.Context, r *http.Request, req dto.ConsentDecisionRequest) (*dto.ConsentRedirect, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("ConsentService.Decide"))

	// 1. Validate input
	requestID := strings.TrimSpace(req.RequestID)
	if requestID == "" {
		return nil, ErrConsentMissingRequest
	}

	// 2. Consume the pending authorization (one-shot)
	key := cacheKeyPrefixAuthReq + requestID
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, ErrConsentNotFound
	}
	_ = s.cache.Delete(ctx, key)

	var pending dto.PendingAuthorization
	if err := json.Unmarshal(raw, &pending); err != nil {
		log.Error("pending authorization corrupted", logger.Err(err))
		return nil, ErrConsentNotFound
	}
	if time.Now().After(pending.ExpiresAt) {
		return nil, ErrConsentNotFound
	}

	// 3. The deciding session must be the one that started the flow.
	userID, _, authenticated := resolveSession(r, s.issuer, s.cookieName)
	if !authenticated || userID != pending.UserID {
		log.Warn("consent session mismatch", logger.ClientID(pending.ClientID))
		return nil, ErrConsentNotFound
	}

	// 4. Denial: no grant, no code, the client learns access_denied.
	if !strings.EqualFold(req.Action, "approve") {
		metrics.ConsentDecision("deny")
		s.audit.Record(repository.AuditEvent{
			ClientID: pending.ClientID,
			UserID:   pending.UserID,
			Action:   repository.AuditConsentDenied,
			Scopes:   pending.Scopes,
			Success:  false,
		})
		loc := buildRedirect(pending.RedirectURI, map[string]string{
			"error": "access_denied",
			"state": pending.State,
		})
		return &dto.ConsentRedirect{URL: loc}, nil
	}

	// 5. The grant is the user's selection intersected with what was
	// requested; required scopes stay on no matter what the form said.
	granted := grantedScopes(pending.Scopes, req.Scopes)

	// 6. Persist the grant so repeat requests auto-approve.
	if _, err := s.store.Consents().Upsert(ctx, pending.UserID, pending.ClientID, granted); err != nil {
		log.Error("failed to upsert consent", logger.Err(err))
		return nil, ErrConsentStoreFailed
	}

	code, err := issueAuthorizationCode(ctx, s.store, issueParams{
		ClientID:            pending.ClientID,
		UserID:              pending.UserID,
		CitizenID:           pending.CitizenID,
		Scopes:              granted,
		RedirectURI:         pending.RedirectURI,
		CodeChallenge:       pending.CodeChallenge,
		CodeChallengeMethod: pending.CodeChallengeMethod,
		Nonce:               pending.Nonce,
		TTL:                 s.codeTTL,
	})
	if err != nil {
		log.Error("failed to generate code", logger.Err(err))
		return nil, ErrConsentCodeFailed
	}

	metrics.ConsentDecision("approve")
	log.Info("consent granted",
		logger.UserID(pending.UserID),
		logger.ClientID(pending.ClientID),
		logger.Scopes(granted))

	loc := buildRedirect(pending.RedirectURI, map[string]string{
		"code":  code,
		"state": pending.State,
	})
	return &dto.ConsentRedirect{URL: loc}, nil
}

// grantedScopes keeps the selection inside the requested set, preserving the
// requested order. Required scopes (openid) are granted even when deselected;
// an empty selection yields the minimum grant.
func grantedScopes(requested, selected []string) []string {
	picked := make(map[string]bool, len(selected))
	for _, name := range selected {
		picked[name] = true
	}

	out := make([]string, 0, len(requested))
	for _, name := range requested {
		def, ok := claims.Lookup(name)
		if ok && def.Required {
			out = append(out, name)
			continue
		}
		if picked[name] {
			out = append(out, name)
		}
	}
	return out
}
