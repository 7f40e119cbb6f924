package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/govpass/govpass/internal/cache"
	"github.com/govpass/govpass/internal/claims"
	"github.com/govpass/govpass/internal/domain/repository"
	dto "github.com/govpass/govpass/internal/http/dto/oauth"
	jwtx "github.com/govpass/govpass/internal/jwt"
	"github.com/govpass/govpass/internal/observability/logger"
	"github.com/govpass/govpass/internal/store"
	"github.com/govpass/govpass/internal/util"
)

// Cache key prefix for pending authorization requests.
const cacheKeyPrefixAuthReq = "authreq:"

// pendingAuthTTL bounds how long a consent screen can sit open.
const pendingAuthTTL = 10 * time.Minute

// Errors for the authorize flow. These happen before the redirect_uri is
// trusted, so the controller answers with a direct JSON error instead of
// redirecting.
var (
	ErrMissingParams   = errors.New("missing required parameters")
	ErrInvalidClient   = errors.New("invalid client")
	ErrInvalidRedirect = errors.New("redirect_uri not allowed")
	ErrCodeGenFailed   = errors.New("failed to generate auth code")
)

// AuthorizeService handles the OAuth2 authorization flow.
type AuthorizeService interface {
	Authorize(ctx context.Context, r *http.Request, req dto.AuthorizeRequest) (dto.AuthResult, error)
}

// AuthorizeDeps contains dependencies for AuthorizeService.
type AuthorizeDeps struct {
	Store      store.Store
	Cache      cache.Client
	Issuer     *jwtx.Issuer
	CookieName string
	UIBaseURL  string // Default: "http://localhost:3000"
	CodeTTL    time.Duration
}

type authorizeService struct {
	store      store.Store
	cache      cache.Client
	issuer     *jwtx.Issuer
	cookieName string
	uiBaseURL  string
	codeTTL    time.Duration
}

// NewAuthorizeService creates a new AuthorizeService.
func NewAuthorizeService(d AuthorizeDeps) AuthorizeService {
	uiBase := d.UIBaseURL
	if uiBase == "" {
		uiBase = "http://localhost:3000"
	}
	ttl := d.CodeTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &authorizeService{
		store:      d.Store,
		cache:      d.Cache,
		issuer:     d.Issuer,
		cookieName: d.CookieName,
		uiBaseURL:  uiBase,
		codeTTL:    ttl,
	}
}

// Authorize handles the full authorization flow: client and redirect
// validation, PKCE check, session authentication, consent lookup and either
// direct code issuance or a consent prompt.
func (s *authorizeService) Authorize(ctx context.Context, r *http.Request, req dto.AuthorizeRequest) (dto.AuthResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("AuthorizeService.Authorize"))

	// 1. Resolve client. Unknown client_id can never be redirected to.
	if req.ClientID == "" {
		return dto.AuthResult{}, ErrMissingParams
	}
	client, err := s.store.Clients().GetByClientID(ctx, req.ClientID)
	if err != nil || !client.Active {
		log.Debug("client resolution failed", logger.ClientID(req.ClientID), logger.Err(err))
		return dto.AuthResult{}, ErrInvalidClient
	}

	// 2. Validate redirect_uri against the registration, exact match only.
	// An unregistered redirect_uri is a phishing vector, never a redirect
	// target.
	if req.RedirectURI == "" || !client.AllowsRedirectURI(req.RedirectURI) {
		log.Warn("redirect_uri not registered", logger.ClientID(req.ClientID))
		return dto.AuthResult{}, ErrInvalidRedirect
	}

	// From here on errors go back to the client via redirect.
	if req.ResponseType != "code" {
		return errResult(req, "unsupported_response_type", "only response_type=code is supported"), nil
	}

	// 3. PKCE is mandatory and only S256 is accepted. "plain" defeats the
	// interception protection PKCE exists for.
	if req.CodeChallenge == "" || !strings.EqualFold(req.CodeChallengeMethod, "S256") {
		return errResult(req, "invalid_request", "PKCE with code_challenge_method=S256 is required"), nil
	}

	// 4. Filter scopes: unknown ones are dropped, client allow-list applies.
	// "openid" is forced in regardless, so the set is never empty and every
	// issued token set carries it.
	scopes := s.filterScopes(client, req.Scope)

	// 5. Authenticate the citizen (session cookie or bearer).
	userID, citizenID, authenticated := resolveSession(r, s.issuer, s.cookieName)
	if !authenticated {
		if strings.Contains(req.Prompt, "none") {
			return errResult(req, "login_required", "login required"), nil
		}
		return dto.AuthResult{
			Type:     dto.AuthResultNeedLogin,
			LoginURL: s.buildLoginURL(r),
		}, nil
	}

	// 6. Prior consent covering the requested set auto-approves, unless the
	// client explicitly asked to re-prompt.
	if !strings.Contains(req.Prompt, "consent") {
		consent, err := s.store.Consents().Get(ctx, userID, client.ClientID)
		if err == nil && consent.Covers(scopes) {
			code, err := issueAuthorizationCode(ctx, s.store, issueParams{
				ClientID:            client.ClientID,
				UserID:              userID,
				CitizenID:           citizenID,
				Scopes:              scopes,
				RedirectURI:         req.RedirectURI,
				CodeChallenge:       req.CodeChallenge,
				CodeChallengeMethod: "S256",
				Nonce:               req.Nonce,
				TTL:                 s.codeTTL,
			})
			if err != nil {
				log.Error("code issuance failed", logger.Err(err))
				return dto.AuthResult{}, ErrCodeGenFailed
			}
			log.Info("auth code issued via prior consent",
				logger.UserID(userID), logger.ClientID(client.ClientID), logger.Scopes(scopes))
			return dto.AuthResult{
				Type:        dto.AuthResultSuccess,
				Code:        code,
				State:       req.State,
				RedirectURI: req.RedirectURI,
			}, nil
		}
	}

	if strings.Contains(req.Prompt, "none") {
		return errResult(req, "consent_required", "consent required"), nil
	}

	// 7. Park the validated request server-side and prompt for consent.
	// The consent endpoint trusts only this copy; the browser carries just
	// the request_id.
	prompt, err := s.parkPendingAuthorization(ctx, client, req, userID, citizenID, scopes)
	if err != nil {
		log.Error("failed to store pending authorization", logger.Err(err))
		return dto.AuthResult{}, ErrCodeGenFailed
	}

	return dto.AuthResult{
		Type:        dto.AuthResultConsentRequired,
		Prompt:      prompt,
		RedirectURI: req.RedirectURI,
	}, nil
}

// filterScopes drops scopes outside the catalog or the client allow-list and
// puts "openid" at the head of the set whether or not it was requested.
func (s *authorizeService) filterScopes(client *repository.Client, scope string) []string {
	out := []string{claims.ScopeOpenID}
	for _, name := range strings.Fields(scope) {
		if name == claims.ScopeOpenID {
			continue
		}
		if _, ok := claims.Lookup(name); !ok {
			continue
		}
		if !client.AllowsScope(name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// parkPendingAuthorization caches the validated request and builds the
// consent prompt payload.
func (s *authorizeService) parkPendingAuthorization(ctx context.Context, client *repository.Client, req dto.AuthorizeRequest, userID, citizenID string, scopes []string) (*dto.ConsentPrompt, error) {
	pending := dto.PendingAuthorization{
		RequestID:           uuid.NewString(),
		UserID:              userID,
		CitizenID:           citizenID,
		ClientID:            client.ClientID,
		RedirectURI:         req.RedirectURI,
		Scopes:              scopes,
		State:               req.State,
		Nonce:               req.Nonce,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: "S256",
		ExpiresAt:           time.Now().UTC().Add(pendingAuthTTL),
	}

	raw, err := json.Marshal(pending)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cacheKeyPrefixAuthReq+pending.RequestID, raw, pendingAuthTTL); err != nil {
		return nil, err
	}

	// Best effort: previews are cosmetic, a missing profile only blanks them.
	profile, _ := s.store.Citizens().GetByID(ctx, citizenID)

	details := make([]dto.ScopeDetail, 0, len(scopes))
	for _, name := range scopes {
		def, ok := claims.Lookup(name)
		if !ok {
			continue
		}
		details = append(details, dto.ScopeDetail{
			Name:      def.Name,
			Label:     def.Label,
			Category:  def.Category,
			Sensitive: def.Sensitive,
			Required:  def.Required,
			Preview:   scopePreview(name, profile),
		})
	}

	return &dto.ConsentPrompt{
		RequestID:  pending.RequestID,
		ClientID:   client.ClientID,
		ClientName: client.Name,
		Verified:   client.Verified,
		Scopes:     details,
		State:      req.State,
	}, nil
}

// buildLoginURL constructs the URL to redirect for login.
func (s *authorizeService) buildLoginURL(r *http.Request) string {
	returnTo := r.URL.String()
	if !r.URL.IsAbs() {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		host := r.Host
		if host == "" {
			host = "localhost:8080"
		}
		returnTo = fmt.Sprintf("%s://%s%s", scheme, host, r.URL.RequestURI())
	}
	return fmt.Sprintf("%s/login?return_to=%s", s.uiBaseURL, url.QueryEscape(returnTo))
}

// scopePreview shows the user a masked sample of what a scope shares.
func scopePreview(scope string, p *repository.CitizenProfile) string {
	if p == nil {
		return ""
	}
	switch scope {
	case claims.ScopeProfile:
		return util.MaskNIP(p.NIP)
	case claims.ScopeEmail:
		return util.MaskEmail(p.Email)
	case claims.ScopePhone:
		return util.MaskPhone(p.Phone)
	default:
		return ""
	}
}

// errResult builds a redirect error outcome for an already validated
// redirect_uri.
func errResult(req dto.AuthorizeRequest, code, description string) dto.AuthResult {
	return dto.AuthResult{
		Type:             dto.AuthResultError,
		RedirectURI:      req.RedirectURI,
		State:            req.State,
		ErrorCode:        code,
		ErrorDescription: description,
	}
}
