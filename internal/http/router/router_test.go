package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/govpass/govpass/internal/audit"
	"github.com/govpass/govpass/internal/cache"
	"github.com/govpass/govpass/internal/domain/repository"
	healthctrl "github.com/govpass/govpass/internal/http/controllers/health"
	oauthctrl "github.com/govpass/govpass/internal/http/controllers/oauth"
	oidcctrl "github.com/govpass/govpass/internal/http/controllers/oidc"
	"github.com/govpass/govpass/internal/http/router"
	oauthsvc "github.com/govpass/govpass/internal/http/services/oauth"
	jwtx "github.com/govpass/govpass/internal/jwt"
	"github.com/govpass/govpass/internal/rate"
	tokens "github.com/govpass/govpass/internal/security/token"
	"github.com/govpass/govpass/internal/store/memory"
)

const (
	cookieName = "govpass_session"
	verifier   = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
)

type stack struct {
	handler http.Handler
	store   *memory.Store
	issuer  *jwtx.Issuer
}

func newStack(t *testing.T, limiter rate.Limiter) *stack {
	t.Helper()
	ctx := context.Background()

	st := memory.New()
	ca := cache.NewMemory("")

	key, err := jwtx.GenerateKey()
	require.NoError(t, err)
	issuer := jwtx.NewIssuer("https://auth.example", key)

	_, err = st.Clients().Create(ctx, repository.ClientInput{
		ClientID:     "spa",
		Name:         "Citizen Portal",
		Type:         repository.ClientTypePublic,
		RedirectURIs: []string{"https://rp.example/cb"},
		Scopes:       []string{"openid", "profile", "email"},
		Active:       true,
	})
	require.NoError(t, err)

	require.NoError(t, st.Citizens().Upsert(ctx, repository.CitizenProfile{
		CitizenID:     "ctz-1",
		NIP:           "19900101000042",
		GivenName:     "Ana",
		Email:         "ana@example.org",
		EmailVerified: true,
	}))

	services := oauthsvc.NewServices(oauthsvc.Deps{
		Store:      st,
		Cache:      ca,
		Issuer:     issuer,
		Audit:      audit.New(nil),
		CookieName: cookieName,
		CodeTTL:    5 * time.Minute,
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	})

	handler := router.New(router.Deps{
		OAuth:       oauthctrl.NewControllers(services),
		OIDC:        oidcctrl.NewControllers(issuer),
		Health:      healthctrl.NewController(st, ca),
		RateLimiter: limiter,
		CORSOrigins: []string{"https://rp.example"},
	})

	return &stack{handler: handler, store: st, issuer: issuer}
}

func (s *stack) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *stack) sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	raw, err := s.issuer.SignSession("u1", "ctz-1", time.Hour)
	require.NoError(t, err)
	return &http.Cookie{Name: cookieName, Value: raw}
}

// authorizeURL builds a valid authorize query for the test SPA client.
func authorizeURL(extra map[string]string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", "spa")
	q.Set("redirect_uri", "https://rp.example/cb")
	q.Set("scope", "openid email")
	q.Set("state", "st-1")
	q.Set("code_challenge", tokens.SHA256Base64URL(verifier))
	q.Set("code_challenge_method", "S256")
	for k, v := range extra {
		q.Set(k, v)
	}
	return "/oauth/authorize?" + q.Encode()
}

func TestAuthorize_UnknownClientAnswersDirectJSON(t *testing.T) {
	s := newStack(t, nil)

	req := httptest.NewRequest(http.MethodGet, authorizeURL(map[string]string{"client_id": "ghost"}), nil)
	rec := s.do(req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, rec.Header().Get("Location"), "unknown client must never be redirected")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "invalid_client", body["error"])
}

func TestAuthorize_NoSessionRedirectsToLogin(t *testing.T) {
	s := newStack(t, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, authorizeURL(nil), nil))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "/login?return_to=")
}

func TestFullCodeFlowOverHTTP(t *testing.T) {
	s := newStack(t, nil)
	ctx := context.Background()

	// Prior consent lets authorize answer with a code directly.
	_, err := s.store.Consents().Upsert(ctx, "u1", "spa", []string{"openid", "email"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, authorizeURL(nil), nil)
	req.AddCookie(s.sessionCookie(t))
	rec := s.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var approved struct {
		AutoApproved bool   `json:"auto_approved"`
		RedirectURL  string `json:"redirect_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approved))
	require.True(t, approved.AutoApproved)

	loc, err := url.Parse(approved.RedirectURL)
	require.NoError(t, err)
	require.Equal(t, "rp.example", loc.Host)
	code := loc.Query().Get("code")
	require.NotEmpty(t, code)
	require.Equal(t, "st-1", loc.Query().Get("state"))

	// Exchange over the wire.
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", "https://rp.example/cb")
	form.Set("client_id", "spa")
	form.Set("code_verifier", verifier)

	treq := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	treq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	trec := s.do(treq)

	require.Equal(t, http.StatusOK, trec.Code)
	require.Equal(t, "no-store", trec.Header().Get("Cache-Control"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(trec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access_token"])
	require.NotEmpty(t, resp["refresh_token"])
	require.NotEmpty(t, resp["id_token"])
	require.Equal(t, "Bearer", resp["token_type"])
}

func TestConsentFlowOverHTTP(t *testing.T) {
	s := newStack(t, nil)
	cookie := s.sessionCookie(t)

	req := httptest.NewRequest(http.MethodGet, authorizeURL(nil), nil)
	req.AddCookie(cookie)
	rec := s.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var prompt struct {
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prompt))
	require.NotEmpty(t, prompt.RequestID)

	// The screen posts the user's selection; email stays unchecked.
	form := url.Values{}
	form.Set("request_id", prompt.RequestID)
	form.Set("action", "approve")
	form.Add("scopes", "openid")

	creq := httptest.NewRequest(http.MethodPost, "/oauth/consent", strings.NewReader(form.Encode()))
	creq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	creq.AddCookie(cookie)
	crec := s.do(creq)

	require.Equal(t, http.StatusOK, crec.Code)
	require.Equal(t, "no-store", crec.Header().Get("Cache-Control"))

	var dec struct {
		RedirectURL string `json:"redirect_url"`
	}
	require.NoError(t, json.Unmarshal(crec.Body.Bytes(), &dec))
	loc, err := url.Parse(dec.RedirectURL)
	require.NoError(t, err)
	require.NotEmpty(t, loc.Query().Get("code"))

	consent, err := s.store.Consents().Get(context.Background(), "u1", "spa")
	require.NoError(t, err)
	require.Equal(t, []string{"openid"}, consent.Scopes)
}

func TestTokenEndpoint_UnsupportedGrantType(t *testing.T) {
	s := newStack(t, nil)

	form := url.Values{}
	form.Set("grant_type", "password")
	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := s.do(req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "unsupported_grant_type", body["error"])
}

func TestTokenEndpoint_InvalidClientGets401(t *testing.T) {
	s := newStack(t, nil)

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", "ghost")
	form.Set("refresh_token", "whatever")
	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := s.do(req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_client")
}

func TestTokenEndpoint_CORSPreflight(t *testing.T) {
	s := newStack(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/oauth/token", nil)
	req.Header.Set("Origin", "https://rp.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := s.do(req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://rp.example", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestTokenEndpoint_CORSUnknownOrigin(t *testing.T) {
	s := newStack(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/oauth/token", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := s.do(req)

	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestDiscoveryDocument(t *testing.T) {
	s := newStack(t, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/.well-known/openid-configuration", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var doc struct {
		Issuer                string   `json:"issuer"`
		AuthorizationEndpoint string   `json:"authorization_endpoint"`
		TokenEndpoint         string   `json:"token_endpoint"`
		JWKSURI               string   `json:"jwks_uri"`
		ResponseTypes         []string `json:"response_types_supported"`
		GrantTypes            []string `json:"grant_types_supported"`
		CodeChallengeMethods  []string `json:"code_challenge_methods_supported"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Equal(t, "https://auth.example", doc.Issuer)
	require.Equal(t, "https://auth.example/oauth/authorize", doc.AuthorizationEndpoint)
	require.Equal(t, "https://auth.example/oauth/token", doc.TokenEndpoint)
	require.Equal(t, "https://auth.example/oauth/jwks", doc.JWKSURI)
	require.Equal(t, []string{"code"}, doc.ResponseTypes)
	require.Contains(t, doc.GrantTypes, "refresh_token")
	require.Equal(t, []string{"S256"}, doc.CodeChallengeMethods)
}

func TestJWKSEndpoint(t *testing.T) {
	s := newStack(t, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/oauth/jwks", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var doc struct {
		Keys []map[string]string `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Len(t, doc.Keys, 1)
	require.Equal(t, s.issuer.KID, doc.Keys[0]["kid"])
}

func TestHealthz(t *testing.T) {
	s := newStack(t, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := newStack(t, rate.NewMemoryLimiter(2, time.Minute))

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, authorizeURL(nil), nil)
		r.RemoteAddr = "203.0.113.9:4321"
		return r
	}

	require.Equal(t, http.StatusFound, s.do(req()).Code)
	require.Equal(t, http.StatusFound, s.do(req()).Code)

	rec := s.do(req())
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "slow_down", body["error"])
}

func TestRequestIDPropagation(t *testing.T) {
	s := newStack(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-abc-123")
	rec := s.do(req)
	require.Equal(t, "req-abc-123", rec.Header().Get("X-Request-ID"))

	rec = s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"), "a missing request id must be generated")
}
