package oauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/govpass/govpass/internal/audit"
	"github.com/govpass/govpass/internal/claims"
	"github.com/govpass/govpass/internal/domain/repository"
	jwtx "github.com/govpass/govpass/internal/jwt"
	"github.com/govpass/govpass/internal/metrics"
	"github.com/govpass/govpass/internal/observability/logger"
	tokens "github.com/govpass/govpass/internal/security/token"
	"github.com/govpass/govpass/internal/store"
)

// TokenDeps contains dependencies for the token service.
type TokenDeps struct {
	Store      store.Store
	Issuer     *jwtx.Issuer
	Audit      *audit.Logger
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// tokenService implements TokenService.
type tokenService struct {
	store      store.Store
	issuer     *jwtx.Issuer
	audit      *audit.Logger
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService creates a new TokenService.
func NewTokenService(d TokenDeps) TokenService {
	accessTTL := d.AccessTTL
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	refreshTTL := d.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &tokenService{
		store:      d.Store,
		issuer:     d.Issuer,
		audit:      d.Audit,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// ExchangeAuthorizationCode handles grant_type=authorization_code (PKCE).
//
// Validation runs strictly before the code is consumed, so a request that
// fails on redirect_uri or the verifier leaves the code usable for a
// correct retry. The used_at compare-and-set sits between validation and
// token creation: of two concurrent exchanges exactly one proceeds.
func (s *tokenService) ExchangeAuthorizationCode(ctx context.Context, req AuthCodeRequest) (*TokenResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("TokenService.ExchangeAuthorizationCode"))

	if req.Code == "" || req.RedirectURI == "" || req.ClientID == "" || req.CodeVerifier == "" {
		return nil, ErrTokenInvalidRequest
	}

	// 1. Client resolution and authentication
	client, err := s.resolveClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		log.Warn("client authentication failed", logger.ClientID(req.ClientID))
		return nil, err
	}

	// 2. Fetch the code by hash, scoped to this client. A code issued to
	// another client is indistinguishable from a nonexistent one.
	codeHash := tokens.SHA256Base64URL(req.Code)
	ac, err := s.store.Codes().GetByHash(ctx, codeHash, client.ClientID)
	if err != nil {
		log.Warn("authorization code not found", logger.ClientID(client.ClientID))
		s.denied(client.ClientID, "", nil, "code not found")
		metrics.Exchange("authorization_code", "denied")
		return nil, ErrTokenInvalidGrant
	}

	// 3. Expiry
	if time.Now().After(ac.ExpiresAt) {
		s.denied(client.ClientID, ac.UserID, ac.Scopes, "code expired")
		metrics.Exchange("authorization_code", "denied")
		return nil, ErrTokenInvalidGrant
	}

	// 4. redirect_uri must equal the one the code was issued for.
	if ac.RedirectURI != req.RedirectURI {
		log.Warn("redirect_uri mismatch", logger.ClientID(client.ClientID))
		s.denied(client.ClientID, ac.UserID, ac.Scopes, "redirect_uri mismatch")
		metrics.Exchange("authorization_code", "denied")
		return nil, ErrTokenInvalidGrant
	}

	// 5. PKCE S256
	verifierHash := tokens.SHA256Base64URL(req.CodeVerifier)
	if !strings.EqualFold(ac.CodeChallengeMethod, "S256") ||
		subtle.ConstantTimeCompare([]byte(ac.CodeChallenge), []byte(verifierHash)) != 1 {
		log.Warn("PKCE verification failed", logger.ClientID(client.ClientID))
		s.denied(client.ClientID, ac.UserID, ac.Scopes, "pkce verification failed")
		metrics.Exchange("authorization_code", "denied")
		return nil, ErrTokenInvalidGrant
	}

	// 6. Consume the code. ErrCodeUsed here is a replay.
	if err := s.store.Codes().MarkUsed(ctx, ac.ID); err != nil {
		if errors.Is(err, repository.ErrCodeUsed) {
			log.Warn("authorization code replayed", logger.ClientID(client.ClientID), logger.UserID(ac.UserID))
			s.denied(client.ClientID, ac.UserID, ac.Scopes, "code replay")
			metrics.Exchange("authorization_code", "denied")
			return nil, ErrTokenInvalidGrant
		}
		log.Error("failed to consume code", logger.Err(err))
		return nil, ErrTokenServerError
	}

	// 7. Mint the token pair.
	resp, err := s.createPair(ctx, log, client.ClientID, ac.UserID, ac.CitizenID, ac.Scopes, ac.Nonce, false)
	if err != nil {
		return nil, err
	}

	s.audit.Record(repository.AuditEvent{
		ClientID: client.ClientID,
		UserID:   ac.UserID,
		Action:   repository.AuditTokenIssued,
		Scopes:   ac.Scopes,
		Success:  true,
		Detail:   "authorization_code",
	})
	metrics.Exchange("authorization_code", "ok")
	log.Info("tokens issued",
		logger.ClientID(client.ClientID),
		logger.UserID(ac.UserID),
		logger.Scopes(ac.Scopes),
		logger.GrantType("authorization_code"))

	return resp, nil
}

// ExchangeRefreshToken handles grant_type=refresh_token with rotation.
func (s *tokenService) ExchangeRefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("TokenService.ExchangeRefreshToken"))

	if req.RefreshToken == "" || req.ClientID == "" {
		return nil, ErrTokenInvalidRequest
	}

	client, err := s.resolveClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		log.Warn("client authentication failed", logger.ClientID(req.ClientID))
		return nil, err
	}

	hash := tokens.SHA256Base64URL(req.RefreshToken)
	rt, err := s.store.Tokens().GetRefreshByHash(ctx, hash, client.ClientID)
	if err != nil {
		log.Warn("refresh token not found", logger.ClientID(client.ClientID))
		s.denied(client.ClientID, "", nil, "refresh token not found")
		metrics.Exchange("refresh_token", "denied")
		return nil, ErrTokenInvalidGrant
	}

	if rt.RevokedAt != nil {
		// A revoked refresh token presented again means the raw value
		// leaked or the client retried after rotation.
		log.Warn("revoked refresh token presented", logger.ClientID(client.ClientID), logger.UserID(rt.UserID))
		s.denied(client.ClientID, rt.UserID, nil, "refresh token revoked")
		metrics.Exchange("refresh_token", "denied")
		return nil, ErrTokenInvalidGrant
	}
	if time.Now().After(rt.ExpiresAt) {
		s.denied(client.ClientID, rt.UserID, nil, "refresh token expired")
		metrics.Exchange("refresh_token", "denied")
		return nil, ErrTokenInvalidGrant
	}

	// Scopes and citizen binding live on the paired access token.
	at, err := s.store.Tokens().GetAccessByID(ctx, rt.AccessTokenID)
	if err != nil {
		log.Error("paired access token missing", logger.Err(err))
		return nil, ErrTokenServerError
	}

	resp, err := s.rotatePair(ctx, log, rt, at)
	if err != nil {
		return nil, err
	}

	s.audit.Record(repository.AuditEvent{
		ClientID: client.ClientID,
		UserID:   rt.UserID,
		Action:   repository.AuditTokenIssued,
		Scopes:   at.Scopes,
		Success:  true,
		Detail:   "refresh_token",
	})
	metrics.Exchange("refresh_token", "ok")
	log.Info("tokens rotated",
		logger.ClientID(client.ClientID),
		logger.UserID(rt.UserID),
		logger.GrantType("refresh_token"))

	return resp, nil
}

// resolveClient authenticates the calling client. Confidential clients must
// present their secret; public clients authenticate by possession of the
// grant alone.
func (s *tokenService) resolveClient(ctx context.Context, clientID, clientSecret string) (*repository.Client, error) {
	client, err := s.store.Clients().GetByClientID(ctx, clientID)
	if err != nil || !client.Active {
		return nil, ErrTokenInvalidClient
	}

	if client.IsConfidential() {
		if clientSecret == "" {
			return nil, ErrTokenInvalidClient
		}
		if err := bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(clientSecret)); err != nil {
			return nil, ErrTokenInvalidClient
		}
	}

	return client, nil
}

// createPair mints an opaque access/refresh pair and, when openid was
// granted, the ID token.
func (s *tokenService) createPair(ctx context.Context, log *zap.Logger, clientID, userID, citizenID string, scopes []string, nonce string, rotation bool) (*TokenResponse, error) {
	accessRaw, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return nil, ErrTokenServerError
	}
	refreshRaw, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return nil, ErrTokenServerError
	}

	input := repository.CreatePairInput{
		AccessTokenHash:  tokens.SHA256Base64URL(accessRaw),
		RefreshTokenHash: tokens.SHA256Base64URL(refreshRaw),
		ClientID:         clientID,
		UserID:           userID,
		CitizenID:        citizenID,
		Scopes:           scopes,
		AccessTTL:        s.accessTTL,
		RefreshTTL:       s.refreshTTL,
	}

	if _, _, err := s.store.Tokens().CreatePair(ctx, input); err != nil {
		log.Error("failed to persist token pair", logger.Err(err))
		return nil, ErrTokenServerError
	}

	return s.buildResponse(ctx, log, accessRaw, refreshRaw, userID, citizenID, clientID, scopes, nonce)
}

// rotatePair revokes the presented pair and creates its replacement in one
// transaction. Any failure leaves the old pair valid.
func (s *tokenService) rotatePair(ctx context.Context, log *zap.Logger, rt *repository.RefreshToken, at *repository.AccessToken) (*TokenResponse, error) {
	accessRaw, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return nil, ErrTokenServerError
	}
	refreshRaw, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return nil, ErrTokenServerError
	}

	input := repository.CreatePairInput{
		AccessTokenHash:  tokens.SHA256Base64URL(accessRaw),
		RefreshTokenHash: tokens.SHA256Base64URL(refreshRaw),
		ClientID:         rt.ClientID,
		UserID:           rt.UserID,
		CitizenID:        at.CitizenID,
		Scopes:           at.Scopes,
		AccessTTL:        s.accessTTL,
		RefreshTTL:       s.refreshTTL,
	}

	if _, _, err := s.store.Tokens().Rotate(ctx, rt.ID, rt.AccessTokenID, input); err != nil {
		// A concurrent rotation of the same refresh token won the CAS.
		if errors.Is(err, repository.ErrTokenRevoked) || errors.Is(err, repository.ErrNotFound) {
			log.Warn("rotation lost to a concurrent request", logger.ClientID(rt.ClientID))
			metrics.Rotation("conflict")
			return nil, ErrTokenInvalidGrant
		}
		log.Error("rotation failed", logger.Err(err))
		metrics.Rotation("failed")
		return nil, ErrTokenServerError
	}
	metrics.Rotation("ok")

	// No nonce on refresh; it binds only the original authorization.
	return s.buildResponse(ctx, log, accessRaw, refreshRaw, rt.UserID, at.CitizenID, rt.ClientID, at.Scopes, "")
}

// buildResponse assembles the wire response, including the scope-gated ID
// token when openid was granted.
func (s *tokenService) buildResponse(ctx context.Context, log *zap.Logger, accessRaw, refreshRaw, userID, citizenID, clientID string, scopes []string, nonce string) (*TokenResponse, error) {
	resp := &TokenResponse{
		AccessToken:  accessRaw,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		RefreshToken: refreshRaw,
		Scope:        strings.Join(scopes, " "),
	}

	if !containsScope(scopes, claims.ScopeOpenID) {
		return resp, nil
	}

	var profile *repository.CitizenProfile
	if citizenID != "" {
		p, err := s.store.Citizens().GetByID(ctx, citizenID)
		if err != nil {
			// Claims degrade to sub/aud; the token itself still issues.
			log.Warn("citizen profile unavailable", logger.CitizenID(citizenID), logger.Err(err))
		} else {
			profile = p
		}
	}

	idClaims := claims.BuildIDClaims(userID, clientID, profile, scopes)
	if nonce != "" {
		idClaims["nonce"] = nonce
	}

	idToken, _, err := s.issuer.SignIDToken(idClaims)
	if err != nil {
		log.Error("failed to sign id token", logger.Err(err))
		return nil, ErrTokenServerError
	}
	resp.IDToken = idToken
	return resp, nil
}

// denied records a failed exchange in the audit trail.
func (s *tokenService) denied(clientID, userID string, scopes []string, detail string) {
	s.audit.Record(repository.AuditEvent{
		ClientID: clientID,
		UserID:   userID,
		Action:   repository.AuditTokenDenied,
		Scopes:   scopes,
		Success:  false,
		Detail:   detail,
	})
}

func containsScope(scopes []string, name string) bool {
	for _, s := range scopes {
		if s == name {
			return true
		}
	}
	return false
}
