package oauth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/govpass/govpass/internal/observability/logger"
	tokens "github.com/govpass/govpass/internal/security/token"
	"github.com/govpass/govpass/internal/store"
)

// RevokeService handles RFC 7009 token revocation.
type RevokeService interface {
	// Revoke invalidates the token pair the given token belongs to. Per
	// RFC 7009 an unknown token is not an error.
	Revoke(ctx context.Context, req RevokeRequest) error
}

// RevokeRequest contains parameters for POST /oauth/revoke.
type RevokeRequest struct {
	Token         string
	TokenTypeHint string
	ClientID      string
	ClientSecret  string
}

// RevokeDeps contains dependencies for the revoke service.
type RevokeDeps struct {
	Store store.Store
}

// Revoke endpoint errors.
var (
	ErrRevokeInvalidRequest = errors.New("invalid_request")
	ErrRevokeInvalidClient  = errors.New("invalid_client")
)

type revokeService struct {
	store store.Store
}

// NewRevokeService creates a new RevokeService.
func NewRevokeService(d RevokeDeps) RevokeService {
	return &revokeService{store: d.Store}
}

func (s *revokeService) Revoke(ctx context.Context, req RevokeRequest) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("RevokeService.Revoke"))

	if strings.TrimSpace(req.Token) == "" || req.ClientID == "" {
		return ErrRevokeInvalidRequest
	}

	client, err := s.store.Clients().GetByClientID(ctx, req.ClientID)
	if err != nil || !client.Active {
		return ErrRevokeInvalidClient
	}
	if client.IsConfidential() {
		if req.ClientSecret == "" ||
			bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(req.ClientSecret)) != nil {
			return ErrRevokeInvalidClient
		}
	}

	hash := tokens.SHA256Base64URL(req.Token)

	// Refresh token first unless hinted otherwise.
	if req.TokenTypeHint != "access_token" {
		if done := s.revokeByRefreshHash(ctx, hash, client.ClientID, log); done {
			return nil
		}
		s.revokeByAccessHash(ctx, hash, client.ClientID, log)
		return nil
	}

	if done := s.revokeByAccessHash(ctx, hash, client.ClientID, log); done {
		return nil
	}
	s.revokeByRefreshHash(ctx, hash, client.ClientID, log)
	return nil
}

func (s *revokeService) revokeByRefreshHash(ctx context.Context, hash, clientID string, log *zap.Logger) bool {
	rt, err := s.store.Tokens().GetRefreshByHash(ctx, hash, clientID)
	if err != nil {
		return false
	}
	if rt.RevokedAt != nil {
		return true // already revoked, idempotent
	}
	if err := s.store.Tokens().RevokePair(ctx, rt.ID, rt.AccessTokenID); err != nil {
		log.Error("failed to revoke pair", logger.Err(err))
		return true
	}
	log.Info("token pair revoked", logger.ClientID(clientID), logger.UserID(rt.UserID))
	return true
}

func (s *revokeService) revokeByAccessHash(ctx context.Context, hash, clientID string, log *zap.Logger) bool {
	at, err := s.store.Tokens().GetAccessByHash(ctx, hash)
	if err != nil || at.ClientID != clientID {
		return false
	}
	if at.RevokedAt != nil {
		return true // already revoked, idempotent
	}

	rt, err := s.store.Tokens().GetRefreshByAccessID(ctx, at.ID)
	if err != nil {
		return false
	}
	if err := s.store.Tokens().RevokePair(ctx, rt.ID, at.ID); err != nil {
		log.Error("failed to revoke pair", logger.Err(err))
		return true
	}
	log.Info("token pair revoked", logger.ClientID(clientID), logger.UserID(at.UserID))
	return true
}
