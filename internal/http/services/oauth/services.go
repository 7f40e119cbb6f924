// Package oauth contiene los services del dominio OAuth2/OIDC.
package oauth

import (
	"time"

	"github.com/govpass/govpass/internal/audit"
	"github.com/govpass/govpass/internal/cache"
	jwtx "github.com/govpass/govpass/internal/jwt"
	"github.com/govpass/govpass/internal/store"
)

// Deps contiene las dependencias para crear los services OAuth.
type Deps struct {
	Store      store.Store
	Cache      cache.Client
	Issuer     *jwtx.Issuer
	Audit      *audit.Logger
	CookieName string
	UIBaseURL  string

	CodeTTL    time.Duration
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Services agrupa todos los services del dominio OAuth.
type Services struct {
	Authorize  AuthorizeService
	Consent    ConsentService
	Token      TokenService
	Introspect IntrospectService
	Revoke     RevokeService
}

// NewServices crea el agregador de services OAuth.
func NewServices(d Deps) Services {
	return Services{
		Authorize: NewAuthorizeService(AuthorizeDeps{
			Store:      d.Store,
			Cache:      d.Cache,
			Issuer:     d.Issuer,
			CookieName: d.CookieName,
			UIBaseURL:  d.UIBaseURL,
			CodeTTL:    d.CodeTTL,
		}),
		Consent: NewConsentService(ConsentDeps{
			Store:      d.Store,
			Cache:      d.Cache,
			Issuer:     d.Issuer,
			Audit:      d.Audit,
			CookieName: d.CookieName,
			CodeTTL:    d.CodeTTL,
		}),
		Token: NewTokenService(TokenDeps{
			Store:      d.Store,
			Issuer:     d.Issuer,
			Audit:      d.Audit,
			AccessTTL:  d.AccessTTL,
			RefreshTTL: d.RefreshTTL,
		}),
		Introspect: NewIntrospectService(IntrospectDeps{
			Store: d.Store,
		}),
		Revoke: NewRevokeService(RevokeDeps{
			Store: d.Store,
		}),
	}
}
