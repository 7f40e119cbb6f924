// Package oauth contains controllers for the OAuth2/OIDC endpoints.
package oauth

import svc "github.com/govpass/govpass/internal/http/services/oauth"

// Controllers agrupa todos los controllers del dominio OAuth.
type Controllers struct {
	Authorize  *AuthorizeController
	Consent    *ConsentController
	Token      *TokenController
	Introspect *IntrospectController
	Revoke     *RevokeController
}

// NewControllers crea el agregador de controllers OAuth.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Authorize:  NewAuthorizeController(s.Authorize),
		Consent:    NewConsentController(s.Consent),
		Token:      NewTokenController(s.Token),
		Introspect: NewIntrospectController(s.Introspect),
		Revoke:     NewRevokeController(s.Revoke),
	}
}
