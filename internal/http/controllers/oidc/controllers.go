// Package oidc serves the OpenID Connect discovery and JWKS documents.
package oidc

import (
	"encoding/json"
	"net/http"

	jwtx "github.com/govpass/govpass/internal/jwt"
)

// Controllers agrupa los controllers OIDC.
type Controllers struct {
	issuer *jwtx.Issuer
}

// NewControllers creates the OIDC controllers.
func NewControllers(issuer *jwtx.Issuer) *Controllers {
	return &Controllers{issuer: issuer}
}

type discoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	ClaimsSupported                   []string `json:"claims_supported"`
}

// Discovery handles GET /.well-known/openid-configuration.
func (c *Controllers) Discovery(w http.ResponseWriter, r *http.Request) {
	iss := c.issuer.Iss
	doc := discoveryDocument{
		Issuer:                            iss,
		AuthorizationEndpoint:             iss + "/oauth/authorize",
		TokenEndpoint:                     iss + "/oauth/token",
		IntrospectionEndpoint:             iss + "/oauth/introspect",
		RevocationEndpoint:                iss + "/oauth/revoke",
		JWKSURI:                           iss + "/oauth/jwks",
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{"authorization_code", "refresh_token"},
		ScopesSupported:                   []string{"openid", "profile", "email", "phone"},
		CodeChallengeMethodsSupported:     []string{"S256"},
		IDTokenSigningAlgValuesSupported:  []string{"RS256"},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post", "none"},
		ClaimsSupported: []string{
			"sub", "aud", "iss", "iat", "exp", "nonce", "nip",
			"given_name", "family_name", "birthdate", "gender",
			"email", "email_verified", "phone_number", "phone_number_verified",
		},
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_ = json.NewEncoder(w).Encode(doc)
}

// JWKS handles GET /oauth/jwks.
func (c *Controllers) JWKS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(c.issuer.JWKSJSON())
}
