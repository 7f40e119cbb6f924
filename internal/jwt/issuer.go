// Package jwt signs and verifies the JWTs the server emits: OIDC ID tokens
// and the session tokens the platform front door hands to browsers. Access
// and refresh tokens are opaque and never pass through here.
package jwt

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Issuer signs with a single active RS256 key.
type Issuer struct {
	Iss        string // "iss" claim
	KID        string
	IDTokenTTL time.Duration

	key *rsa.PrivateKey
}

// NewIssuer wraps a signing key. ID tokens default to a 1h lifetime.
func NewIssuer(iss string, key *rsa.PrivateKey) *Issuer {
	return &Issuer{
		Iss:        iss,
		KID:        KeyID(key),
		IDTokenTTL: time.Hour,
		key:        key,
	}
}

// SignIDToken signs an OIDC ID token. iss, iat and exp are injected here;
// everything else (sub, aud, scope-gated claims) comes in via claims.
func (i *Issuer) SignIDToken(claims map[string]any) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.IDTokenTTL)

	mc := jwtv5.MapClaims{
		"iss": i.Iss,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	for k, v := range claims {
		mc[k] = v
	}

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, mc)
	tk.Header["kid"] = i.KID
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// SignSession signs a platform session token carrying the authenticated
// user. The front door sets it as a cookie after login; authorize reads it.
func (i *Issuer) SignSession(userID, citizenID string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, jwtv5.MapClaims{
		"iss": i.Iss,
		"sub": userID,
		"cid": citizenID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	tk.Header["kid"] = i.KID
	tk.Header["typ"] = "JWT"
	return tk.SignedString(i.key)
}

// ParseSession validates a session token and returns (user_id, citizen_id).
func (i *Issuer) ParseSession(raw string) (string, string, error) {
	tk, err := jwtv5.Parse(raw, i.Keyfunc(),
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithIssuer(i.Iss),
	)
	if err != nil {
		return "", "", err
	}
	claims, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok || !tk.Valid {
		return "", "", errors.New("jwt: invalid session token")
	}
	sub, _ := claims["sub"].(string)
	cid, _ := claims["cid"].(string)
	if sub == "" {
		return "", "", errors.New("jwt: session token missing sub")
	}
	return sub, cid, nil
}

// Keyfunc resolves the public key for verification.
func (i *Issuer) Keyfunc() jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		return &i.key.PublicKey, nil
	}
}

// ─── JWKS ───

type jwk struct {
	Kty string `json:"kty"` // "RSA"
	Kid string `json:"kid"`
	Alg string `json:"alg"` // "RS256"
	Use string `json:"use"` // "sig"
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// JWKSJSON returns the public key set served at the jwks_uri.
func (i *Issuer) JWKSJSON() []byte {
	pub := i.key.PublicKey
	j := jwks{Keys: []jwk{{
		Kty: "RSA",
		Kid: i.KID,
		Alg: "RS256",
		Use: "sig",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}}}
	b, _ := json.Marshal(j)
	return b
}
