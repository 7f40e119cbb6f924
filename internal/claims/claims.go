// Package claims maps granted scopes to ID-token claims and to the consent
// screen metadata. The mapping is a static table: adding a scope means
// registering one entry, nothing in the minting path changes.
package claims

import (
	"github.com/govpass/govpass/internal/domain/repository"
)

// Scope names.
const (
	ScopeOpenID  = "openid"
	ScopeProfile = "profile"
	ScopeEmail   = "email"
	ScopePhone   = "phone"
)

// Definition describes one grantable scope: how the consent screen renders
// it and which claims it unlocks.
type Definition struct {
	Name      string
	Label     string
	Category  string
	Sensitive bool

	// Required scopes are always selected and cannot be deselected.
	Required bool

	// Build returns the claims this scope contributes, or nothing. A scope
	// that was not granted contributes nothing at all, never null-valued
	// claims.
	Build func(p *repository.CitizenProfile) map[string]any
}

// Catalog is the registration table, in consent-screen order.
var Catalog = []Definition{
	{
		Name:     ScopeOpenID,
		Label:    "Sign you in with your citizen account",
		Category: "identity",
		Required: true,
		Build:    func(p *repository.CitizenProfile) map[string]any { return nil },
	},
	{
		Name:     ScopeProfile,
		Label:    "Your name, birthdate and gender",
		Category: "identity",
		Build: func(p *repository.CitizenProfile) map[string]any {
			return map[string]any{
				"given_name":  p.GivenName,
				"family_name": p.FamilyName,
				"birthdate":   p.Birthdate,
				"gender":      p.Gender,
			}
		},
	},
	{
		Name:      ScopeEmail,
		Label:     "Your email address",
		Category:  "contact",
		Sensitive: true,
		Build: func(p *repository.CitizenProfile) map[string]any {
			if p.Email == "" || !p.EmailVerified {
				return nil
			}
			return map[string]any{
				"email":          p.Email,
				"email_verified": true,
			}
		},
	},
	{
		Name:      ScopePhone,
		Label:     "Your phone number",
		Category:  "contact",
		Sensitive: true,
		Build: func(p *repository.CitizenProfile) map[string]any {
			if p.Phone == "" || !p.PhoneVerified {
				return nil
			}
			return map[string]any{
				"phone_number":          p.Phone,
				"phone_number_verified": true,
			}
		},
	},
}

var byName = func() map[string]*Definition {
	m := make(map[string]*Definition, len(Catalog))
	for i := range Catalog {
		m[Catalog[i].Name] = &Catalog[i]
	}
	return m
}()

// Lookup returns the definition for a scope name.
func Lookup(name string) (*Definition, bool) {
	d, ok := byName[name]
	return d, ok
}

// BuildIDClaims assembles the scope-gated claim set for an ID token.
// sub/aud/nip are always present; iss/iat/exp are injected by the signer.
func BuildIDClaims(userID, clientID string, profile *repository.CitizenProfile, scopes []string) map[string]any {
	out := map[string]any{
		"sub": userID,
		"aud": clientID,
	}
	if profile == nil {
		return out
	}
	out["nip"] = profile.NIP

	for _, name := range scopes {
		def, ok := byName[name]
		if !ok {
			continue
		}
		for k, v := range def.Build(profile) {
			out[k] = v
		}
	}
	return out
}
