package claims_test

import (
	"testing"

	"github.com/govpass/govpass/internal/claims"
	"github.com/govpass/govpass/internal/domain/repository"
)

func profileFixture() *repository.CitizenProfile {
	return &repository.CitizenProfile{
		CitizenID:     "ctz-1",
		NIP:           "19900101000042",
		GivenName:     "Ana",
		FamilyName:    "Costa",
		Birthdate:     "1990-01-01",
		Gender:        "female",
		Email:         "ana@example.org",
		EmailVerified: true,
		Phone:         "+34600000001",
		PhoneVerified: true,
	}
}

func TestBuildIDClaims_OpenIDOnly(t *testing.T) {
	got := claims.BuildIDClaims("u1", "client-a", profileFixture(), []string{"openid"})

	if got["sub"] != "u1" || got["aud"] != "client-a" {
		t.Fatalf("sub/aud wrong: %v", got)
	}
	if got["nip"] != "19900101000042" {
		t.Fatalf("nip missing: %v", got)
	}
	for _, k := range []string{"given_name", "email", "phone_number"} {
		if _, ok := got[k]; ok {
			t.Fatalf("claim %s leaked without its scope", k)
		}
	}
}

func TestBuildIDClaims_ProfileScope(t *testing.T) {
	got := claims.BuildIDClaims("u1", "client-a", profileFixture(), []string{"openid", "profile"})

	if got["given_name"] != "Ana" || got["family_name"] != "Costa" {
		t.Fatalf("name claims missing: %v", got)
	}
	if got["birthdate"] != "1990-01-01" || got["gender"] != "female" {
		t.Fatalf("birthdate/gender missing: %v", got)
	}
	if _, ok := got["email"]; ok {
		t.Fatal("email leaked without email scope")
	}
}

func TestBuildIDClaims_UnverifiedContactOmitted(t *testing.T) {
	p := profileFixture()
	p.EmailVerified = false
	p.PhoneVerified = false

	got := claims.BuildIDClaims("u1", "client-a", p, []string{"openid", "email", "phone"})

	if _, ok := got["email"]; ok {
		t.Fatal("unverified email included")
	}
	if _, ok := got["email_verified"]; ok {
		t.Fatal("email_verified included for unverified email")
	}
	if _, ok := got["phone_number"]; ok {
		t.Fatal("unverified phone included")
	}
}

func TestBuildIDClaims_VerifiedContact(t *testing.T) {
	got := claims.BuildIDClaims("u1", "client-a", profileFixture(), []string{"openid", "email", "phone"})

	if got["email"] != "ana@example.org" || got["email_verified"] != true {
		t.Fatalf("email claims wrong: %v", got)
	}
	if got["phone_number"] != "+34600000001" || got["phone_number_verified"] != true {
		t.Fatalf("phone claims wrong: %v", got)
	}
}

func TestBuildIDClaims_NilProfile(t *testing.T) {
	got := claims.BuildIDClaims("u1", "client-a", nil, []string{"openid", "profile", "email"})

	if len(got) != 2 {
		t.Fatalf("expected only sub/aud, got %v", got)
	}
}

func TestBuildIDClaims_UnknownScopeIgnored(t *testing.T) {
	got := claims.BuildIDClaims("u1", "client-a", profileFixture(), []string{"openid", "admin:everything"})

	for _, k := range []string{"given_name", "email", "phone_number"} {
		if _, ok := got[k]; ok {
			t.Fatalf("unknown scope unlocked %s", k)
		}
	}
}

func TestLookup(t *testing.T) {
	def, ok := claims.Lookup(claims.ScopeEmail)
	if !ok {
		t.Fatal("email scope not in catalog")
	}
	if !def.Sensitive {
		t.Fatal("email scope should be sensitive")
	}
	if _, ok := claims.Lookup("nonsense"); ok {
		t.Fatal("unknown scope resolved")
	}

	openid, ok := claims.Lookup(claims.ScopeOpenID)
	if !ok || !openid.Required {
		t.Fatal("openid must be a required scope")
	}
}
