package tokens_test

import (
	"encoding/base64"
	"testing"

	tokens "github.com/govpass/govpass/internal/security/token"
)

func TestGenerateOpaqueToken_UniqueAndURLSafe(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok, err := tokens.GenerateOpaqueToken(32)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token generated: %s", tok)
		}
		seen[tok] = true

		if _, err := base64.RawURLEncoding.DecodeString(tok); err != nil {
			t.Fatalf("token not base64url: %v", err)
		}
	}
}

func TestSHA256Base64URL_Deterministic(t *testing.T) {
	a := tokens.SHA256Base64URL("hello")
	b := tokens.SHA256Base64URL("hello")
	if a != b {
		t.Fatalf("hash not deterministic: %s != %s", a, b)
	}
	if a == tokens.SHA256Base64URL("hello2") {
		t.Fatal("distinct inputs collided")
	}
	if a == "hello" {
		t.Fatal("hash returned the input")
	}
}

func TestConstantTimeEquals(t *testing.T) {
	if !tokens.ConstantTimeEquals("abc", "abc") {
		t.Fatal("equal strings reported unequal")
	}
	if tokens.ConstantTimeEquals("abc", "abd") {
		t.Fatal("unequal strings reported equal")
	}
	if tokens.ConstantTimeEquals("abc", "abcd") {
		t.Fatal("different lengths reported equal")
	}
}
