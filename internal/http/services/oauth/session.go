package oauth

import (
	"net/http"
	"strings"

	jwtx "github.com/govpass/govpass/internal/jwt"
)

// resolveSession authenticates the browser request: session cookie first,
// then Authorization bearer. Returns (user_id, citizen_id, ok).
func resolveSession(r *http.Request, issuer *jwtx.Issuer, cookieName string) (string, string, bool) {
	if ck, err := r.Cookie(cookieName); err == nil && ck != nil && strings.TrimSpace(ck.Value) != "" {
		if sub, cid, err := issuer.ParseSession(strings.TrimSpace(ck.Value)); err == nil {
			return sub, cid, true
		}
	}

	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(ah), "bearer ") {
		raw := strings.TrimSpace(ah[len("Bearer "):])
		if sub, cid, err := issuer.ParseSession(raw); err == nil {
			return sub, cid, true
		}
	}

	return "", "", false
}
