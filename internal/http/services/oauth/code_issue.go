package oauth

import (
	"context"
	"net/url"
	"time"

	"github.com/govpass/govpass/internal/domain/repository"
	"github.com/govpass/govpass/internal/metrics"
	tokens "github.com/govpass/govpass/internal/security/token"
	"github.com/govpass/govpass/internal/store"
)

// issueParams carries everything needed to mint an authorization code.
type issueParams struct {
	ClientID            string
	UserID              string
	CitizenID           string
	Scopes              []string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
	Nonce               string
	TTL                 time.Duration
}

// issueAuthorizationCode mints a single-use code. Only the SHA-256 hash is
// persisted; the raw code goes straight into the redirect and is never
// stored or logged.
func issueAuthorizationCode(ctx context.Context, st store.Store, p issueParams) (string, error) {
	code, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return "", err
	}

	_, err = st.Codes().Create(ctx, repository.CreateCodeInput{
		CodeHash:            tokens.SHA256Base64URL(code),
		ClientID:            p.ClientID,
		UserID:              p.UserID,
		CitizenID:           p.CitizenID,
		Scopes:              p.Scopes,
		RedirectURI:         p.RedirectURI,
		CodeChallenge:       p.CodeChallenge,
		CodeChallengeMethod: p.CodeChallengeMethod,
		Nonce:               p.Nonce,
		TTL:                 p.TTL,
	})
	if err != nil {
		return "", err
	}

	metrics.CodeIssued()
	return code, nil
}

// buildRedirect constructs the redirect URL safely.
func buildRedirect(base string, params map[string]string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base // fallback
	}
	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
