package memory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/govpass/govpass/internal/domain/repository"
	"github.com/govpass/govpass/internal/store/memory"
)

func codeInput(clientID string) repository.CreateCodeInput {
	return repository.CreateCodeInput{
		CodeHash:            "hash-" + clientID,
		ClientID:            clientID,
		UserID:              "u1",
		CitizenID:           "ctz-1",
		Scopes:              []string{"openid", "profile"},
		RedirectURI:         "https://rp.example/cb",
		CodeChallenge:       "challenge",
		CodeChallengeMethod: "S256",
		Nonce:               "n-1",
		TTL:                 5 * time.Minute,
	}
}

func pairInput(accessHash, refreshHash string) repository.CreatePairInput {
	return repository.CreatePairInput{
		AccessTokenHash:  accessHash,
		RefreshTokenHash: refreshHash,
		ClientID:         "client-a",
		UserID:           "u1",
		CitizenID:        "ctz-1",
		Scopes:           []string{"openid"},
		AccessTTL:        time.Hour,
		RefreshTTL:       24 * time.Hour,
	}
}

func TestCodes_CreateAndGetByHash(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	ac, err := st.Codes().Create(ctx, codeInput("client-a"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ac.Nonce != "n-1" {
		t.Fatalf("nonce not persisted: %q", ac.Nonce)
	}

	got, err := st.Codes().GetByHash(ctx, "hash-client-a", "client-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != ac.ID {
		t.Fatalf("got %s, want %s", got.ID, ac.ID)
	}

	// A code fetched with the wrong client must look nonexistent.
	if _, err := st.Codes().GetByHash(ctx, "hash-client-a", "client-b"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("cross-client fetch: err = %v, want ErrNotFound", err)
	}
}

func TestCodes_MarkUsedIsSingleUse(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	ac, err := st.Codes().Create(ctx, codeInput("client-a"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := st.Codes().MarkUsed(ctx, ac.ID); err != nil {
		t.Fatalf("first MarkUsed: %v", err)
	}
	if err := st.Codes().MarkUsed(ctx, ac.ID); !errors.Is(err, repository.ErrCodeUsed) {
		t.Fatalf("second MarkUsed: err = %v, want ErrCodeUsed", err)
	}
	if err := st.Codes().MarkUsed(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown id: err = %v, want ErrNotFound", err)
	}
}

func TestCodes_MarkUsedConcurrent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	ac, err := st.Codes().Create(ctx, codeInput("client-a"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const n = 32
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- st.Codes().MarkUsed(ctx, ac.ID)
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, repository.ErrCodeUsed) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("exactly one MarkUsed must win, got %d", wins)
	}
}

func TestTokens_CreatePairAndLookups(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	at, rt, err := st.Tokens().CreatePair(ctx, pairInput("ah-1", "rh-1"))
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	if rt.AccessTokenID != at.ID {
		t.Fatal("refresh not paired with access token")
	}

	if _, err := st.Tokens().GetAccessByHash(ctx, "ah-1"); err != nil {
		t.Fatalf("access by hash: %v", err)
	}
	if _, err := st.Tokens().GetRefreshByHash(ctx, "rh-1", "client-a"); err != nil {
		t.Fatalf("refresh by hash: %v", err)
	}
	if _, err := st.Tokens().GetRefreshByHash(ctx, "rh-1", "client-b"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("cross-client refresh fetch: err = %v, want ErrNotFound", err)
	}
	if _, err := st.Tokens().GetRefreshByHashAnyClient(ctx, "rh-1"); err != nil {
		t.Fatalf("refresh any client: %v", err)
	}

	paired, err := st.Tokens().GetRefreshByAccessID(ctx, at.ID)
	if err != nil {
		t.Fatalf("refresh by access id: %v", err)
	}
	if paired.ID != rt.ID {
		t.Fatalf("got %s, want %s", paired.ID, rt.ID)
	}
}

func TestTokens_RotateRevokesOldPair(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	at, rt, err := st.Tokens().CreatePair(ctx, pairInput("ah-1", "rh-1"))
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}

	newAT, newRT, err := st.Tokens().Rotate(ctx, rt.ID, at.ID, pairInput("ah-2", "rh-2"))
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if newAT.ID == at.ID || newRT.ID == rt.ID {
		t.Fatal("rotation reused old ids")
	}

	// Old pair stays readable but revoked.
	oldRT, err := st.Tokens().GetRefreshByHashAnyClient(ctx, "rh-1")
	if err != nil {
		t.Fatalf("old refresh gone: %v", err)
	}
	if oldRT.RevokedAt == nil {
		t.Fatal("old refresh not revoked")
	}
	oldAT, err := st.Tokens().GetAccessByHash(ctx, "ah-1")
	if err != nil {
		t.Fatalf("old access gone: %v", err)
	}
	if oldAT.RevokedAt == nil {
		t.Fatal("old access not revoked")
	}

	// New pair is live.
	freshRT, err := st.Tokens().GetRefreshByHashAnyClient(ctx, "rh-2")
	if err != nil || freshRT.RevokedAt != nil {
		t.Fatalf("new refresh not live: %v %v", err, freshRT)
	}
}

func TestTokens_RotateOfRevokedRefreshFails(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	at, rt, err := st.Tokens().CreatePair(ctx, pairInput("ah-1", "rh-1"))
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	if _, _, err := st.Tokens().Rotate(ctx, rt.ID, at.ID, pairInput("ah-2", "rh-2")); err != nil {
		t.Fatalf("first rotate: %v", err)
	}

	// A second rotation of the same refresh token loses the CAS and must
	// not mint another pair.
	if _, _, err := st.Tokens().Rotate(ctx, rt.ID, at.ID, pairInput("ah-3", "rh-3")); !errors.Is(err, repository.ErrTokenRevoked) {
		t.Fatalf("second rotate: err = %v, want ErrTokenRevoked", err)
	}
	if _, err := st.Tokens().GetRefreshByHashAnyClient(ctx, "rh-3"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("losing rotation persisted a pair: err = %v", err)
	}
}

func TestTokens_ConcurrentRotateSingleWinner(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	at, rt, err := st.Tokens().CreatePair(ctx, pairInput("ah-1", "rh-1"))
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}

	const n = 32
	results := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := pairInput(fmt.Sprintf("ah-new-%d", i), fmt.Sprintf("rh-new-%d", i))
			_, _, err := st.Tokens().Rotate(ctx, rt.ID, at.ID, in)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, repository.ErrTokenRevoked) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("exactly one rotation must win, got %d", wins)
	}
}

func TestTokens_RevokePair(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	at, rt, err := st.Tokens().CreatePair(ctx, pairInput("ah-1", "rh-1"))
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	if err := st.Tokens().RevokePair(ctx, rt.ID, at.ID); err != nil {
		t.Fatalf("revoke pair: %v", err)
	}

	gotRT, _ := st.Tokens().GetRefreshByHashAnyClient(ctx, "rh-1")
	gotAT, _ := st.Tokens().GetAccessByHash(ctx, "ah-1")
	if gotRT.RevokedAt == nil || gotAT.RevokedAt == nil {
		t.Fatal("pair not fully revoked")
	}
}

func TestConsents_UpsertAndCovers(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	if _, err := st.Consents().Get(ctx, "u1", "client-a"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("empty store: err = %v, want ErrNotFound", err)
	}

	if _, err := st.Consents().Upsert(ctx, "u1", "client-a", []string{"openid", "profile"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	c, err := st.Consents().Get(ctx, "u1", "client-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !c.Covers([]string{"openid"}) || !c.Covers([]string{"openid", "profile"}) {
		t.Fatal("granted scopes not covered")
	}
	if c.Covers([]string{"openid", "email"}) {
		t.Fatal("ungranted scope reported covered")
	}

	// Re-granting replaces the set.
	if _, err := st.Consents().Upsert(ctx, "u1", "client-a", []string{"openid"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	c, _ = st.Consents().Get(ctx, "u1", "client-a")
	if c.Covers([]string{"openid", "profile"}) {
		t.Fatal("stale grant survived upsert")
	}
}

func TestClients_CreateConflict(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	input := repository.ClientInput{
		ClientID:     "client-a",
		Name:         "A",
		Type:         repository.ClientTypePublic,
		RedirectURIs: []string{"https://rp.example/cb"},
		Scopes:       []string{"openid"},
		Active:       true,
	}
	if _, err := st.Clients().Create(ctx, input); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.Clients().Create(ctx, input); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("duplicate create: err = %v, want ErrConflict", err)
	}
}
