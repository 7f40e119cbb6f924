// Package memory implements the repositories on in-process maps. Used by
// the "memory" storage driver and by tests. The mutex gives the same
// atomicity guarantees the SQL backend gets from row locks, which is what
// the code-consumption and rotation tests exercise.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/govpass/govpass/internal/domain/repository"
)

// Store keeps everything behind one mutex. Contention is irrelevant at the
// scale a memory deployment runs at.
type Store struct {
	mu sync.Mutex

	clients  map[string]*repository.Client            // by client_id
	codes    map[string]*repository.AuthorizationCode // by id
	access   map[string]*repository.AccessToken       // by id
	refresh  map[string]*repository.RefreshToken      // by id
	consents map[string]*repository.Consent           // by user|client
	citizens map[string]*repository.CitizenProfile    // by citizen_id
	events   []repository.AuditEvent
}

// New returns an empty memory store.
func New() *Store {
	return &Store{
		clients:  make(map[string]*repository.Client),
		codes:    make(map[string]*repository.AuthorizationCode),
		access:   make(map[string]*repository.AccessToken),
		refresh:  make(map[string]*repository.RefreshToken),
		consents: make(map[string]*repository.Consent),
		citizens: make(map[string]*repository.CitizenProfile),
	}
}

func (s *Store) Clients() repository.ClientRepository   { return (*clientRepo)(s) }
func (s *Store) Codes() repository.CodeRepository       { return (*codeRepo)(s) }
func (s *Store) Tokens() repository.TokenRepository     { return (*tokenRepo)(s) }
func (s *Store) Consents() repository.ConsentRepository { return (*consentRepo)(s) }
func (s *Store) Citizens() repository.CitizenRepository { return (*citizenRepo)(s) }
func (s *Store) Audit() repository.AuditRepository      { return (*auditRepo)(s) }

func (s *Store) Migrate(ctx context.Context) (int, error) { return 0, nil }

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close() error                   { return nil }

// AuditEvents returns a copy of the recorded events. Test helper.
func (s *Store) AuditEvents() []repository.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}

// ─── clients ───

type clientRepo Store

func (r *clientRepo) GetByClientID(ctx context.Context, clientID string) (*repository.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[clientID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *clientRepo) Create(ctx context.Context, input repository.ClientInput) (*repository.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[input.ClientID]; ok {
		return nil, repository.ErrConflict
	}
	c := &repository.Client{
		ID:           uuid.NewString(),
		ClientID:     input.ClientID,
		Name:         input.Name,
		Type:         input.Type,
		SecretHash:   input.SecretHash,
		RedirectURIs: append([]string(nil), input.RedirectURIs...),
		Scopes:       append([]string(nil), input.Scopes...),
		Active:       input.Active,
		Verified:     input.Verified,
	}
	r.clients[input.ClientID] = c
	cp := *c
	return &cp, nil
}

// ─── authorization codes ───

type codeRepo Store

func (r *codeRepo) Create(ctx context.Context, input repository.CreateCodeInput) (*repository.AuthorizationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	ac := &repository.AuthorizationCode{
		ID:                  uuid.NewString(),
		CodeHash:            input.CodeHash,
		ClientID:            input.ClientID,
		UserID:              input.UserID,
		CitizenID:           input.CitizenID,
		Scopes:              append([]string(nil), input.Scopes...),
		RedirectURI:         input.RedirectURI,
		CodeChallenge:       input.CodeChallenge,
		CodeChallengeMethod: input.CodeChallengeMethod,
		Nonce:               input.Nonce,
		ExpiresAt:           now.Add(input.TTL),
		CreatedAt:           now,
	}
	r.codes[ac.ID] = ac
	cp := *ac
	return &cp, nil
}

func (r *codeRepo) GetByHash(ctx context.Context, codeHash, clientID string) (*repository.AuthorizationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ac := range r.codes {
		if ac.CodeHash == codeHash && ac.ClientID == clientID {
			cp := *ac
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *codeRepo) MarkUsed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ac, ok := r.codes[id]
	if !ok {
		return repository.ErrNotFound
	}
	if ac.UsedAt != nil {
		return repository.ErrCodeUsed
	}
	now := time.Now().UTC()
	ac.UsedAt = &now
	return nil
}

// ─── token pairs ───

type tokenRepo Store

func (r *tokenRepo) CreatePair(ctx context.Context, input repository.CreatePairInput) (*repository.AccessToken, *repository.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, rt := buildPair(input)
	r.access[at.ID] = at
	r.refresh[rt.ID] = rt
	atc, rtc := *at, *rt
	return &atc, &rtc, nil
}

func (r *tokenRepo) GetRefreshByHash(ctx context.Context, tokenHash, clientID string) (*repository.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rt := range r.refresh {
		if rt.TokenHash == tokenHash && rt.ClientID == clientID {
			cp := *rt
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *tokenRepo) GetRefreshByHashAnyClient(ctx context.Context, tokenHash string) (*repository.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rt := range r.refresh {
		if rt.TokenHash == tokenHash {
			cp := *rt
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *tokenRepo) GetAccessByHash(ctx context.Context, tokenHash string) (*repository.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, at := range r.access {
		if at.TokenHash == tokenHash {
			cp := *at
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *tokenRepo) GetAccessByID(ctx context.Context, id string) (*repository.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.access[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *at
	return &cp, nil
}

func (r *tokenRepo) GetRefreshByAccessID(ctx context.Context, accessID string) (*repository.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rt := range r.refresh {
		if rt.AccessTokenID == accessID {
			cp := *rt
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *tokenRepo) Rotate(ctx context.Context, oldRefreshID, oldAccessID string, input repository.CreatePairInput) (*repository.AccessToken, *repository.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Both revocations and both inserts happen under the lock, mirroring
	// the single SQL transaction of the postgres driver. The refresh revoke
	// is the compare-and-set: a second rotation of the same token loses.
	old, ok := r.refresh[oldRefreshID]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	if old.RevokedAt != nil {
		return nil, nil, repository.ErrTokenRevoked
	}
	now := time.Now().UTC()
	old.RevokedAt = &now
	if at, ok := r.access[oldAccessID]; ok && at.RevokedAt == nil {
		at.RevokedAt = &now
	}

	at, rt := buildPair(input)
	r.access[at.ID] = at
	r.refresh[rt.ID] = rt
	atc, rtc := *at, *rt
	return &atc, &rtc, nil
}

func (r *tokenRepo) RevokePair(ctx context.Context, refreshID, accessID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if rt, ok := r.refresh[refreshID]; ok && rt.RevokedAt == nil {
		rt.RevokedAt = &now
	}
	if at, ok := r.access[accessID]; ok && at.RevokedAt == nil {
		at.RevokedAt = &now
	}
	return nil
}

func buildPair(input repository.CreatePairInput) (*repository.AccessToken, *repository.RefreshToken) {
	now := time.Now().UTC()
	at := &repository.AccessToken{
		ID:        uuid.NewString(),
		TokenHash: input.AccessTokenHash,
		ClientID:  input.ClientID,
		UserID:    input.UserID,
		CitizenID: input.CitizenID,
		Scopes:    append([]string(nil), input.Scopes...),
		IssuedAt:  now,
		ExpiresAt: now.Add(input.AccessTTL),
	}
	rt := &repository.RefreshToken{
		ID:            uuid.NewString(),
		TokenHash:     input.RefreshTokenHash,
		AccessTokenID: at.ID,
		ClientID:      input.ClientID,
		UserID:        input.UserID,
		IssuedAt:      now,
		ExpiresAt:     now.Add(input.RefreshTTL),
	}
	return at, rt
}

// ─── consents ───

type consentRepo Store

func consentKey(userID, clientID string) string { return userID + "|" + clientID }

func (r *consentRepo) Upsert(ctx context.Context, userID, clientID string, scopes []string) (*repository.Consent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	key := consentKey(userID, clientID)
	c, ok := r.consents[key]
	if !ok {
		c = &repository.Consent{
			ID:        uuid.NewString(),
			UserID:    userID,
			ClientID:  clientID,
			GrantedAt: now,
		}
		r.consents[key] = c
	}
	c.Scopes = append([]string(nil), scopes...)
	c.UpdatedAt = now
	cp := *c
	return &cp, nil
}

func (r *consentRepo) Get(ctx context.Context, userID, clientID string) (*repository.Consent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.consents[consentKey(userID, clientID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// ─── citizens ───

type citizenRepo Store

func (r *citizenRepo) GetByID(ctx context.Context, citizenID string) (*repository.CitizenProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.citizens[citizenID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *citizenRepo) Upsert(ctx context.Context, p repository.CitizenProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.UpdatedAt = time.Now().UTC()
	cp := p
	r.citizens[p.CitizenID] = &cp
	return nil
}

// ─── audit ───

type auditRepo Store

func (r *auditRepo) Insert(ctx context.Context, e repository.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	r.events = append(r.events, e)
	return nil
}
