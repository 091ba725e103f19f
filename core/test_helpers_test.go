package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

const (
	testUserID       = "user_1"
	testProviderID   = "acme"
	testNoRevokeID   = "basic"
	testCallbackBase = "https://app.example.com/connect"
	testReturnURL    = "https://app.example.com/settings"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CallbackBaseURL = testCallbackBase
	cfg.DefaultReturnURL = testReturnURL
	return cfg
}

func testDefinitions() []ProviderDefinition {
	return []ProviderDefinition{
		{
			ID:           testProviderID,
			DisplayName:  "Acme",
			ClientID:     "acme-client",
			ClientSecret: "acme-secret",
			AuthURL:      "https://auth.acme.test/authorize",
			TokenURL:     "https://auth.acme.test/token",
			RevokeURL:    "https://auth.acme.test/revoke",
			Scope:        "read write",
			Services:     []string{"files", "calendar"},
		},
		{
			ID:           testNoRevokeID,
			DisplayName:  "Basic",
			ClientID:     "basic-client",
			ClientSecret: "basic-secret",
			AuthURL:      "https://auth.basic.test/authorize",
			TokenURL:     "https://auth.basic.test/token",
		},
	}
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog(testDefinitions())
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	return catalog
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	// A pinned instant keeps every expiry decision on the injected clock.
	return &fakeClock{now: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeExchanger struct {
	mu sync.Mutex

	exchangeCalls int
	refreshCalls  int
	revokeCalls   int

	exchangeGrant TokenGrant
	exchangeErr   error
	refreshGrant  TokenGrant
	refreshErr    error
	revokeErr     error

	refreshDelay time.Duration
}

func (f *fakeExchanger) Exchange(_ context.Context, _ ProviderDefinition, code, _ string) (TokenGrant, error) {
	f.mu.Lock()
	f.exchangeCalls++
	grant, err := f.exchangeGrant, f.exchangeErr
	f.mu.Unlock()
	if err != nil {
		return TokenGrant{}, err
	}
	if grant.AccessToken == "" {
		grant = TokenGrant{
			AccessToken:  "access-" + code,
			RefreshToken: "refresh-" + code,
			Scope:        "read write",
			ExpiresIn:    3600,
		}
	}
	return grant, nil
}

func (f *fakeExchanger) Refresh(_ context.Context, _ ProviderDefinition, _ string) (TokenGrant, error) {
	f.mu.Lock()
	f.refreshCalls++
	grant, err, delay := f.refreshGrant, f.refreshErr, f.refreshDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return TokenGrant{}, err
	}
	if grant.AccessToken == "" {
		grant = TokenGrant{AccessToken: "refreshed-access", ExpiresIn: 3600}
	}
	return grant, nil
}

func (f *fakeExchanger) Revoke(_ context.Context, _ ProviderDefinition, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokeCalls++
	return f.revokeErr
}

func (f *fakeExchanger) counts() (exchange, refresh, revoke int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exchangeCalls, f.refreshCalls, f.revokeCalls
}

type capturingHooks struct {
	mu           sync.Mutex
	connected    []Credential
	disconnected []string
	refreshFails []RefreshErrorKind
}

func (h *capturingHooks) OnConnected(_ context.Context, cred Credential) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected = append(h.connected, cred)
	return nil
}

func (h *capturingHooks) OnDisconnected(_ context.Context, userID, providerID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnected = append(h.disconnected, userID+"/"+providerID)
	return nil
}

func (h *capturingHooks) OnRefreshFailed(_ context.Context, _ Credential, kind RefreshErrorKind) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refreshFails = append(h.refreshFails, kind)
	return nil
}

type testServiceEnv struct {
	service   *Service
	exchanger *fakeExchanger
	clock     *fakeClock
	hooks     *capturingHooks
	creds     *MemoryCredentialStore
	states    *MemoryAuthStateStore
}

func newTestService(t *testing.T, options ...Option) *testServiceEnv {
	t.Helper()
	env := &testServiceEnv{
		exchanger: &fakeExchanger{},
		clock:     newFakeClock(),
		hooks:     &capturingHooks{},
		creds:     NewMemoryCredentialStore(),
	}
	cfg := testConfig()
	env.states = NewMemoryAuthStateStore(cfg.StateTTL)

	base := []Option{
		WithCatalog(testCatalog(t)),
		WithExchanger(env.exchanger),
		WithCredentialStore(env.creds),
		WithAuthStateStore(env.states),
		WithLifecycleHooks(env.hooks),
	}
	service, err := NewService(cfg, append(base, options...)...)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	service.now = env.clock.Now
	env.service = service
	return env
}

// connect drives the full authorization flow and returns the stored
// credential.
func (env *testServiceEnv) connect(t *testing.T, userID, providerID string) Credential {
	t.Helper()
	ctx := context.Background()
	begin, err := env.service.BeginAuthorization(ctx, BeginAuthorizationRequest{
		UserID:     userID,
		ProviderID: providerID,
	})
	if err != nil {
		t.Fatalf("begin authorization: %v", err)
	}
	if _, err := env.service.CompleteAuthorization(ctx, CompleteAuthorizationRequest{
		ProviderID: providerID,
		Code:       fmt.Sprintf("code-%s-%s", userID, providerID),
		State:      begin.State,
	}); err != nil {
		t.Fatalf("complete authorization: %v", err)
	}
	cred, err := env.creds.Get(ctx, userID, providerID)
	if err != nil {
		t.Fatalf("load stored credential: %v", err)
	}
	return cred
}
