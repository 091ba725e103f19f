package core

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestBeginAuthorizationBuildsProviderURL(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	out, err := env.service.BeginAuthorization(ctx, BeginAuthorizationRequest{
		UserID:     testUserID,
		ProviderID: testProviderID,
	})
	if err != nil {
		t.Fatalf("begin authorization: %v", err)
	}
	if out.State == "" {
		t.Fatalf("expected a state value")
	}

	parsed, err := url.Parse(out.AuthorizationURL)
	if err != nil {
		t.Fatalf("parse authorization url: %v", err)
	}
	query := parsed.Query()
	if got := query.Get("response_type"); got != "code" {
		t.Fatalf("expected response_type=code, got %q", got)
	}
	if got := query.Get("client_id"); got != "acme-client" {
		t.Fatalf("expected catalog client id, got %q", got)
	}
	wantRedirect := testCallbackBase + "/" + testProviderID + "/callback"
	if got := query.Get("redirect_uri"); got != wantRedirect {
		t.Fatalf("expected redirect uri %q, got %q", wantRedirect, got)
	}
	if got := query.Get("scope"); got != "read write" {
		t.Fatalf("expected configured scope, got %q", got)
	}
	if got := query.Get("state"); got != out.State {
		t.Fatalf("expected state to round trip into the url")
	}
}

func TestBeginAuthorizationStateValuesAreUnique(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		out, err := env.service.BeginAuthorization(ctx, BeginAuthorizationRequest{
			UserID:     testUserID,
			ProviderID: testProviderID,
		})
		if err != nil {
			t.Fatalf("begin authorization: %v", err)
		}
		if seen[out.State] {
			t.Fatalf("state value repeated after %d iterations", i)
		}
		seen[out.State] = true
	}
}

func TestBeginAuthorizationUnknownProvider(t *testing.T) {
	env := newTestService(t)

	_, err := env.service.BeginAuthorization(context.Background(), BeginAuthorizationRequest{
		UserID:     testUserID,
		ProviderID: "nope",
	})
	if !IsProviderNotFound(err) {
		t.Fatalf("expected provider not found, got %v", err)
	}
}

func TestBeginAuthorizationRequiresUser(t *testing.T) {
	env := newTestService(t)

	_, err := env.service.BeginAuthorization(context.Background(), BeginAuthorizationRequest{
		ProviderID: testProviderID,
	})
	if err == nil || !strings.Contains(err.Error(), "user id") {
		t.Fatalf("expected user id error, got %v", err)
	}
}

func TestCompleteAuthorizationStoresCredential(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	begin, err := env.service.BeginAuthorization(ctx, BeginAuthorizationRequest{
		UserID:     testUserID,
		ProviderID: testProviderID,
		ReturnURL:  "https://app.example.com/done",
	})
	if err != nil {
		t.Fatalf("begin authorization: %v", err)
	}

	completion, err := env.service.CompleteAuthorization(ctx, CompleteAuthorizationRequest{
		ProviderID: testProviderID,
		Code:       "auth-code",
		State:      begin.State,
	})
	if err != nil {
		t.Fatalf("complete authorization: %v", err)
	}
	if completion.UserID != testUserID || completion.ProviderID != testProviderID {
		t.Fatalf("unexpected completion identity: %+v", completion)
	}
	if completion.ReturnURL != "https://app.example.com/done" {
		t.Fatalf("expected requested return url, got %q", completion.ReturnURL)
	}

	cred, err := env.creds.Get(ctx, testUserID, testProviderID)
	if err != nil {
		t.Fatalf("load credential: %v", err)
	}
	if cred.AccessToken != "access-auth-code" {
		t.Fatalf("unexpected access token %q", cred.AccessToken)
	}
	if cred.RefreshToken != "refresh-auth-code" {
		t.Fatalf("unexpected refresh token %q", cred.RefreshToken)
	}
	if cred.ExpiresAt == nil {
		t.Fatalf("expected expiry from expires_in")
	}

	env.hooks.mu.Lock()
	connected := len(env.hooks.connected)
	env.hooks.mu.Unlock()
	if connected != 1 {
		t.Fatalf("expected one on_connected hook call, got %d", connected)
	}
}

func TestCompleteAuthorizationStateIsSingleUse(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	begin, err := env.service.BeginAuthorization(ctx, BeginAuthorizationRequest{
		UserID:     testUserID,
		ProviderID: testProviderID,
	})
	if err != nil {
		t.Fatalf("begin authorization: %v", err)
	}

	if _, err := env.service.CompleteAuthorization(ctx, CompleteAuthorizationRequest{
		ProviderID: testProviderID,
		Code:       "auth-code",
		State:      begin.State,
	}); err != nil {
		t.Fatalf("first completion: %v", err)
	}

	_, err = env.service.CompleteAuthorization(ctx, CompleteAuthorizationRequest{
		ProviderID: testProviderID,
		Code:       "auth-code-2",
		State:      begin.State,
	})
	if !IsStateInvalid(err) {
		t.Fatalf("expected state invalid on replay, got %v", err)
	}

	exchange, _, _ := env.exchanger.counts()
	if exchange != 1 {
		t.Fatalf("expected replay to skip the token exchange, got %d calls", exchange)
	}
}

func TestCompleteAuthorizationRejectsUnknownState(t *testing.T) {
	env := newTestService(t)

	_, err := env.service.CompleteAuthorization(context.Background(), CompleteAuthorizationRequest{
		ProviderID: testProviderID,
		Code:       "auth-code",
		State:      "forged",
	})
	if !IsStateInvalid(err) {
		t.Fatalf("expected state invalid, got %v", err)
	}
}

func TestCompleteAuthorizationRejectsProviderMismatch(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	begin, err := env.service.BeginAuthorization(ctx, BeginAuthorizationRequest{
		UserID:     testUserID,
		ProviderID: testProviderID,
	})
	if err != nil {
		t.Fatalf("begin authorization: %v", err)
	}

	_, err = env.service.CompleteAuthorization(ctx, CompleteAuthorizationRequest{
		ProviderID: testNoRevokeID,
		Code:       "auth-code",
		State:      begin.State,
	})
	if !IsStateInvalid(err) {
		t.Fatalf("expected state invalid for mismatched provider, got %v", err)
	}
}

func TestCompleteAuthorizationRejectsExpiredState(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	begin, err := env.service.BeginAuthorization(ctx, BeginAuthorizationRequest{
		UserID:     testUserID,
		ProviderID: testProviderID,
	})
	if err != nil {
		t.Fatalf("begin authorization: %v", err)
	}

	env.clock.Advance(testConfig().StateTTL + time.Minute)

	_, err = env.service.CompleteAuthorization(ctx, CompleteAuthorizationRequest{
		ProviderID: testProviderID,
		Code:       "auth-code",
		State:      begin.State,
	})
	if !IsStateInvalid(err) {
		t.Fatalf("expected state invalid after ttl, got %v", err)
	}
}

func TestCompleteAuthorizationRequiresCode(t *testing.T) {
	env := newTestService(t)

	_, err := env.service.CompleteAuthorization(context.Background(), CompleteAuthorizationRequest{
		ProviderID: testProviderID,
		State:      "some-state",
	})
	if err == nil || !strings.Contains(err.Error(), "authorization code") {
		t.Fatalf("expected code error, got %v", err)
	}
}

func TestCompleteAuthorizationExchangeFailure(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	env.exchanger.exchangeErr = errors.New("provider rejected the authorization code")

	begin, err := env.service.BeginAuthorization(ctx, BeginAuthorizationRequest{
		UserID:     testUserID,
		ProviderID: testProviderID,
	})
	if err != nil {
		t.Fatalf("begin authorization: %v", err)
	}

	_, err = env.service.CompleteAuthorization(ctx, CompleteAuthorizationRequest{
		ProviderID: testProviderID,
		Code:       "auth-code",
		State:      begin.State,
	})
	if !HasTextCode(err, ConnectorErrorTokenExchangeFailed) {
		t.Fatalf("expected token exchange failure, got %v", err)
	}
	if _, getErr := env.creds.Get(ctx, testUserID, testProviderID); getErr == nil {
		t.Fatalf("expected no credential after failed exchange")
	}
}

func TestReauthorizationKeepsRefreshTokenWhenOmitted(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	env.connect(t, testUserID, testProviderID)
	first, err := env.creds.Get(ctx, testUserID, testProviderID)
	if err != nil {
		t.Fatalf("load credential: %v", err)
	}
	if !first.HasRefreshToken() {
		t.Fatalf("expected refresh token after first connect")
	}

	// Second authorization returns no refresh token.
	env.exchanger.mu.Lock()
	env.exchanger.exchangeGrant = TokenGrant{AccessToken: "second-access", ExpiresIn: 3600}
	env.exchanger.mu.Unlock()

	begin, err := env.service.BeginAuthorization(ctx, BeginAuthorizationRequest{
		UserID:     testUserID,
		ProviderID: testProviderID,
	})
	if err != nil {
		t.Fatalf("begin authorization: %v", err)
	}
	if _, err := env.service.CompleteAuthorization(ctx, CompleteAuthorizationRequest{
		ProviderID: testProviderID,
		Code:       "auth-code-2",
		State:      begin.State,
	}); err != nil {
		t.Fatalf("second completion: %v", err)
	}

	cred, err := env.creds.Get(ctx, testUserID, testProviderID)
	if err != nil {
		t.Fatalf("load credential: %v", err)
	}
	if cred.AccessToken != "second-access" {
		t.Fatalf("expected new access token, got %q", cred.AccessToken)
	}
	if cred.RefreshToken != first.RefreshToken {
		t.Fatalf("expected retained refresh token, got %q", cred.RefreshToken)
	}
}
