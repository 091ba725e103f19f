package query

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/twjackysu/go-connectors/core"
)

type stubStatusReader struct {
	statusFn    func(ctx context.Context, userID string) ([]core.ConnectorStatus, error)
	statusForFn func(ctx context.Context, userID, providerID string) (core.ConnectorStatus, error)
}

func (s stubStatusReader) Status(ctx context.Context, userID string) ([]core.ConnectorStatus, error) {
	if s.statusFn == nil {
		return nil, nil
	}
	return s.statusFn(ctx, userID)
}

func (s stubStatusReader) StatusFor(ctx context.Context, userID, providerID string) (core.ConnectorStatus, error) {
	if s.statusForFn == nil {
		return core.ConnectorStatus{}, nil
	}
	return s.statusForFn(ctx, userID, providerID)
}

type stubCatalogReader struct {
	catalog *core.Catalog
}

func (s stubCatalogReader) Catalog() *core.Catalog {
	return s.catalog
}

func newQueryTestCatalog(t *testing.T) *core.Catalog {
	t.Helper()
	catalog, err := core.NewCatalog([]core.ProviderDefinition{
		{
			ID:           "acme",
			DisplayName:  "Acme",
			ClientID:     "acme-client",
			ClientSecret: "acme-secret",
			AuthURL:      "https://auth.acme.example.com/authorize",
			TokenURL:     "https://auth.acme.example.com/token",
			Scope:        "read write",
		},
		{
			ID:           "basic",
			DisplayName:  "Basic",
			ClientID:     "basic-client",
			ClientSecret: "basic-secret",
			AuthURL:      "https://auth.basic.example.com/authorize",
			TokenURL:     "https://auth.basic.example.com/token",
		},
	})
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	return catalog
}

func TestStatusQuery_DelegatesToReader(t *testing.T) {
	expected := []core.ConnectorStatus{
		{ProviderID: "acme", Connected: true},
		{ProviderID: "basic", Connected: false},
	}
	called := false

	reader := stubStatusReader{
		statusFn: func(_ context.Context, userID string) ([]core.ConnectorStatus, error) {
			called = true
			if userID != "user_1" {
				t.Fatalf("unexpected user id: %q", userID)
			}
			return expected, nil
		},
	}

	q := NewStatusQuery(reader)
	statuses, err := q.Query(context.Background(), StatusMessage{UserID: "user_1"})
	if err != nil {
		t.Fatalf("query status: %v", err)
	}
	if !called {
		t.Fatalf("expected status reader invocation")
	}
	if len(statuses) != 2 || statuses[0].ProviderID != "acme" {
		t.Fatalf("unexpected statuses: %#v", statuses)
	}
}

func TestStatusQuery_PropagatesReaderError(t *testing.T) {
	boom := errors.New("store unavailable")
	reader := stubStatusReader{
		statusFn: func(_ context.Context, _ string) ([]core.ConnectorStatus, error) {
			return nil, boom
		},
	}

	q := NewStatusQuery(reader)
	if _, err := q.Query(context.Background(), StatusMessage{UserID: "user_1"}); !errors.Is(err, boom) {
		t.Fatalf("expected reader error to propagate, got %v", err)
	}
}

func TestProviderStatusQuery_DelegatesToReader(t *testing.T) {
	reader := stubStatusReader{
		statusForFn: func(_ context.Context, userID, providerID string) (core.ConnectorStatus, error) {
			if userID != "user_1" || providerID != "acme" {
				t.Fatalf("unexpected lookup: %q %q", userID, providerID)
			}
			return core.ConnectorStatus{ProviderID: "acme", Connected: true}, nil
		},
	}

	q := NewProviderStatusQuery(reader)
	status, err := q.Query(context.Background(), ProviderStatusMessage{UserID: "user_1", ProviderID: "acme"})
	if err != nil {
		t.Fatalf("query provider status: %v", err)
	}
	if status.ProviderID != "acme" || !status.Connected {
		t.Fatalf("unexpected status: %#v", status)
	}
}

func TestListProvidersQuery_StripsClientSecrets(t *testing.T) {
	q := NewListProvidersQuery(stubCatalogReader{catalog: newQueryTestCatalog(t)})

	definitions, err := q.Query(context.Background(), ListProvidersMessage{})
	if err != nil {
		t.Fatalf("query providers: %v", err)
	}
	if len(definitions) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(definitions))
	}
	for _, def := range definitions {
		if def.ClientSecret != "" {
			t.Fatalf("provider %s leaked its client secret", def.ID)
		}
		if def.ClientID == "" {
			t.Fatalf("provider %s should keep its client id", def.ID)
		}
	}
}

func TestListProvidersQuery_MissingCatalog(t *testing.T) {
	q := NewListProvidersQuery(stubCatalogReader{})
	if _, err := q.Query(context.Background(), ListProvidersMessage{}); err == nil {
		t.Fatalf("expected error for missing catalog")
	}
}

func TestQueries_NilReaderReturnsRichError(t *testing.T) {
	var statusQuery *StatusQuery
	_, err := statusQuery.Query(context.Background(), StatusMessage{UserID: "user_1"})
	if err == nil {
		t.Fatalf("expected dependency error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}

	if _, err := NewProviderStatusQuery(nil).Query(context.Background(), ProviderStatusMessage{UserID: "u", ProviderID: "p"}); err == nil {
		t.Fatalf("expected dependency error for nil provider status reader")
	}
	if _, err := NewListProvidersQuery(nil).Query(context.Background(), ListProvidersMessage{}); err == nil {
		t.Fatalf("expected dependency error for nil catalog reader")
	}
}

func TestQueryMessages_Validate(t *testing.T) {
	if err := (StatusMessage{UserID: "user_1"}).Validate(); err != nil {
		t.Fatalf("valid status message rejected: %v", err)
	}
	if err := (StatusMessage{}).Validate(); err == nil {
		t.Fatalf("expected error for missing user id")
	}

	err := (ProviderStatusMessage{UserID: "user_1"}).Validate()
	if err == nil {
		t.Fatalf("expected error for missing provider id")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != core.ConnectorErrorBadInput {
		t.Fatalf("expected bad input text code, got %q", rich.TextCode)
	}

	if err := (ListProvidersMessage{}).Validate(); err != nil {
		t.Fatalf("list providers message should always validate: %v", err)
	}
}
