package core

import (
	"strings"
	"testing"
)

func TestNewCatalogPreservesDeclarationOrder(t *testing.T) {
	catalog, err := NewCatalog(testDefinitions())
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	if catalog.Len() != 2 {
		t.Fatalf("expected 2 providers, got %d", catalog.Len())
	}
	list := catalog.List()
	if list[0].ID != testProviderID || list[1].ID != testNoRevokeID {
		t.Fatalf("expected declaration order, got %q then %q", list[0].ID, list[1].ID)
	}
}

func TestCatalogGetTrimsLookup(t *testing.T) {
	catalog := testCatalog(t)
	definition, ok := catalog.Get("  acme  ")
	if !ok {
		t.Fatalf("expected provider lookup to trim whitespace")
	}
	if definition.ID != testProviderID {
		t.Fatalf("unexpected provider %q", definition.ID)
	}
	if _, ok := catalog.Get("missing"); ok {
		t.Fatalf("expected lookup miss for unknown provider")
	}
}

func TestNewCatalogRejectsDuplicateIDs(t *testing.T) {
	defs := testDefinitions()
	defs = append(defs, defs[0])
	if _, err := NewCatalog(defs); err == nil {
		t.Fatalf("expected duplicate id rejection")
	}
}

func TestProviderDefinitionValidate(t *testing.T) {
	base := testDefinitions()[0]

	cases := []struct {
		name    string
		mutate  func(*ProviderDefinition)
		wantErr string
	}{
		{"valid", func(*ProviderDefinition) {}, ""},
		{"missing id", func(d *ProviderDefinition) { d.ID = " " }, "id"},
		{"missing client id", func(d *ProviderDefinition) { d.ClientID = "" }, "client_id"},
		{"missing client secret", func(d *ProviderDefinition) { d.ClientSecret = "" }, "client_secret"},
		{"missing auth url", func(d *ProviderDefinition) { d.AuthURL = "" }, "auth_url"},
		{"relative token url", func(d *ProviderDefinition) { d.TokenURL = "/token" }, "token_url"},
		{"bad revoke url", func(d *ProviderDefinition) { d.RevokeURL = "not a url" }, "revoke_url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			definition := base
			tc.mutate(&definition)
			err := definition.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid definition, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected %q error, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestSupportsRevocation(t *testing.T) {
	defs := testDefinitions()
	if !defs[0].SupportsRevocation() {
		t.Fatalf("expected revocation support with revoke_url")
	}
	if defs[1].SupportsRevocation() {
		t.Fatalf("expected no revocation support without revoke_url")
	}
}

func TestNilCatalogIsSafe(t *testing.T) {
	var catalog *Catalog
	if catalog.Len() != 0 {
		t.Fatalf("expected zero length")
	}
	if list := catalog.List(); len(list) != 0 {
		t.Fatalf("expected empty list")
	}
	if _, ok := catalog.Get("acme"); ok {
		t.Fatalf("expected lookup miss on nil catalog")
	}
}
