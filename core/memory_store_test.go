package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCredentialStoreSaveAndGet(t *testing.T) {
	store := NewMemoryCredentialStore()
	ctx := context.Background()

	expires := time.Now().Add(time.Hour)
	saved, err := store.Save(ctx, Credential{
		UserID:       " user_1 ",
		ProviderID:   " acme ",
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    &expires,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.UserID != "user_1" || saved.ProviderID != "acme" {
		t.Fatalf("expected trimmed identifiers, got %q/%q", saved.UserID, saved.ProviderID)
	}
	if saved.CreatedAt.IsZero() || saved.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}

	got, err := store.Get(ctx, "user_1", "acme")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AccessToken != "access" {
		t.Fatalf("unexpected token %q", got.AccessToken)
	}

	// Mutating the returned copy must not touch the stored record.
	got.AccessToken = "tampered"
	again, err := store.Get(ctx, "user_1", "acme")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if again.AccessToken != "access" {
		t.Fatalf("store returned a shared reference")
	}
}

func TestMemoryCredentialStoreSavePreservesCreatedAt(t *testing.T) {
	store := NewMemoryCredentialStore()
	ctx := context.Background()

	first, err := store.Save(ctx, Credential{UserID: "u", ProviderID: "p", AccessToken: "a"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	second, err := store.Save(ctx, Credential{UserID: "u", ProviderID: "p", AccessToken: "b"})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("expected created_at to survive upsert")
	}
}

func TestMemoryCredentialStoreGetMissing(t *testing.T) {
	store := NewMemoryCredentialStore()
	if _, err := store.Get(context.Background(), "u", "p"); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("expected credential not found, got %v", err)
	}
}

func TestMemoryCredentialStoreSetRefreshError(t *testing.T) {
	store := NewMemoryCredentialStore()
	ctx := context.Background()

	if err := store.SetRefreshError(ctx, "u", "p", RefreshErrorTransient); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("expected credential not found, got %v", err)
	}

	if _, err := store.Save(ctx, Credential{UserID: "u", ProviderID: "p", AccessToken: "a"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SetRefreshError(ctx, "u", "p", RefreshErrorGrantRevoked); err != nil {
		t.Fatalf("set refresh error: %v", err)
	}
	got, err := store.Get(ctx, "u", "p")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastRefreshError != RefreshErrorGrantRevoked {
		t.Fatalf("expected persisted flag, got %q", got.LastRefreshError)
	}
}

func TestMemoryCredentialStoreListExpiring(t *testing.T) {
	store := NewMemoryCredentialStore()
	ctx := context.Background()
	now := time.Now()

	soon := now.Add(time.Minute)
	later := now.Add(time.Hour)
	save := func(userID, providerID string, expires *time.Time, kind RefreshErrorKind) {
		t.Helper()
		if _, err := store.Save(ctx, Credential{
			UserID:      userID,
			ProviderID:  providerID,
			AccessToken: "a",
			ExpiresAt:   expires,
		}); err != nil {
			t.Fatalf("save %s/%s: %v", userID, providerID, err)
		}
		if kind != RefreshErrorNone {
			if err := store.SetRefreshError(ctx, userID, providerID, kind); err != nil {
				t.Fatalf("flag %s/%s: %v", userID, providerID, err)
			}
		}
	}

	save("b_user", "acme", &soon, RefreshErrorNone)
	save("a_user", "acme", &soon, RefreshErrorNone)
	save("a_user", "zeta", &soon, RefreshErrorNone)
	save("c_user", "acme", &later, RefreshErrorNone)
	save("d_user", "acme", nil, RefreshErrorNone)
	save("e_user", "acme", &soon, RefreshErrorGrantRevoked)

	expiring, err := store.ListExpiring(ctx, now.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("list expiring: %v", err)
	}
	if len(expiring) != 3 {
		t.Fatalf("expected 3 expiring credentials, got %d", len(expiring))
	}
	wantOrder := []string{"a_user/acme", "a_user/zeta", "b_user/acme"}
	for i, cred := range expiring {
		if got := cred.UserID + "/" + cred.ProviderID; got != wantOrder[i] {
			t.Fatalf("expected %q at position %d, got %q", wantOrder[i], i, got)
		}
	}
}

func TestMemoryCredentialStoreDelete(t *testing.T) {
	store := NewMemoryCredentialStore()
	ctx := context.Background()

	if _, err := store.Save(ctx, Credential{UserID: "u", ProviderID: "p", AccessToken: "a"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "u", "p"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "u", "p"); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("expected credential not found after delete, got %v", err)
	}
	// Deleting an absent credential is not an error.
	if err := store.Delete(ctx, "u", "p"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestNewCredentialKeyValidation(t *testing.T) {
	if _, err := newCredentialKey("", "p"); err == nil {
		t.Fatalf("expected user id error")
	}
	if _, err := newCredentialKey("u", "  "); err == nil {
		t.Fatalf("expected provider id error")
	}
	key, err := newCredentialKey(" u ", " p ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.userID != "u" || key.providerID != "p" {
		t.Fatalf("expected trimmed key, got %+v", key)
	}
}
