package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGenerateAuthorizationStateIsURLSafe(t *testing.T) {
	state, err := generateAuthorizationState()
	if err != nil {
		t.Fatalf("generate state: %v", err)
	}
	if len(state) < 40 {
		t.Fatalf("expected at least 32 bytes of entropy, got %d chars", len(state))
	}
	for _, r := range state {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			t.Fatalf("state contains non url-safe character %q", r)
		}
	}
}

func TestMemoryAuthStateStoreConsumeIsSingleUse(t *testing.T) {
	store := NewMemoryAuthStateStore(time.Minute)
	ctx := context.Background()
	now := time.Now()

	record := AuthorizationState{
		State:      "state-1",
		UserID:     "u",
		ProviderID: "p",
		ReturnURL:  "https://app.example.com/done",
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Minute),
	}
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Consume(ctx, "state-1", now)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got.UserID != "u" || got.ReturnURL != record.ReturnURL {
		t.Fatalf("unexpected record %+v", got)
	}

	if _, err := store.Consume(ctx, "state-1", now); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("expected not found on second consume, got %v", err)
	}
}

func TestMemoryAuthStateStoreConsumeExpired(t *testing.T) {
	store := NewMemoryAuthStateStore(time.Minute)
	ctx := context.Background()
	// Expiry is judged against the caller's clock, not the wall clock.
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	if err := store.Save(ctx, AuthorizationState{
		State:     "stale",
		CreatedAt: base,
		ExpiresAt: base.Add(time.Minute),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Consume(ctx, "stale", base.Add(time.Hour)); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("expected not found for expired state, got %v", err)
	}
	// Expired consume still removes the record.
	if _, err := store.Consume(ctx, "stale", base); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := store.Save(ctx, AuthorizationState{
		State:     "still-good",
		CreatedAt: base,
		ExpiresAt: base.Add(time.Minute),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Consume(ctx, "still-good", base.Add(30*time.Second)); err != nil {
		t.Fatalf("expected live state to be consumable, got %v", err)
	}
}

func TestMemoryAuthStateStoreSaveFillsExpiry(t *testing.T) {
	store := NewMemoryAuthStateStore(time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, AuthorizationState{State: "fresh"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Consume(ctx, "fresh", time.Now())
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got.ExpiresAt.IsZero() {
		t.Fatalf("expected default expiry from ttl")
	}
}

func TestMemoryAuthStateStoreRejectsBlankState(t *testing.T) {
	store := NewMemoryAuthStateStore(time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, AuthorizationState{State: "  "}); err == nil {
		t.Fatalf("expected error for blank state")
	}
	if _, err := store.Consume(ctx, "", time.Now()); err == nil {
		t.Fatalf("expected error for blank consume")
	}
}

func TestMemoryAuthStateStorePurgeExpired(t *testing.T) {
	store := NewMemoryAuthStateStore(time.Minute)
	ctx := context.Background()
	now := time.Now()

	for _, record := range []AuthorizationState{
		{State: "live", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
		{State: "dead-1", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{State: "dead-2", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
	} {
		if err := store.Save(ctx, record); err != nil {
			t.Fatalf("save %q: %v", record.State, err)
		}
	}

	purged, err := store.PurgeExpired(ctx, now)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 2 {
		t.Fatalf("expected 2 purged, got %d", purged)
	}
	if _, err := store.Consume(ctx, "live", now); err != nil {
		t.Fatalf("expected live record to survive, got %v", err)
	}
}
