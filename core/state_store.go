package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"
)

const authorizationStateEntropyBytes = 32

// generateAuthorizationState returns an unguessable single-use state value.
func generateAuthorizationState() (string, error) {
	buf := make([]byte, authorizationStateEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("core: generate authorization state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MemoryAuthStateStore keeps authorization state records in process
// memory. Suitable for tests and single-node deployments.
type MemoryAuthStateStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	records map[string]AuthorizationState
}

func NewMemoryAuthStateStore(ttl time.Duration) *MemoryAuthStateStore {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &MemoryAuthStateStore{
		ttl:     ttl,
		records: map[string]AuthorizationState{},
	}
}

func (s *MemoryAuthStateStore) Save(_ context.Context, record AuthorizationState) error {
	if s == nil {
		return fmt.Errorf("core: auth state store is nil")
	}
	record.State = strings.TrimSpace(record.State)
	if record.State == "" {
		return fmt.Errorf("core: authorization state value is required")
	}
	if record.ExpiresAt.IsZero() {
		base := record.CreatedAt
		if base.IsZero() {
			base = time.Now()
			record.CreatedAt = base
		}
		record.ExpiresAt = base.Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.State] = record
	return nil
}

// Consume removes the record before checking expiry against now so the
// same state can never be redeemed twice.
func (s *MemoryAuthStateStore) Consume(_ context.Context, state string, now time.Time) (AuthorizationState, error) {
	if s == nil {
		return AuthorizationState{}, fmt.Errorf("core: auth state store is nil")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return AuthorizationState{}, fmt.Errorf("core: authorization state value is required")
	}

	s.mu.Lock()
	record, ok := s.records[state]
	if ok {
		delete(s.records, state)
	}
	s.mu.Unlock()

	if !ok {
		return AuthorizationState{}, ErrStateNotFound
	}
	if record.Expired(now) {
		return AuthorizationState{}, ErrStateNotFound
	}
	return record, nil
}

func (s *MemoryAuthStateStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("core: auth state store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for state, record := range s.records {
		if record.Expired(now) {
			delete(s.records, state)
			purged++
		}
	}
	return purged, nil
}

var _ AuthStateStore = (*MemoryAuthStateStore)(nil)
