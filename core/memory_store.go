package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type credentialKey struct {
	userID     string
	providerID string
}

// MemoryCredentialStore keeps credentials in process memory. Suitable for
// tests and single-node deployments.
type MemoryCredentialStore struct {
	mu          sync.Mutex
	credentials map[credentialKey]Credential
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		credentials: map[credentialKey]Credential{},
	}
}

func (s *MemoryCredentialStore) Get(_ context.Context, userID, providerID string) (Credential, error) {
	if s == nil {
		return Credential{}, fmt.Errorf("core: credential store is nil")
	}
	key, err := newCredentialKey(userID, providerID)
	if err != nil {
		return Credential{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.credentials[key]
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return cloneCredential(cred), nil
}

func (s *MemoryCredentialStore) Save(_ context.Context, cred Credential) (Credential, error) {
	if s == nil {
		return Credential{}, fmt.Errorf("core: credential store is nil")
	}
	key, err := newCredentialKey(cred.UserID, cred.ProviderID)
	if err != nil {
		return Credential{}, err
	}
	cred.UserID = key.userID
	cred.ProviderID = key.providerID

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.credentials[key]; ok {
		cred.CreatedAt = existing.CreatedAt
	} else if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now
	s.credentials[key] = cloneCredential(cred)
	return cloneCredential(cred), nil
}

func (s *MemoryCredentialStore) SetRefreshError(_ context.Context, userID, providerID string, kind RefreshErrorKind) error {
	if s == nil {
		return fmt.Errorf("core: credential store is nil")
	}
	key, err := newCredentialKey(userID, providerID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.credentials[key]
	if !ok {
		return ErrCredentialNotFound
	}
	cred.LastRefreshError = kind
	cred.UpdatedAt = time.Now()
	s.credentials[key] = cred
	return nil
}

func (s *MemoryCredentialStore) Delete(_ context.Context, userID, providerID string) error {
	if s == nil {
		return fmt.Errorf("core: credential store is nil")
	}
	key, err := newCredentialKey(userID, providerID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.credentials, key)
	return nil
}

func (s *MemoryCredentialStore) ListExpiring(_ context.Context, before time.Time) ([]Credential, error) {
	if s == nil {
		return nil, fmt.Errorf("core: credential store is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Credential, 0)
	for _, cred := range s.credentials {
		if cred.ExpiresAt == nil || cred.ExpiresAt.After(before) {
			continue
		}
		if cred.LastRefreshError.RequiresReconnection() {
			continue
		}
		out = append(out, cloneCredential(cred))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].ProviderID < out[j].ProviderID
	})
	return out, nil
}

func newCredentialKey(userID, providerID string) (credentialKey, error) {
	key := credentialKey{
		userID:     strings.TrimSpace(userID),
		providerID: strings.TrimSpace(providerID),
	}
	if key.userID == "" {
		return credentialKey{}, fmt.Errorf("core: user id is required")
	}
	if key.providerID == "" {
		return credentialKey{}, fmt.Errorf("core: provider id is required")
	}
	return key, nil
}

var _ CredentialStore = (*MemoryCredentialStore)(nil)
