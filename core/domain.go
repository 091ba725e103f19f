package core

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrCredentialNotFound is returned by credential stores when no
	// credential exists for a user/provider pair.
	ErrCredentialNotFound = errors.New("core: credential not found")

	// ErrStateNotFound is returned by state stores when a state value is
	// unknown or was already consumed.
	ErrStateNotFound = errors.New("core: authorization state not found")
)

// RefreshErrorKind records why the last refresh attempt for a credential
// failed. It is persisted alongside the credential so status reads and
// later refresh attempts can act on it without calling the provider.
type RefreshErrorKind string

const (
	RefreshErrorNone                RefreshErrorKind = ""
	RefreshErrorGrantRevoked        RefreshErrorKind = "grant_revoked"
	RefreshErrorRefreshNotSupported RefreshErrorKind = "refresh_not_supported"
	RefreshErrorTransient           RefreshErrorKind = "transient_failure"
)

// RequiresReconnection reports whether the recorded failure can only be
// resolved by the user authorizing again.
func (k RefreshErrorKind) RequiresReconnection() bool {
	return k == RefreshErrorGrantRevoked || k == RefreshErrorRefreshNotSupported
}

// Credential is the stored token material for one user/provider pair.
// Access and refresh tokens never appear in status projections; callers
// that need the raw access token go through EnsureFresh.
type Credential struct {
	UserID           string
	ProviderID       string
	AccessToken      string
	RefreshToken     string
	GrantedScope     string
	ExpiresAt        *time.Time
	LastRefreshError RefreshErrorKind
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasRefreshToken reports whether the credential carries a refresh token.
func (c Credential) HasRefreshToken() bool {
	return strings.TrimSpace(c.RefreshToken) != ""
}

// ExpiresWithin reports whether the credential expires before now+window.
// Credentials without an expiry never expire.
func (c Credential) ExpiresWithin(now time.Time, window time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !c.ExpiresAt.After(now.Add(window))
}

func cloneCredential(c Credential) Credential {
	out := c
	if c.ExpiresAt != nil {
		expires := *c.ExpiresAt
		out.ExpiresAt = &expires
	}
	return out
}

// AuthorizationState is the single-use record that binds an in-flight
// authorization redirect to the user who started it.
type AuthorizationState struct {
	State      string
	UserID     string
	ProviderID string
	ReturnURL  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the record is past its expiry at the given time.
func (r AuthorizationState) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// ConnectorStatus is a non-sensitive projection of a user's connection to
// one catalog provider. It never carries token material.
type ConnectorStatus struct {
	ProviderID           string     `json:"provider"`
	DisplayName          string     `json:"providerDisplayName"`
	Connected            bool       `json:"isConnected"`
	Services             []string   `json:"services,omitempty"`
	ExpiresAt            *time.Time `json:"expiresAt,omitempty"`
	RequiresReconnection bool       `json:"requiresReconnection"`
}
