package sqlstore

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/twjackysu/go-connectors/core"
)

type credentialRecord struct {
	bun.BaseModel `bun:"table:connector_credentials,alias:cc"`

	ID               string     `bun:"id,pk"`
	UserID           string     `bun:"user_id,notnull"`
	ProviderID       string     `bun:"provider_id,notnull"`
	AccessToken      string     `bun:"access_token,notnull"`
	RefreshToken     string     `bun:"refresh_token,notnull"`
	GrantedScope     string     `bun:"granted_scope,notnull"`
	ExpiresAt        *time.Time `bun:"expires_at,nullzero"`
	LastRefreshError string     `bun:"last_refresh_error,notnull"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newCredentialRecord(cred core.Credential, now time.Time) *credentialRecord {
	record := &credentialRecord{
		ID:               uuid.NewString(),
		UserID:           strings.TrimSpace(cred.UserID),
		ProviderID:       strings.TrimSpace(cred.ProviderID),
		AccessToken:      cred.AccessToken,
		RefreshToken:     cred.RefreshToken,
		GrantedScope:     cred.GrantedScope,
		LastRefreshError: string(cred.LastRefreshError),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if cred.ExpiresAt != nil {
		expires := cred.ExpiresAt.UTC()
		record.ExpiresAt = &expires
	}
	return record
}

func (r *credentialRecord) toDomain() core.Credential {
	if r == nil {
		return core.Credential{}
	}
	cred := core.Credential{
		UserID:           r.UserID,
		ProviderID:       r.ProviderID,
		AccessToken:      r.AccessToken,
		RefreshToken:     r.RefreshToken,
		GrantedScope:     r.GrantedScope,
		LastRefreshError: core.RefreshErrorKind(r.LastRefreshError),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.ExpiresAt != nil {
		expires := *r.ExpiresAt
		cred.ExpiresAt = &expires
	}
	return cred
}

type authStateRecord struct {
	bun.BaseModel `bun:"table:connector_auth_states,alias:cas"`

	ID         string    `bun:"id,pk"`
	State      string    `bun:"state,notnull,unique"`
	UserID     string    `bun:"user_id,notnull"`
	ProviderID string    `bun:"provider_id,notnull"`
	ReturnURL  string    `bun:"return_url,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	ExpiresAt  time.Time `bun:"expires_at,notnull"`
}

func newAuthStateRecord(record core.AuthorizationState) *authStateRecord {
	return &authStateRecord{
		ID:         uuid.NewString(),
		State:      strings.TrimSpace(record.State),
		UserID:     strings.TrimSpace(record.UserID),
		ProviderID: strings.TrimSpace(record.ProviderID),
		ReturnURL:  record.ReturnURL,
		CreatedAt:  record.CreatedAt.UTC(),
		ExpiresAt:  record.ExpiresAt.UTC(),
	}
}

func (r *authStateRecord) toDomain() core.AuthorizationState {
	if r == nil {
		return core.AuthorizationState{}
	}
	return core.AuthorizationState{
		State:      r.State,
		UserID:     r.UserID,
		ProviderID: r.ProviderID,
		ReturnURL:  r.ReturnURL,
		CreatedAt:  r.CreatedAt,
		ExpiresAt:  r.ExpiresAt,
	}
}
