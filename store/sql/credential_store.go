package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/twjackysu/go-connectors/core"
)

// CredentialStore persists connector credentials. Each user/provider pair
// holds at most one row; Save replaces the stored tokens in place.
type CredentialStore struct {
	db   *bun.DB
	repo repository.Repository[*credentialRecord]
}

func (s *CredentialStore) Get(ctx context.Context, userID, providerID string) (core.Credential, error) {
	if s == nil || s.repo == nil {
		return core.Credential{}, fmt.Errorf("sqlstore: credential store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		repository.SelectBy("provider_id", "=", strings.TrimSpace(providerID)),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Credential{}, err
	}
	if len(records) == 0 {
		return core.Credential{}, core.ErrCredentialNotFound
	}
	return records[0].toDomain(), nil
}

func (s *CredentialStore) Save(ctx context.Context, cred core.Credential) (core.Credential, error) {
	if s == nil || s.repo == nil || s.db == nil {
		return core.Credential{}, fmt.Errorf("sqlstore: credential store is not configured")
	}
	userID := strings.TrimSpace(cred.UserID)
	providerID := strings.TrimSpace(cred.ProviderID)
	if userID == "" {
		return core.Credential{}, fmt.Errorf("sqlstore: user id is required")
	}
	if providerID == "" {
		return core.Credential{}, fmt.Errorf("sqlstore: provider id is required")
	}

	now := time.Now().UTC()
	var saved core.Credential
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := new(credentialRecord)
		findErr := tx.NewSelect().
			Model(existing).
			Where("?TableAlias.user_id = ?", userID).
			Where("?TableAlias.provider_id = ?", providerID).
			Limit(1).
			Scan(ctx)
		if findErr == nil {
			existing.AccessToken = cred.AccessToken
			existing.RefreshToken = cred.RefreshToken
			existing.GrantedScope = cred.GrantedScope
			existing.LastRefreshError = string(cred.LastRefreshError)
			existing.ExpiresAt = nil
			if cred.ExpiresAt != nil {
				expires := cred.ExpiresAt.UTC()
				existing.ExpiresAt = &expires
			}
			existing.UpdatedAt = now
			if _, updateErr := tx.NewUpdate().Model(existing).WherePK().Exec(ctx); updateErr != nil {
				return updateErr
			}
			saved = existing.toDomain()
			return nil
		}

		record := newCredentialRecord(cred, now)
		inserted, createErr := s.repo.CreateTx(ctx, tx, record)
		if createErr != nil {
			return createErr
		}
		saved = inserted.toDomain()
		return nil
	})
	if err != nil {
		return core.Credential{}, err
	}
	return saved, nil
}

func (s *CredentialStore) SetRefreshError(ctx context.Context, userID, providerID string, kind core.RefreshErrorKind) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	result, err := s.db.NewUpdate().
		Model((*credentialRecord)(nil)).
		Set("last_refresh_error = ?", string(kind)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Where("provider_id = ?", strings.TrimSpace(providerID)).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, affectedErr := result.RowsAffected(); affectedErr == nil && affected == 0 {
		return core.ErrCredentialNotFound
	}
	return nil
}

func (s *CredentialStore) Delete(ctx context.Context, userID, providerID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*credentialRecord)(nil)).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Where("provider_id = ?", strings.TrimSpace(providerID)).
		Exec(ctx)
	return err
}

// ListExpiring returns credentials due for refresh: expiring before the
// cutoff and not already flagged as needing reconnection.
func (s *CredentialStore) ListExpiring(ctx context.Context, before time.Time) ([]core.Credential, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: credential store is not configured")
	}
	records := make([]*credentialRecord, 0)
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.expires_at IS NOT NULL").
		Where("?TableAlias.expires_at <= ?", before.UTC()).
		Where("?TableAlias.last_refresh_error NOT IN (?, ?)",
			string(core.RefreshErrorGrantRevoked),
			string(core.RefreshErrorRefreshNotSupported),
		).
		Order("user_id ASC", "provider_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Credential, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

var _ core.CredentialStore = (*CredentialStore)(nil)
