package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/twjackysu/go-connectors/core"
)

// AuthStateStore persists single-use authorization state records.
type AuthStateStore struct {
	db   *bun.DB
	repo repository.Repository[*authStateRecord]
}

func (s *AuthStateStore) Save(ctx context.Context, record core.AuthorizationState) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: auth state store is not configured")
	}
	if strings.TrimSpace(record.State) == "" {
		return fmt.Errorf("sqlstore: authorization state value is required")
	}
	_, err := s.repo.Create(ctx, newAuthStateRecord(record))
	return err
}

// Consume deletes the row inside the lookup transaction so the state is
// gone even when it turns out to be expired.
func (s *AuthStateStore) Consume(ctx context.Context, state string, now time.Time) (core.AuthorizationState, error) {
	if s == nil || s.db == nil {
		return core.AuthorizationState{}, fmt.Errorf("sqlstore: auth state store is not configured")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return core.AuthorizationState{}, fmt.Errorf("sqlstore: authorization state value is required")
	}

	var consumed core.AuthorizationState
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := new(authStateRecord)
		findErr := tx.NewSelect().
			Model(record).
			Where("?TableAlias.state = ?", state).
			Limit(1).
			Scan(ctx)
		if findErr != nil {
			if errors.Is(findErr, sql.ErrNoRows) {
				return core.ErrStateNotFound
			}
			return findErr
		}
		if _, deleteErr := tx.NewDelete().Model(record).WherePK().Exec(ctx); deleteErr != nil {
			return deleteErr
		}
		consumed = record.toDomain()
		return nil
	})
	if err != nil {
		return core.AuthorizationState{}, err
	}
	if consumed.Expired(now) {
		return core.AuthorizationState{}, core.ErrStateNotFound
	}
	return consumed, nil
}

func (s *AuthStateStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: auth state store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*authStateRecord)(nil)).
		Where("expires_at <= ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return 0, nil
	}
	return int(affected), nil
}

var _ core.AuthStateStore = (*AuthStateStore)(nil)
