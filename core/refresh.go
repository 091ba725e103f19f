package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// EnsureFresh returns a credential whose access token is valid for at
// least the configured safety margin, refreshing it first when needed.
// Concurrent callers for the same pair share a single refresh attempt and
// its outcome.
func (s *Service) EnsureFresh(ctx context.Context, req EnsureFreshRequest) (out FreshCredential, err error) {
	startedAt := time.Now()
	defer func() {
		s.observeOperation(ctx, startedAt, "ensure_fresh", err, map[string]any{
			"provider_id": req.ProviderID,
			"user_id":     req.UserID,
			"refreshed":   out.Refreshed,
		})
	}()

	if s == nil {
		return FreshCredential{}, fmt.Errorf("core: service is nil")
	}
	key, err := newCredentialKey(req.UserID, req.ProviderID)
	if err != nil {
		return FreshCredential{}, s.mapError(err)
	}

	definition, err := s.resolveProvider(key.providerID)
	if err != nil {
		return FreshCredential{}, s.mapError(err)
	}

	cred, err := s.loadCredential(ctx, key)
	if err != nil {
		return FreshCredential{}, err
	}
	if cred.LastRefreshError.RequiresReconnection() {
		return FreshCredential{}, s.reconnectRequiredError(key, cred.LastRefreshError)
	}
	if !cred.ExpiresWithin(s.clock(), s.config.refreshSafetyMargin()) {
		return FreshCredential{Credential: cred}, nil
	}

	result, err, _ := s.refreshFlights.Do(refreshFlightKey(key), func() (any, error) {
		return s.refreshCredential(ctx, definition, key)
	})
	if err != nil {
		return FreshCredential{}, err
	}
	refreshed, ok := result.(Credential)
	if !ok {
		return FreshCredential{}, s.mapError(fmt.Errorf("core: unexpected refresh result type %T", result))
	}
	return FreshCredential{Credential: cloneCredential(refreshed), Refreshed: true}, nil
}

// refreshCredential performs one refresh attempt under the pair lock. It
// re-reads the credential first; a concurrent caller may already have
// refreshed or disconnected the pair.
func (s *Service) refreshCredential(ctx context.Context, definition ProviderDefinition, key credentialKey) (Credential, error) {
	unlock := s.locks.lock(key)
	defer unlock()

	cred, err := s.loadCredential(ctx, key)
	if err != nil {
		return Credential{}, err
	}
	if cred.LastRefreshError.RequiresReconnection() {
		return Credential{}, s.reconnectRequiredError(key, cred.LastRefreshError)
	}
	if !cred.ExpiresWithin(s.clock(), s.config.refreshSafetyMargin()) {
		return cred, nil
	}

	if !cred.HasRefreshToken() {
		if err := s.credentialStore.SetRefreshError(ctx, key.userID, key.providerID, RefreshErrorRefreshNotSupported); err != nil {
			return Credential{}, s.mapError(err)
		}
		s.runHook(ctx, "on_refresh_failed", func() error {
			return s.hooks.OnRefreshFailed(ctx, cloneCredential(cred), RefreshErrorRefreshNotSupported)
		})
		return Credential{}, s.reconnectRequiredError(key, RefreshErrorRefreshNotSupported)
	}

	exchanger, err := s.resolveExchanger()
	if err != nil {
		return Credential{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.config.providerCallTimeout())
	grant, err := exchanger.Refresh(callCtx, definition, cred.RefreshToken)
	cancel()
	if err != nil {
		kind := classifyRefreshFailure(err)
		if setErr := s.credentialStore.SetRefreshError(ctx, key.userID, key.providerID, kind); setErr != nil {
			s.logError(ctx, "record refresh failure", map[string]any{
				"provider_id": key.providerID,
				"user_id":     key.userID,
				"error":       setErr.Error(),
			})
		}
		s.runHook(ctx, "on_refresh_failed", func() error {
			return s.hooks.OnRefreshFailed(ctx, cloneCredential(cred), kind)
		})
		if kind == RefreshErrorGrantRevoked {
			return Credential{}, s.reconnectRequiredError(key, kind)
		}
		return Credential{}, s.refreshUnavailableError(key, err)
	}

	next := cred
	next.AccessToken = strings.TrimSpace(grant.AccessToken)
	// A refresh response without a new refresh token keeps the stored one.
	if token := strings.TrimSpace(grant.RefreshToken); token != "" {
		next.RefreshToken = token
	}
	if scope := strings.TrimSpace(grant.Scope); scope != "" {
		next.GrantedScope = scope
	}
	next.ExpiresAt = nil
	if grant.ExpiresIn > 0 {
		expires := s.clock().Add(time.Duration(grant.ExpiresIn) * time.Second)
		next.ExpiresAt = &expires
	}
	next.LastRefreshError = RefreshErrorNone

	saved, err := s.credentialStore.Save(ctx, next)
	if err != nil {
		return Credential{}, s.mapError(err)
	}
	return saved, nil
}

// SweepExpiring refreshes every credential that expires within the safety
// margin. Failures are counted, never fatal for the sweep itself.
func (s *Service) SweepExpiring(ctx context.Context) (out SweepResult, err error) {
	startedAt := time.Now()
	defer func() {
		s.observeOperation(ctx, startedAt, "refresh_sweep", err, map[string]any{
			"scanned":   out.Scanned,
			"refreshed": out.Refreshed,
			"flagged":   out.Flagged,
			"failed":    out.Failed,
		})
	}()

	if s == nil {
		return SweepResult{}, fmt.Errorf("core: service is nil")
	}
	margin := s.config.refreshSafetyMargin()
	expiring, err := s.credentialStore.ListExpiring(ctx, s.clock().Add(margin))
	if err != nil {
		return SweepResult{}, s.mapError(err)
	}

	result := SweepResult{Scanned: len(expiring)}
	for _, cred := range expiring {
		if ctx.Err() != nil {
			return result, s.mapError(ctx.Err())
		}
		_, refreshErr := s.EnsureFresh(ctx, EnsureFreshRequest{
			UserID:     cred.UserID,
			ProviderID: cred.ProviderID,
		})
		switch {
		case refreshErr == nil:
			result.Refreshed++
		case IsReconnectRequired(refreshErr):
			result.Flagged++
		default:
			result.Failed++
		}
	}
	return result, nil
}

// PurgeExpiredStates removes authorization state records past their TTL.
func (s *Service) PurgeExpiredStates(ctx context.Context) (purged int, err error) {
	startedAt := time.Now()
	defer func() {
		s.observeOperation(ctx, startedAt, "state_purge", err, map[string]any{
			"purged": purged,
		})
	}()

	if s == nil {
		return 0, fmt.Errorf("core: service is nil")
	}
	purged, err = s.stateStore.PurgeExpired(ctx, s.clock())
	if err != nil {
		return 0, s.mapError(err)
	}
	return purged, nil
}

func (s *Service) loadCredential(ctx context.Context, key credentialKey) (Credential, error) {
	cred, err := s.credentialStore.Get(ctx, key.userID, key.providerID)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			wrapped := s.errorFactory(
				fmt.Sprintf("provider %q is not connected", key.providerID),
				goerrors.CategoryNotFound,
			).WithTextCode(ConnectorErrorNotConnected).
				WithMetadata(map[string]any{
					"provider_id": key.providerID,
					"user_id":     key.userID,
				})
			return Credential{}, s.mapError(wrapped)
		}
		return Credential{}, s.mapError(err)
	}
	return cred, nil
}

func (s *Service) reconnectRequiredError(key credentialKey, kind RefreshErrorKind) error {
	wrapped := s.errorFactory(
		fmt.Sprintf("provider %q requires reconnection", key.providerID),
		goerrors.CategoryConflict,
	).WithCode(http.StatusConflict).
		WithTextCode(ConnectorErrorReconnectRequired).
		WithMetadata(map[string]any{
			"provider_id":  key.providerID,
			"user_id":      key.userID,
			"failure_kind": string(kind),
		})
	return s.mapError(wrapped)
}

func (s *Service) refreshUnavailableError(key credentialKey, cause error) error {
	wrapped := goerrors.Wrap(cause, goerrors.CategoryOperation, fmt.Sprintf("provider %q refresh temporarily unavailable", key.providerID)).
		WithCode(http.StatusServiceUnavailable).
		WithTextCode(ConnectorErrorRefreshUnavailable).
		WithMetadata(map[string]any{
			"provider_id": key.providerID,
			"user_id":     key.userID,
		})
	return s.mapError(wrapped)
}

// classifyRefreshFailure decides whether a failed refresh means the grant
// is gone or the provider is temporarily unreachable. Definitive
// rejections surface as CategoryAuth or carry an OAuth error code.
func classifyRefreshFailure(err error) RefreshErrorKind {
	if err == nil {
		return RefreshErrorNone
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryAuth, goerrors.CategoryAuthz:
			return RefreshErrorGrantRevoked
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "invalid_grant"),
		strings.Contains(msg, "invalid refresh token"),
		strings.Contains(msg, "unauthorized_client"),
		strings.Contains(msg, "token revoked"):
		return RefreshErrorGrantRevoked
	}
	return RefreshErrorTransient
}
