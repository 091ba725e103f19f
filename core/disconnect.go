package core

import (
	"context"
	"fmt"
	"time"
)

// Disconnect removes the stored credential for a user/provider pair.
// When the provider exposes a revocation endpoint the tokens are revoked
// first, best effort: a failed revocation is logged and the local
// credential is deleted anyway.
func (s *Service) Disconnect(ctx context.Context, req DisconnectRequest) (out DisconnectResult, err error) {
	startedAt := time.Now()
	defer func() {
		s.observeOperation(ctx, startedAt, "disconnect", err, map[string]any{
			"provider_id": req.ProviderID,
			"user_id":     req.UserID,
		})
	}()

	if s == nil {
		return DisconnectResult{}, fmt.Errorf("core: service is nil")
	}
	key, err := newCredentialKey(req.UserID, req.ProviderID)
	if err != nil {
		return DisconnectResult{}, s.mapError(err)
	}

	definition, err := s.resolveProvider(key.providerID)
	if err != nil {
		return DisconnectResult{}, s.mapError(err)
	}

	unlock := s.locks.lock(key)
	defer unlock()

	cred, err := s.loadCredential(ctx, key)
	if err != nil {
		return DisconnectResult{}, err
	}

	result := DisconnectResult{
		UserID:     key.userID,
		ProviderID: key.providerID,
	}
	if definition.SupportsRevocation() {
		if exchanger, exchangerErr := s.resolveExchanger(); exchangerErr == nil {
			callCtx, cancel := context.WithTimeout(ctx, s.config.providerCallTimeout())
			revokeErr := exchanger.Revoke(callCtx, definition, cred.AccessToken)
			cancel()
			if revokeErr != nil {
				result.RevokeFailed = true
				s.logError(ctx, "token revocation failed", map[string]any{
					"provider_id": key.providerID,
					"user_id":     key.userID,
					"error":       revokeErr.Error(),
				})
			} else {
				result.Revoked = true
			}
		}
	}

	if err = s.credentialStore.Delete(ctx, key.userID, key.providerID); err != nil {
		return DisconnectResult{}, s.mapError(err)
	}

	s.runHook(ctx, "on_disconnected", func() error {
		return s.hooks.OnDisconnected(ctx, key.userID, key.providerID)
	})

	return result, nil
}
