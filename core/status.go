package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status projects the user's connection state for every catalog provider,
// in catalog order. It reads stores only and never calls a provider, so an
// unreachable provider cannot degrade a status read.
func (s *Service) Status(ctx context.Context, userID string) (out []ConnectorStatus, err error) {
	startedAt := time.Now()
	defer func() {
		s.observeOperation(ctx, startedAt, "status", err, map[string]any{
			"user_id": userID,
		})
	}()

	if s == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, s.mapError(fmt.Errorf("core: user id is required"))
	}

	definitions := s.catalog.List()
	statuses := make([]ConnectorStatus, 0, len(definitions))
	for _, definition := range definitions {
		status := ConnectorStatus{
			ProviderID:  definition.ID,
			DisplayName: definition.DisplayName,
			Services:    append([]string(nil), definition.Services...),
		}
		cred, getErr := s.credentialStore.Get(ctx, userID, definition.ID)
		switch {
		case getErr == nil:
			status.Connected = true
			status.RequiresReconnection = s.requiresReconnection(cred)
			if cred.ExpiresAt != nil {
				expires := *cred.ExpiresAt
				status.ExpiresAt = &expires
			}
		case errors.Is(getErr, ErrCredentialNotFound):
			// not connected
		default:
			return nil, s.mapError(getErr)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// StatusFor reports the connection state for a single catalog provider.
func (s *Service) StatusFor(ctx context.Context, userID, providerID string) (ConnectorStatus, error) {
	if s == nil {
		return ConnectorStatus{}, fmt.Errorf("core: service is nil")
	}
	definition, err := s.resolveProvider(providerID)
	if err != nil {
		return ConnectorStatus{}, s.mapError(err)
	}

	status := ConnectorStatus{
		ProviderID:  definition.ID,
		DisplayName: definition.DisplayName,
		Services:    append([]string(nil), definition.Services...),
	}
	cred, err := s.credentialStore.Get(ctx, strings.TrimSpace(userID), definition.ID)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return status, nil
		}
		return ConnectorStatus{}, s.mapError(err)
	}
	status.Connected = true
	status.RequiresReconnection = s.requiresReconnection(cred)
	if cred.ExpiresAt != nil {
		expires := *cred.ExpiresAt
		status.ExpiresAt = &expires
	}
	return status, nil
}

// requiresReconnection reports whether only a new authorization can restore
// the credential: the refresh flow flagged it, or the access token is
// already expired and there is no refresh token to renew it with.
func (s *Service) requiresReconnection(cred Credential) bool {
	if cred.LastRefreshError.RequiresReconnection() {
		return true
	}
	return cred.ExpiresWithin(s.clock(), 0) && !cred.HasRefreshToken()
}
