package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// BeginAuthorization starts the authorization flow for a user/provider
// pair. It records a single-use state value and returns the provider
// authorization URL the caller should redirect to.
func (s *Service) BeginAuthorization(ctx context.Context, req BeginAuthorizationRequest) (out BeginAuthorizationResponse, err error) {
	startedAt := time.Now()
	defer func() {
		s.observeOperation(ctx, startedAt, "begin_authorization", err, map[string]any{
			"provider_id": req.ProviderID,
			"user_id":     req.UserID,
		})
	}()

	if s == nil {
		return BeginAuthorizationResponse{}, fmt.Errorf("core: service is nil")
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	req.ReturnURL = strings.TrimSpace(req.ReturnURL)
	if req.UserID == "" {
		return BeginAuthorizationResponse{}, s.mapError(fmt.Errorf("core: user id is required"))
	}

	definition, err := s.resolveProvider(req.ProviderID)
	if err != nil {
		return BeginAuthorizationResponse{}, s.mapError(err)
	}
	if strings.TrimSpace(s.config.CallbackBaseURL) == "" {
		return BeginAuthorizationResponse{}, s.mapError(fmt.Errorf("core: callback_base_url is required"))
	}

	state, err := generateAuthorizationState()
	if err != nil {
		return BeginAuthorizationResponse{}, s.mapError(err)
	}

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = s.config.DefaultReturnURL
	}

	now := s.clock()
	record := AuthorizationState{
		State:      state,
		UserID:     req.UserID,
		ProviderID: definition.ID,
		ReturnURL:  returnURL,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.config.stateTTL()),
	}
	if err = s.stateStore.Save(ctx, record); err != nil {
		return BeginAuthorizationResponse{}, s.mapError(err)
	}

	authorizationURL, err := buildAuthorizationURL(definition, s.config.RedirectURI(definition.ID), state)
	if err != nil {
		return BeginAuthorizationResponse{}, s.mapError(err)
	}

	return BeginAuthorizationResponse{
		AuthorizationURL: authorizationURL,
		State:            state,
		ExpiresAt:        record.ExpiresAt,
	}, nil
}

// CompleteAuthorization redeems the callback from the provider: it
// consumes the state record, exchanges the authorization code, and stores
// the resulting credential.
func (s *Service) CompleteAuthorization(ctx context.Context, req CompleteAuthorizationRequest) (out CallbackCompletion, err error) {
	startedAt := time.Now()
	defer func() {
		s.observeOperation(ctx, startedAt, "complete_authorization", err, map[string]any{
			"provider_id": req.ProviderID,
		})
	}()

	if s == nil {
		return CallbackCompletion{}, fmt.Errorf("core: service is nil")
	}
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	req.Code = strings.TrimSpace(req.Code)
	req.State = strings.TrimSpace(req.State)
	if req.Code == "" {
		return CallbackCompletion{}, s.mapError(fmt.Errorf("core: authorization code is required"))
	}
	if req.State == "" {
		return CallbackCompletion{}, s.invalidStateError("callback state is missing")
	}

	definition, err := s.resolveProvider(req.ProviderID)
	if err != nil {
		return CallbackCompletion{}, s.mapError(err)
	}
	exchanger, err := s.resolveExchanger()
	if err != nil {
		return CallbackCompletion{}, err
	}

	record, err := s.stateStore.Consume(ctx, req.State, s.clock())
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return CallbackCompletion{}, s.invalidStateError("callback state is unknown or expired")
		}
		return CallbackCompletion{}, s.mapError(err)
	}
	if record.ProviderID != definition.ID {
		return CallbackCompletion{}, s.invalidStateError("callback state was issued for another provider")
	}
	if record.Expired(s.clock()) {
		return CallbackCompletion{}, s.invalidStateError("callback state expired")
	}

	key, err := newCredentialKey(record.UserID, definition.ID)
	if err != nil {
		return CallbackCompletion{}, s.mapError(err)
	}
	unlock := s.locks.lock(key)
	defer unlock()

	callCtx, cancel := context.WithTimeout(ctx, s.config.providerCallTimeout())
	grant, err := exchanger.Exchange(callCtx, definition, req.Code, s.config.RedirectURI(definition.ID))
	cancel()
	if err != nil {
		wrapped := goerrors.Wrap(err, goerrors.CategoryOperation, "token exchange failed").
			WithCode(http.StatusBadRequest).
			WithTextCode(ConnectorErrorTokenExchangeFailed).
			WithMetadata(map[string]any{"provider_id": definition.ID})
		return CallbackCompletion{}, s.mapError(wrapped)
	}
	if strings.TrimSpace(grant.AccessToken) == "" {
		wrapped := s.errorFactory("token exchange returned no access token", goerrors.CategoryOperation).
			WithCode(http.StatusBadRequest).
			WithTextCode(ConnectorErrorTokenExchangeFailed).
			WithMetadata(map[string]any{"provider_id": definition.ID})
		return CallbackCompletion{}, s.mapError(wrapped)
	}

	cred := credentialFromGrant(record.UserID, definition, grant, s.clock())
	if existing, getErr := s.credentialStore.Get(ctx, record.UserID, definition.ID); getErr == nil {
		// Re-authorization without a new refresh token keeps the one
		// already on file.
		if !cred.HasRefreshToken() && existing.HasRefreshToken() {
			cred.RefreshToken = existing.RefreshToken
		}
	}

	saved, err := s.credentialStore.Save(ctx, cred)
	if err != nil {
		return CallbackCompletion{}, s.mapError(err)
	}

	s.runHook(ctx, "on_connected", func() error {
		return s.hooks.OnConnected(ctx, cloneCredential(saved))
	})

	return CallbackCompletion{
		UserID:     saved.UserID,
		ProviderID: saved.ProviderID,
		ReturnURL:  record.ReturnURL,
		ExpiresAt:  saved.ExpiresAt,
	}, nil
}

func (s *Service) invalidStateError(message string) error {
	wrapped := s.errorFactory(message, goerrors.CategoryAuth).
		WithCode(http.StatusBadRequest).
		WithTextCode(ConnectorErrorStateInvalid)
	return s.mapError(wrapped)
}

func buildAuthorizationURL(definition ProviderDefinition, redirectURI, state string) (string, error) {
	parsed, err := url.Parse(definition.AuthURL)
	if err != nil {
		return "", fmt.Errorf("core: parse auth_url for provider %q: %w", definition.ID, err)
	}
	values := parsed.Query()
	values.Set("response_type", "code")
	values.Set("client_id", definition.ClientID)
	values.Set("redirect_uri", redirectURI)
	if strings.TrimSpace(definition.Scope) != "" {
		values.Set("scope", definition.Scope)
	}
	values.Set("state", state)
	parsed.RawQuery = values.Encode()
	return parsed.String(), nil
}

func credentialFromGrant(userID string, definition ProviderDefinition, grant TokenGrant, now time.Time) Credential {
	cred := Credential{
		UserID:       userID,
		ProviderID:   definition.ID,
		AccessToken:  strings.TrimSpace(grant.AccessToken),
		RefreshToken: strings.TrimSpace(grant.RefreshToken),
		GrantedScope: strings.TrimSpace(grant.Scope),
	}
	if cred.GrantedScope == "" {
		cred.GrantedScope = strings.TrimSpace(definition.Scope)
	}
	if grant.ExpiresIn > 0 {
		expires := now.Add(time.Duration(grant.ExpiresIn) * time.Second)
		cred.ExpiresAt = &expires
	}
	return cred
}
