// Package query exposes the connector read operations as go-command query
// messages and handlers.
package query

import (
	"strings"
)

const (
	TypeStatus         = "connectors.query.status"
	TypeProviderStatus = "connectors.query.provider_status"
	TypeListProviders  = "connectors.query.providers.list"
)

type StatusMessage struct {
	UserID string
}

func (StatusMessage) Type() string { return TypeStatus }

func (m StatusMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return queryValidationError("user_id", "user id is required")
	}
	return nil
}

type ProviderStatusMessage struct {
	UserID     string
	ProviderID string
}

func (ProviderStatusMessage) Type() string { return TypeProviderStatus }

func (m ProviderStatusMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return queryValidationError("user_id", "user id is required")
	}
	if strings.TrimSpace(m.ProviderID) == "" {
		return queryValidationError("provider_id", "provider id is required")
	}
	return nil
}

type ListProvidersMessage struct{}

func (ListProvidersMessage) Type() string { return TypeListProviders }

func (ListProvidersMessage) Validate() error { return nil }
