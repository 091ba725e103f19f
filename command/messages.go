// Package command exposes the connector lifecycle mutations as go-command
// messages and handlers.
package command

import (
	"strings"

	"github.com/twjackysu/go-connectors/core"
)

const (
	TypeBeginAuthorization    = "connectors.command.authorization.begin"
	TypeCompleteAuthorization = "connectors.command.authorization.complete"
	TypeEnsureFresh           = "connectors.command.ensure_fresh"
	TypeDisconnect            = "connectors.command.disconnect"
	TypeRefreshSweep          = "connectors.command.refresh_sweep"
	TypeStatePurge            = "connectors.command.state_purge"
)

type BeginAuthorizationMessage struct {
	Request core.BeginAuthorizationRequest
}

func (BeginAuthorizationMessage) Type() string { return TypeBeginAuthorization }

func (m BeginAuthorizationMessage) Validate() error {
	if strings.TrimSpace(m.Request.UserID) == "" {
		return commandValidationError("user_id", "user id is required")
	}
	if strings.TrimSpace(m.Request.ProviderID) == "" {
		return commandValidationError("provider_id", "provider id is required")
	}
	return nil
}

type CompleteAuthorizationMessage struct {
	Request core.CompleteAuthorizationRequest
}

func (CompleteAuthorizationMessage) Type() string { return TypeCompleteAuthorization }

func (m CompleteAuthorizationMessage) Validate() error {
	if strings.TrimSpace(m.Request.ProviderID) == "" {
		return commandValidationError("provider_id", "provider id is required")
	}
	if strings.TrimSpace(m.Request.Code) == "" {
		return commandValidationError("code", "authorization code is required")
	}
	if strings.TrimSpace(m.Request.State) == "" {
		return commandValidationError("state", "authorization state is required")
	}
	return nil
}

type EnsureFreshMessage struct {
	Request core.EnsureFreshRequest
}

func (EnsureFreshMessage) Type() string { return TypeEnsureFresh }

func (m EnsureFreshMessage) Validate() error {
	if strings.TrimSpace(m.Request.UserID) == "" {
		return commandValidationError("user_id", "user id is required")
	}
	if strings.TrimSpace(m.Request.ProviderID) == "" {
		return commandValidationError("provider_id", "provider id is required")
	}
	return nil
}

type DisconnectMessage struct {
	Request core.DisconnectRequest
}

func (DisconnectMessage) Type() string { return TypeDisconnect }

func (m DisconnectMessage) Validate() error {
	if strings.TrimSpace(m.Request.UserID) == "" {
		return commandValidationError("user_id", "user id is required")
	}
	if strings.TrimSpace(m.Request.ProviderID) == "" {
		return commandValidationError("provider_id", "provider id is required")
	}
	return nil
}

// RefreshSweepMessage triggers one pass over expiring credentials.
type RefreshSweepMessage struct{}

func (RefreshSweepMessage) Type() string { return TypeRefreshSweep }

func (RefreshSweepMessage) Validate() error { return nil }

// StatePurgeMessage removes expired authorization state records.
type StatePurgeMessage struct{}

func (StatePurgeMessage) Type() string { return TypeStatePurge }

func (StatePurgeMessage) Validate() error { return nil }
