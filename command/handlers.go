package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/twjackysu/go-connectors/core"
)

// MutatingService is the slice of the core service commands mutate
// through.
type MutatingService interface {
	BeginAuthorization(ctx context.Context, req core.BeginAuthorizationRequest) (core.BeginAuthorizationResponse, error)
	CompleteAuthorization(ctx context.Context, req core.CompleteAuthorizationRequest) (core.CallbackCompletion, error)
	EnsureFresh(ctx context.Context, req core.EnsureFreshRequest) (core.FreshCredential, error)
	Disconnect(ctx context.Context, req core.DisconnectRequest) (core.DisconnectResult, error)
	SweepExpiring(ctx context.Context) (core.SweepResult, error)
	PurgeExpiredStates(ctx context.Context) (int, error)
}

type BeginAuthorizationCommand struct {
	service MutatingService
}

func NewBeginAuthorizationCommand(service MutatingService) *BeginAuthorizationCommand {
	return &BeginAuthorizationCommand{service: service}
}

func (c *BeginAuthorizationCommand) Execute(ctx context.Context, msg BeginAuthorizationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: authorization service is required")
	}
	out, err := c.service.BeginAuthorization(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CompleteAuthorizationCommand struct {
	service MutatingService
}

func NewCompleteAuthorizationCommand(service MutatingService) *CompleteAuthorizationCommand {
	return &CompleteAuthorizationCommand{service: service}
}

func (c *CompleteAuthorizationCommand) Execute(ctx context.Context, msg CompleteAuthorizationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: callback service is required")
	}
	out, err := c.service.CompleteAuthorization(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type EnsureFreshCommand struct {
	service MutatingService
}

func NewEnsureFreshCommand(service MutatingService) *EnsureFreshCommand {
	return &EnsureFreshCommand{service: service}
}

func (c *EnsureFreshCommand) Execute(ctx context.Context, msg EnsureFreshMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: refresh service is required")
	}
	out, err := c.service.EnsureFresh(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DisconnectCommand struct {
	service MutatingService
}

func NewDisconnectCommand(service MutatingService) *DisconnectCommand {
	return &DisconnectCommand{service: service}
}

func (c *DisconnectCommand) Execute(ctx context.Context, msg DisconnectMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: disconnect service is required")
	}
	out, err := c.service.Disconnect(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefreshSweepCommand struct {
	service MutatingService
}

func NewRefreshSweepCommand(service MutatingService) *RefreshSweepCommand {
	return &RefreshSweepCommand{service: service}
}

func (c *RefreshSweepCommand) Execute(ctx context.Context, msg RefreshSweepMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sweep service is required")
	}
	out, err := c.service.SweepExpiring(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type StatePurgeCommand struct {
	service MutatingService
}

func NewStatePurgeCommand(service MutatingService) *StatePurgeCommand {
	return &StatePurgeCommand{service: service}
}

func (c *StatePurgeCommand) Execute(ctx context.Context, msg StatePurgeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: purge service is required")
	}
	out, err := c.service.PurgeExpiredStates(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
