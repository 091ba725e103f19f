// Package gocommand wires the connector command and query handlers into a
// go-command registry and dispatcher.
package gocommand

import (
	"context"
	"fmt"
	"strings"

	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	connectorcmd "github.com/twjackysu/go-connectors/command"
	connectorqry "github.com/twjackysu/go-connectors/query"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := gocmd.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(gocmd.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *gocmd.Registry
}

func NewRegistryAdapter(registry *gocmd.Registry) *RegistryAdapter {
	if registry == nil {
		registry = gocmd.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *gocmd.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) AddResolver(key string, resolver gocmd.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

// AddQueueResolver routes registry lookups for key to queue backed commands.
func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

// ConnectorService is the full surface the handler set is built against.
type ConnectorService interface {
	connectorcmd.MutatingService
	connectorqry.StatusReader
	connectorqry.CatalogReader
}

// RegisterConnectorHandlers registers every connector command and query with
// the registry and subscribes each to the dispatcher. The returned
// subscriptions let the caller unwind the wiring on shutdown.
func RegisterConnectorHandlers(adapter *RegistryAdapter, service ConnectorService, runnerOpts ...runner.Option) ([]commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if service == nil {
		return nil, fmt.Errorf("gocommand: connector service is required")
	}

	var subscriptions []commanddispatcher.Subscription
	unwind := func() {
		for _, subscription := range subscriptions {
			if subscription != nil {
				subscription.Unsubscribe()
			}
		}
	}

	beginAuth, err := RegisterAndSubscribe(adapter, connectorcmd.NewBeginAuthorizationCommand(service), runnerOpts...)
	if err != nil {
		unwind()
		return nil, err
	}
	subscriptions = append(subscriptions, beginAuth)

	completeAuth, err := RegisterAndSubscribe(adapter, connectorcmd.NewCompleteAuthorizationCommand(service), runnerOpts...)
	if err != nil {
		unwind()
		return nil, err
	}
	subscriptions = append(subscriptions, completeAuth)

	ensureFresh, err := RegisterAndSubscribe(adapter, connectorcmd.NewEnsureFreshCommand(service), runnerOpts...)
	if err != nil {
		unwind()
		return nil, err
	}
	subscriptions = append(subscriptions, ensureFresh)

	disconnect, err := RegisterAndSubscribe(adapter, connectorcmd.NewDisconnectCommand(service), runnerOpts...)
	if err != nil {
		unwind()
		return nil, err
	}
	subscriptions = append(subscriptions, disconnect)

	refreshSweep, err := RegisterAndSubscribe(adapter, connectorcmd.NewRefreshSweepCommand(service), runnerOpts...)
	if err != nil {
		unwind()
		return nil, err
	}
	subscriptions = append(subscriptions, refreshSweep)

	statePurge, err := RegisterAndSubscribe(adapter, connectorcmd.NewStatePurgeCommand(service), runnerOpts...)
	if err != nil {
		unwind()
		return nil, err
	}
	subscriptions = append(subscriptions, statePurge)

	status, err := RegisterAndSubscribeQuery(adapter, connectorqry.NewStatusQuery(service), runnerOpts...)
	if err != nil {
		unwind()
		return nil, err
	}
	subscriptions = append(subscriptions, status)

	providerStatus, err := RegisterAndSubscribeQuery(adapter, connectorqry.NewProviderStatusQuery(service), runnerOpts...)
	if err != nil {
		unwind()
		return nil, err
	}
	subscriptions = append(subscriptions, providerStatus)

	listProviders, err := RegisterAndSubscribeQuery(adapter, connectorqry.NewListProvidersQuery(service), runnerOpts...)
	if err != nil {
		unwind()
		return nil, err
	}
	subscriptions = append(subscriptions, listProviders)

	return subscriptions, nil
}

func SubscribeCommand[T any](cmd gocmd.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry gocmd.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd gocmd.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry gocmd.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterQuery(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}
