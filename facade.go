package connectors

import (
	"fmt"

	connectorcmd "github.com/twjackysu/go-connectors/command"
	"github.com/twjackysu/go-connectors/core"
	connectorqry "github.com/twjackysu/go-connectors/query"
)

// CommandQueryService is the surface the facade builds its handlers over.
type CommandQueryService interface {
	connectorcmd.MutatingService
	connectorqry.StatusReader
	connectorqry.CatalogReader
}

type Commands struct {
	BeginAuthorization    *connectorcmd.BeginAuthorizationCommand
	CompleteAuthorization *connectorcmd.CompleteAuthorizationCommand
	EnsureFresh           *connectorcmd.EnsureFreshCommand
	Disconnect            *connectorcmd.DisconnectCommand
	RefreshSweep          *connectorcmd.RefreshSweepCommand
	StatePurge            *connectorcmd.StatePurgeCommand
}

type Queries struct {
	Status         *connectorqry.StatusQuery
	ProviderStatus *connectorqry.ProviderStatusQuery
	ListProviders  *connectorqry.ListProvidersQuery
}

// Facade bundles the command and query handlers for one service instance.
type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	catalogReader connectorqry.CatalogReader
}

// WithCatalogReader overrides the provider listing source. Useful when the
// caller curates a reduced catalog for a tenant.
func WithCatalogReader(reader connectorqry.CatalogReader) FacadeOption {
	return func(options *facadeOptions) {
		options.catalogReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("connectors: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	catalogReader := cfg.catalogReader
	if catalogReader == nil {
		catalogReader = service
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		BeginAuthorization:    connectorcmd.NewBeginAuthorizationCommand(service),
		CompleteAuthorization: connectorcmd.NewCompleteAuthorizationCommand(service),
		EnsureFresh:           connectorcmd.NewEnsureFreshCommand(service),
		Disconnect:            connectorcmd.NewDisconnectCommand(service),
		RefreshSweep:          connectorcmd.NewRefreshSweepCommand(service),
		StatePurge:            connectorcmd.NewStatePurgeCommand(service),
	}
	facade.queries = Queries{
		Status:         connectorqry.NewStatusQuery(service),
		ProviderStatus: connectorqry.NewProviderStatusQuery(service),
		ListProviders:  connectorqry.NewListProvidersQuery(catalogReader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

var _ CommandQueryService = (*core.Service)(nil)
