package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"golang.org/x/sync/singleflight"
)

// Service orchestrates the connector lifecycle: authorization, token
// refresh, status projection, and disconnect.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	catalog           *Catalog
	exchanger         Exchanger
	credentialStore   CredentialStore
	stateStore        AuthStateStore
	hooks             LifecycleHooks
	locks             *pairLocks
	refreshFlights    singleflight.Group
	now               func() time.Time
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	Catalog           *Catalog
	Exchanger         Exchanger
	CredentialStore   CredentialStore
	AuthStateStore    AuthStateStore
	LifecycleHooks    LifecycleHooks
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("connectors", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("connectors"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.hooks == nil {
		builder.hooks = NopLifecycleHooks{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	catalog := builder.catalog
	if catalog == nil {
		catalog, err = NewCatalogFromConfig(finalConfig.Providers)
		if err != nil {
			return nil, mapBuildError(builder.errorMapper, err)
		}
	}

	if (builder.credentialStore == nil || builder.stateStore == nil) && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				if builder.credentialStore == nil {
					builder.credentialStore = storeProvider.CredentialStore()
				}
				if builder.stateStore == nil {
					builder.stateStore = storeProvider.AuthStateStore()
				}
			}
		} else if storeProvider, ok := builder.repositoryFactory.(StoreProvider); ok {
			if builder.credentialStore == nil {
				builder.credentialStore = storeProvider.CredentialStore()
			}
			if builder.stateStore == nil {
				builder.stateStore = storeProvider.AuthStateStore()
			}
		}
	}
	if builder.credentialStore == nil {
		builder.credentialStore = NewMemoryCredentialStore()
	}
	if builder.stateStore == nil {
		builder.stateStore = NewMemoryAuthStateStore(finalConfig.stateTTL())
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		catalog:           catalog,
		exchanger:         builder.exchanger,
		credentialStore:   builder.credentialStore,
		stateStore:        builder.stateStore,
		hooks:             builder.hooks,
		locks:             newPairLocks(),
		now:               time.Now,
	}, nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Catalog() *Catalog {
	if s == nil {
		return nil
	}
	return s.catalog
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		Catalog:           s.catalog,
		Exchanger:         s.exchanger,
		CredentialStore:   s.credentialStore,
		AuthStateStore:    s.stateStore,
		LifecycleHooks:    s.hooks,
	}
}

func (s *Service) resolveProvider(providerID string) (ProviderDefinition, error) {
	if s == nil || s.catalog == nil {
		return ProviderDefinition{}, s.mapError(fmt.Errorf("core: catalog unavailable"))
	}
	providerID = strings.TrimSpace(providerID)
	definition, ok := s.catalog.Get(providerID)
	if ok {
		return definition, nil
	}
	wrapped := s.errorFactory(
		fmt.Sprintf("provider %q is not configured", providerID),
		goerrors.CategoryNotFound,
	).WithTextCode(ConnectorErrorProviderNotFound)
	return ProviderDefinition{}, wrapped.WithMetadata(map[string]any{"provider_id": providerID})
}

func (s *Service) resolveExchanger() (Exchanger, error) {
	if s == nil || s.exchanger == nil {
		return nil, s.mapError(fmt.Errorf("core: exchanger is not configured"))
	}
	return s.exchanger, nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) clock() time.Time {
	if s == nil || s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *Service) runHook(ctx context.Context, name string, fn func() error) {
	if fn == nil {
		return
	}
	if err := fn(); err != nil {
		s.logError(ctx, "lifecycle hook failed", map[string]any{
			"hook":  name,
			"error": err.Error(),
		})
	}
}
