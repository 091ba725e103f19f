// Package connectors manages OAuth connector lifecycles: provider catalog,
// authorization flows, credential storage, token refresh, and disconnects.
package connectors

import (
	"github.com/twjackysu/go-connectors/core"
	"github.com/twjackysu/go-connectors/oauth2"
)

type Config = core.Config

type ProviderConfig = core.ProviderConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type Catalog = core.Catalog
type ProviderDefinition = core.ProviderDefinition
type Credential = core.Credential
type ConnectorStatus = core.ConnectorStatus
type CredentialStore = core.CredentialStore
type AuthStateStore = core.AuthStateStore
type Exchanger = core.Exchanger
type TokenGrant = core.TokenGrant
type LifecycleHooks = core.LifecycleHooks
type RefreshErrorKind = core.RefreshErrorKind

type BeginAuthorizationRequest = core.BeginAuthorizationRequest
type BeginAuthorizationResponse = core.BeginAuthorizationResponse
type CompleteAuthorizationRequest = core.CompleteAuthorizationRequest
type CallbackCompletion = core.CallbackCompletion
type EnsureFreshRequest = core.EnsureFreshRequest
type FreshCredential = core.FreshCredential
type DisconnectRequest = core.DisconnectRequest
type DisconnectResult = core.DisconnectResult
type SweepResult = core.SweepResult

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithCatalog           = core.WithCatalog
	WithExchanger         = core.WithExchanger
	WithCredentialStore   = core.WithCredentialStore
	WithAuthStateStore    = core.WithAuthStateStore
	WithLifecycleHooks    = core.WithLifecycleHooks
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

// Setup builds a service with the HTTP token exchanger wired in. Options
// passed by the caller apply afterwards, so a custom exchanger still wins.
func Setup(cfg Config, opts ...Option) (*Service, error) {
	exchanger := oauth2.NewClient(oauth2.Config{RequestTimeout: cfg.ProviderCallTimeout})
	combined := append([]Option{WithExchanger(exchanger)}, opts...)
	return core.NewService(cfg, combined...)
}
