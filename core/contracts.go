package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// CredentialStore persists credentials keyed by user/provider pair.
// Implementations must return ErrCredentialNotFound when no credential
// exists for the pair.
type CredentialStore interface {
	Get(ctx context.Context, userID, providerID string) (Credential, error)
	Save(ctx context.Context, cred Credential) (Credential, error)
	SetRefreshError(ctx context.Context, userID, providerID string, kind RefreshErrorKind) error
	Delete(ctx context.Context, userID, providerID string) error
	ListExpiring(ctx context.Context, before time.Time) ([]Credential, error)
}

// AuthStateStore persists single-use authorization state records.
// Consume removes the record before evaluating it against now so a state
// value can never be redeemed twice, expired or not.
type AuthStateStore interface {
	Save(ctx context.Context, record AuthorizationState) error
	Consume(ctx context.Context, state string, now time.Time) (AuthorizationState, error)
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// TokenGrant is the normalized result of a provider token endpoint call.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	Scope        string
	ExpiresIn    int64
}

// Exchanger performs the outbound token calls against a provider. Errors
// carry go-errors categories: CategoryAuth marks a definitive rejection of
// the grant, CategoryOperation marks a transient provider failure.
type Exchanger interface {
	Exchange(ctx context.Context, provider ProviderDefinition, code, redirectURI string) (TokenGrant, error)
	Refresh(ctx context.Context, provider ProviderDefinition, refreshToken string) (TokenGrant, error)
	Revoke(ctx context.Context, provider ProviderDefinition, token string) error
}

// StoreProvider exposes the persistence-backed stores as a unit.
type StoreProvider interface {
	CredentialStore() CredentialStore
	AuthStateStore() AuthStateStore
}

// RepositoryStoreFactory builds stores from a persistence client.
type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

// LifecycleHooks receives notifications after lifecycle transitions
// commit. Hook errors are logged and never fail the operation.
type LifecycleHooks interface {
	OnConnected(ctx context.Context, cred Credential) error
	OnDisconnected(ctx context.Context, userID, providerID string) error
	OnRefreshFailed(ctx context.Context, cred Credential, kind RefreshErrorKind) error
}

// NopLifecycleHooks ignores every lifecycle event.
type NopLifecycleHooks struct{}

func (NopLifecycleHooks) OnConnected(context.Context, Credential) error        { return nil }
func (NopLifecycleHooks) OnDisconnected(context.Context, string, string) error { return nil }
func (NopLifecycleHooks) OnRefreshFailed(context.Context, Credential, RefreshErrorKind) error {
	return nil
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// MetricsRecorder receives operation counters and latency histograms.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type BeginAuthorizationRequest struct {
	UserID     string
	ProviderID string
	ReturnURL  string
}

type BeginAuthorizationResponse struct {
	AuthorizationURL string
	State            string
	ExpiresAt        time.Time
}

type CompleteAuthorizationRequest struct {
	ProviderID string
	Code       string
	State      string
}

// CallbackCompletion is the outcome of a finished authorization flow. The
// access token is omitted on purpose; transport layers redirect with it.
type CallbackCompletion struct {
	UserID     string
	ProviderID string
	ReturnURL  string
	ExpiresAt  *time.Time
}

type EnsureFreshRequest struct {
	UserID     string
	ProviderID string
}

// FreshCredential is the EnsureFresh result: a usable access token plus
// whether this call performed a refresh to produce it.
type FreshCredential struct {
	Credential
	Refreshed bool
}

type DisconnectRequest struct {
	UserID     string
	ProviderID string
}

type DisconnectResult struct {
	UserID       string
	ProviderID   string
	Revoked      bool
	RevokeFailed bool
}

// SweepResult summarizes one background refresh sweep pass.
type SweepResult struct {
	Scanned   int
	Refreshed int
	Flagged   int
	Failed    int
}

type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}
