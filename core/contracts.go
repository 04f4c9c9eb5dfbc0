package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type BeginAuthRequest struct {
	UserID      string
	RedirectURI string
	State       string
	Metadata    map[string]any
}

type BeginAuthResponse struct {
	URL      string
	State    string
	Metadata map[string]any
}

type CompleteAuthRequest struct {
	UserID      string
	Code        string
	State       string
	RedirectURI string
	Metadata    map[string]any
}

// TokenGrant is a provider token response in normalized form.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresIn    int64
}

type CompleteAuthResponse struct {
	Settings ConnectionSettings
	Metadata map[string]any
}

type DistributionOutcome string

const (
	OutcomePublished DistributionOutcome = "published"
	OutcomeRetracted DistributionOutcome = "retracted"
	OutcomeSkipped   DistributionOutcome = "skipped"
	OutcomeFailed    DistributionOutcome = "failed"
)

// DistributionReport is the typed result of a single channel publish or
// retract attempt. Err is populated only for failed outcomes; callers
// decide whether and how to log it.
type DistributionReport struct {
	Platform       Platform
	ConnectionID   string
	SpecialID      string
	Outcome        DistributionOutcome
	RemotePostName string
	Reason         string
	Err            error

	// Settings carries connection settings mutated during the attempt
	// (a refreshed access token) that must be persisted even when the
	// remote call itself failed.
	Settings *ConnectionSettings
}

// DistributionChannel is a platform integration able to carry specials.
// Publish and Retract never panic into callers and report skips and
// failures through the returned report rather than errors.
type DistributionChannel interface {
	Platform() Platform
	BeginAuth(ctx context.Context, req BeginAuthRequest) (BeginAuthResponse, error)
	CompleteAuth(ctx context.Context, req CompleteAuthRequest) (CompleteAuthResponse, error)
	Publish(ctx context.Context, conn Connection, special Special) DistributionReport
	Retract(ctx context.Context, conn Connection, special Special) DistributionReport
}

// LocationOverridePublisher is implemented by channels that can target
// a location other than the connection's stored default for a single
// special.
type LocationOverridePublisher interface {
	PublishAt(ctx context.Context, conn Connection, special Special, locationID string) DistributionReport
}

type Registry interface {
	Register(channel DistributionChannel) error
	Get(platform Platform) (DistributionChannel, bool)
	List() []DistributionChannel
}

type CreateConnectionInput struct {
	UserID      string
	Platform    Platform
	IsConnected bool
	Settings    ConnectionSettings
}

type ConnectionStore interface {
	Get(ctx context.Context, id string) (Connection, error)
	GetByUserAndPlatform(ctx context.Context, userID string, platform Platform) (Connection, error)
	ListConnected(ctx context.Context, userID string) ([]Connection, error)
	Create(ctx context.Context, in CreateConnectionInput) (Connection, error)
	SaveSettings(ctx context.Context, id string, settings ConnectionSettings) error
	SetConnected(ctx context.Context, id string, connected bool) error
}

type SpecialStore interface {
	Get(ctx context.Context, id string) (Special, error)
	ListExpired(ctx context.Context, asOf time.Time) ([]Special, error)
	UpdateStatus(ctx context.Context, id string, status SpecialStatus) error
	SetRemotePostName(ctx context.Context, id string, name string) error
}

type ActivityFilter struct {
	UserID    string
	Action    string
	Platform  Platform
	SpecialID string
	Status    ActivityStatus
	From      *time.Time
	To        *time.Time
	Page      int
	PerPage   int
}

type ActivityPage struct {
	Items   []ActivityEntry
	Page    int
	PerPage int
	Total   int
	HasNext bool
}

type ActivitySink interface {
	Record(ctx context.Context, entry ActivityEntry) error
	List(ctx context.Context, filter ActivityFilter) (ActivityPage, error)
}

type StoreProvider interface {
	ConnectionStore() ConnectionStore
	SpecialStore() SpecialStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
	Idempotency          string
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
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

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type CommandMessage interface {
	Type() string
}

type CommandDispatcher interface {
	Dispatch(ctx context.Context, msg any) error
}

// DistributionService is the surface the command/query wrappers and the
// facade compose over.
type DistributionService interface {
	EnsureDefaultConnections(ctx context.Context, userID string) ([]Connection, error)
	Connect(ctx context.Context, req ConnectRequest) (BeginAuthResponse, error)
	CompleteCallback(ctx context.Context, req CompleteCallbackRequest) (Connection, error)
	SelectLocation(ctx context.Context, req SelectLocationRequest) (Connection, error)
	SetDeletionPolicy(ctx context.Context, req SetDeletionPolicyRequest) (Connection, error)
	Disconnect(ctx context.Context, userID string, platform Platform) (Connection, error)
	PublishSpecial(ctx context.Context, specialID string) ([]DistributionReport, error)
	RetractSpecial(ctx context.Context, specialID string) ([]DistributionReport, error)
	ExpireOverdueSpecials(ctx context.Context) (SweepStats, error)
}

type ConnectRequest struct {
	UserID      string
	Platform    Platform
	RedirectURI string
	Metadata    map[string]any
}

type CompleteCallbackRequest struct {
	UserID      string
	Platform    Platform
	Code        string
	State       string
	RedirectURI string
	Metadata    map[string]any
}

type SelectLocationRequest struct {
	UserID     string
	LocationID string
}

type SetDeletionPolicyRequest struct {
	UserID            string
	DeleteWhenExpired bool
}

// SweepStats summarizes one expiration pass.
type SweepStats struct {
	Scanned   int
	Expired   int
	Retracted int
	Skipped   int
	Failed    int
}
