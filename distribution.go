package distribution

import "github.com/appertivo/go-distribution/core"

type Config = core.Config

type GoogleConfig = core.GoogleConfig

type SweepConfig = core.SweepConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type OAuthStateStore = core.OAuthStateStore
type ConnectionLocker = core.ConnectionLocker
type Registry = core.Registry
type ConnectionStore = core.ConnectionStore
type SpecialStore = core.SpecialStore
type ActivitySink = core.ActivitySink
type DistributionChannel = core.DistributionChannel
type DistributionReport = core.DistributionReport
type SweepStats = core.SweepStats

type Connection = core.Connection
type Special = core.Special
type Platform = core.Platform

type ConnectRequest = core.ConnectRequest
type CompleteCallbackRequest = core.CompleteCallbackRequest
type SelectLocationRequest = core.SelectLocationRequest
type SetDeletionPolicyRequest = core.SetDeletionPolicyRequest

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
	WithOAuthStateStore   = core.WithOAuthStateStore
	WithConnectionLocker  = core.WithConnectionLocker
	WithRegistry          = core.WithRegistry
	WithConnectionStore   = core.WithConnectionStore
	WithSpecialStore      = core.WithSpecialStore
	WithActivitySink      = core.WithActivitySink
	WithClock             = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
