package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig     Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	oauthStateStore   OAuthStateStore
	connectionLocker  ConnectionLocker
	registry          Registry
	connectionStore   ConnectionStore
	specialStore      SpecialStore
	activitySink      ActivitySink
	nowFn             func() time.Time
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithPersistenceClient(client any) Option {
	return func(b *serviceBuilder) {
		b.persistenceClient = client
	}
}

func WithRepositoryFactory(factory any) Option {
	return func(b *serviceBuilder) {
		b.repositoryFactory = factory
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithOAuthStateStore(store OAuthStateStore) Option {
	return func(b *serviceBuilder) {
		b.oauthStateStore = store
	}
}

func WithConnectionLocker(locker ConnectionLocker) Option {
	return func(b *serviceBuilder) {
		b.connectionLocker = locker
	}
}

func WithRegistry(registry Registry) Option {
	return func(b *serviceBuilder) {
		b.registry = registry
	}
}

func WithConnectionStore(store ConnectionStore) Option {
	return func(b *serviceBuilder) {
		b.connectionStore = store
	}
}

func WithSpecialStore(store SpecialStore) Option {
	return func(b *serviceBuilder) {
		b.specialStore = store
	}
}

func WithActivitySink(sink ActivitySink) Option {
	return func(b *serviceBuilder) {
		b.activitySink = sink
	}
}

func WithClock(nowFn func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.nowFn = nowFn
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("distribution", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		registry:        NewChannelRegistry(),
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return distributionErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	google := map[string]any{}
	oauth := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Google.OAuth.ClientID) != "" {
		oauth["client_id"] = cfg.Google.OAuth.ClientID
	}
	if includeZero || strings.TrimSpace(cfg.Google.OAuth.ClientSecret) != "" {
		oauth["client_secret"] = cfg.Google.OAuth.ClientSecret
	}
	if includeZero || strings.TrimSpace(cfg.Google.OAuth.RedirectURI) != "" {
		oauth["redirect_uri"] = cfg.Google.OAuth.RedirectURI
	}
	if includeZero || len(cfg.Google.OAuth.Scopes) > 0 {
		oauth["scopes"] = append([]string(nil), cfg.Google.OAuth.Scopes...)
	}
	if len(oauth) > 0 {
		google["oauth"] = oauth
	}

	endpoints := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Google.Endpoints.AuthURL) != "" {
		endpoints["auth_url"] = cfg.Google.Endpoints.AuthURL
	}
	if includeZero || strings.TrimSpace(cfg.Google.Endpoints.TokenURL) != "" {
		endpoints["token_url"] = cfg.Google.Endpoints.TokenURL
	}
	if includeZero || strings.TrimSpace(cfg.Google.Endpoints.AccountsURL) != "" {
		endpoints["accounts_url"] = cfg.Google.Endpoints.AccountsURL
	}
	if includeZero || strings.TrimSpace(cfg.Google.Endpoints.LocationsURL) != "" {
		endpoints["locations_url"] = cfg.Google.Endpoints.LocationsURL
	}
	if includeZero || strings.TrimSpace(cfg.Google.Endpoints.LocalPostsURL) != "" {
		endpoints["local_posts_url"] = cfg.Google.Endpoints.LocalPostsURL
	}
	if len(endpoints) > 0 {
		google["endpoints"] = endpoints
	}

	if includeZero || cfg.Google.RequestTimeoutSeconds > 0 {
		google["request_timeout_seconds"] = cfg.Google.RequestTimeoutSeconds
	}
	if len(google) > 0 {
		layer["google"] = google
	}

	sweep := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Sweep.Schedule) != "" {
		sweep["schedule"] = cfg.Sweep.Schedule
	}
	if includeZero || cfg.Sweep.BatchSize > 0 {
		sweep["batch_size"] = cfg.Sweep.BatchSize
	}
	if len(sweep) > 0 {
		layer["sweep"] = sweep
	}
	return layer
}
