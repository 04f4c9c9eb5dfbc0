package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

var ErrChannelNotRegistered = errors.New("core: channel not registered")

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
	oauthStateStore   OAuthStateStore
	connectionLocker  ConnectionLocker
	registry          Registry
	connectionStore   ConnectionStore
	specialStore      SpecialStore
	activitySink      ActivitySink
	nowFn             func() time.Time
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
	OAuthStateStore   OAuthStateStore
	ConnectionLocker  ConnectionLocker
	Registry          Registry
	ConnectionStore   ConnectionStore
	SpecialStore      SpecialStore
	ActivitySink      ActivitySink
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("distribution", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("distribution"); named != nil {
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
	if builder.registry == nil {
		builder.registry = NewChannelRegistry()
	}
	if builder.oauthStateStore == nil {
		builder.oauthStateStore = NewMemoryOAuthStateStore(defaultOAuthStateTTL)
	}
	if builder.connectionLocker == nil {
		builder.connectionLocker = NewMemoryConnectionLocker()
	}
	if builder.nowFn == nil {
		builder.nowFn = func() time.Time { return time.Now().UTC() }
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

	if (builder.connectionStore == nil || builder.specialStore == nil) && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			provider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if provider != nil {
				if builder.connectionStore == nil {
					builder.connectionStore = provider.ConnectionStore()
				}
				if builder.specialStore == nil {
					builder.specialStore = provider.SpecialStore()
				}
			}
		} else if provider, ok := builder.repositoryFactory.(StoreProvider); ok {
			if builder.connectionStore == nil {
				builder.connectionStore = provider.ConnectionStore()
			}
			if builder.specialStore == nil {
				builder.specialStore = provider.SpecialStore()
			}
		}
	}
	if builder.activitySink == nil && builder.repositoryFactory != nil {
		if provider, ok := builder.repositoryFactory.(interface{ ActivitySink() ActivitySink }); ok {
			builder.activitySink = provider.ActivitySink()
		}
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
		oauthStateStore:   builder.oauthStateStore,
		connectionLocker:  builder.connectionLocker,
		registry:          builder.registry,
		connectionStore:   builder.connectionStore,
		specialStore:      builder.specialStore,
		activitySink:      builder.activitySink,
		nowFn:             builder.nowFn,
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
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
		OAuthStateStore:   s.oauthStateStore,
		ConnectionLocker:  s.connectionLocker,
		Registry:          s.registry,
		ConnectionStore:   s.connectionStore,
		SpecialStore:      s.specialStore,
		ActivitySink:      s.activitySink,
	}
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

func (s *Service) now() time.Time {
	if s == nil || s.nowFn == nil {
		return time.Now().UTC()
	}
	return s.nowFn()
}

func (s *Service) channelFor(platform Platform) (DistributionChannel, error) {
	if s == nil || s.registry == nil {
		return nil, fmt.Errorf("core: registry is not configured")
	}
	channel, ok := s.registry.Get(platform)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotRegistered, platform)
	}
	return channel, nil
}

func (s *Service) recordActivity(ctx context.Context, entry ActivityEntry) {
	if s == nil || s.activitySink == nil {
		return
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	if err := s.activitySink.Record(ctx, entry); err != nil {
		s.logError(ctx, "activity record failed", map[string]any{
			"action": entry.Action,
			"error":  err.Error(),
		})
	}
}

// EnsureDefaultConnections lazily creates one connection row per known
// platform for the user. The website row is born connected; everything
// else starts disconnected. Existing rows are returned untouched.
func (s *Service) EnsureDefaultConnections(ctx context.Context, userID string) (connections []Connection, err error) {
	startedAt := s.now()
	fields := map[string]any{"user_id": userID}
	defer func() {
		s.observeOperation(ctx, startedAt, "ensure_default_connections", err, fields)
	}()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		err = s.mapError(fmt.Errorf("core: user id is required"))
		return nil, err
	}
	if s.connectionStore == nil {
		err = s.mapError(fmt.Errorf("core: connection store is not configured"))
		return nil, err
	}

	for _, platform := range KnownPlatforms() {
		conn, getErr := s.connectionStore.GetByUserAndPlatform(ctx, userID, platform)
		if getErr == nil {
			connections = append(connections, conn)
			continue
		}
		if !errors.Is(getErr, ErrConnectionNotFound) {
			err = s.mapError(getErr)
			return nil, err
		}
		created, createErr := s.connectionStore.Create(ctx, CreateConnectionInput{
			UserID:      userID,
			Platform:    platform,
			IsConnected: platform == PlatformWebsite,
		})
		if createErr != nil {
			err = s.mapError(createErr)
			return nil, err
		}
		connections = append(connections, created)
	}
	return connections, nil
}

// Connect begins the OAuth handshake for a platform: it generates and
// stores a CSRF state, then asks the channel for the authorization URL.
func (s *Service) Connect(ctx context.Context, req ConnectRequest) (response BeginAuthResponse, err error) {
	startedAt := s.now()
	fields := map[string]any{
		"user_id":  req.UserID,
		"platform": req.Platform,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "connect", err, fields)
	}()

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		err = s.mapError(fmt.Errorf("core: user id is required"))
		return BeginAuthResponse{}, err
	}
	channel, chanErr := s.channelFor(req.Platform)
	if chanErr != nil {
		err = s.mapError(chanErr)
		return BeginAuthResponse{}, err
	}

	state, stateErr := generateOAuthState()
	if stateErr != nil {
		err = s.mapError(stateErr)
		return BeginAuthResponse{}, err
	}
	if s.oauthStateStore != nil {
		if saveErr := s.oauthStateStore.Save(ctx, OAuthStateRecord{
			State:       state,
			UserID:      userID,
			Platform:    req.Platform,
			RedirectURI: strings.TrimSpace(req.RedirectURI),
			Metadata:    copyAnyMap(req.Metadata),
		}); saveErr != nil {
			err = s.mapError(saveErr)
			return BeginAuthResponse{}, err
		}
	}

	response, err = channel.BeginAuth(ctx, BeginAuthRequest{
		UserID:      userID,
		RedirectURI: strings.TrimSpace(req.RedirectURI),
		State:       state,
		Metadata:    copyAnyMap(req.Metadata),
	})
	if err != nil {
		err = s.mapError(err)
		return BeginAuthResponse{}, err
	}
	if strings.TrimSpace(response.State) == "" {
		response.State = state
	}
	return response, nil
}

// CompleteCallback finishes the OAuth handshake: it consumes the stored
// state, exchanges the code through the channel, and upserts the
// connection with the settings the channel resolved. The connection
// comes back connected with no location selected yet.
func (s *Service) CompleteCallback(ctx context.Context, req CompleteCallbackRequest) (conn Connection, err error) {
	startedAt := s.now()
	fields := map[string]any{
		"user_id":  req.UserID,
		"platform": req.Platform,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "complete_callback", err, fields)
	}()

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		err = s.mapError(fmt.Errorf("core: user id is required"))
		return Connection{}, err
	}
	if strings.TrimSpace(req.Code) == "" {
		err = s.mapError(fmt.Errorf("core: authorization code is required"))
		return Connection{}, err
	}
	if s.connectionStore == nil {
		err = s.mapError(fmt.Errorf("core: connection store is not configured"))
		return Connection{}, err
	}
	channel, chanErr := s.channelFor(req.Platform)
	if chanErr != nil {
		err = s.mapError(chanErr)
		return Connection{}, err
	}

	if s.oauthStateStore != nil {
		record, consumeErr := s.oauthStateStore.Consume(ctx, req.State)
		if consumeErr != nil {
			err = s.mapError(consumeErr)
			return Connection{}, err
		}
		if record.UserID != userID || record.Platform != req.Platform {
			err = s.mapError(fmt.Errorf("core: oauth callback state mismatch"))
			return Connection{}, err
		}
		if strings.TrimSpace(req.RedirectURI) == "" {
			req.RedirectURI = record.RedirectURI
		}
	}

	authRes, authErr := channel.CompleteAuth(ctx, CompleteAuthRequest{
		UserID:      userID,
		Code:        req.Code,
		State:       req.State,
		RedirectURI: strings.TrimSpace(req.RedirectURI),
		Metadata:    copyAnyMap(req.Metadata),
	})
	if authErr != nil {
		err = s.mapError(authErr)
		return Connection{}, err
	}

	conn, err = s.upsertConnection(ctx, userID, req.Platform, authRes.Settings)
	if err != nil {
		err = s.mapError(err)
		return Connection{}, err
	}
	fields["connection_id"] = conn.ID

	s.recordActivity(ctx, ActivityEntry{
		UserID:   userID,
		Action:   "connect",
		Platform: req.Platform,
		Status:   ActivityStatusOK,
	})
	return conn, nil
}

func (s *Service) upsertConnection(ctx context.Context, userID string, platform Platform, settings ConnectionSettings) (Connection, error) {
	conn, err := s.connectionStore.GetByUserAndPlatform(ctx, userID, platform)
	if errors.Is(err, ErrConnectionNotFound) {
		return s.connectionStore.Create(ctx, CreateConnectionInput{
			UserID:      userID,
			Platform:    platform,
			IsConnected: true,
			Settings:    settings,
		})
	}
	if err != nil {
		return Connection{}, err
	}
	if err := s.connectionStore.SaveSettings(ctx, conn.ID, settings); err != nil {
		return Connection{}, err
	}
	if err := s.connectionStore.SetConnected(ctx, conn.ID, true); err != nil {
		return Connection{}, err
	}
	return s.connectionStore.Get(ctx, conn.ID)
}

// SelectLocation copies the chosen location's name and address from the
// resolved location list into the google connection settings.
func (s *Service) SelectLocation(ctx context.Context, req SelectLocationRequest) (conn Connection, err error) {
	startedAt := s.now()
	fields := map[string]any{
		"user_id":     req.UserID,
		"platform":    PlatformGoogleBusiness,
		"location_id": req.LocationID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "select_location", err, fields)
	}()

	userID := strings.TrimSpace(req.UserID)
	locationID := strings.TrimSpace(req.LocationID)
	if userID == "" {
		err = s.mapError(fmt.Errorf("core: user id is required"))
		return Connection{}, err
	}
	if locationID == "" {
		err = s.mapError(fmt.Errorf("core: location id is required"))
		return Connection{}, err
	}
	if s.connectionStore == nil {
		err = s.mapError(fmt.Errorf("core: connection store is not configured"))
		return Connection{}, err
	}

	conn, err = s.connectionStore.GetByUserAndPlatform(ctx, userID, PlatformGoogleBusiness)
	if err != nil {
		err = s.mapError(err)
		return Connection{}, err
	}
	settings := conn.Settings.Clone()
	if settings.Google == nil {
		err = s.mapError(fmt.Errorf("core: google connection has no settings"))
		return Connection{}, err
	}
	location, ok := settings.Google.LocationByID(locationID)
	if !ok {
		err = s.mapError(fmt.Errorf("core: invalid location id %q", locationID))
		return Connection{}, err
	}
	settings.Google.LocationID = location.ID
	settings.Google.LocationName = location.Name
	settings.Google.LocationAddress = location.Address

	if err = s.connectionStore.SaveSettings(ctx, conn.ID, settings); err != nil {
		err = s.mapError(err)
		return Connection{}, err
	}
	conn.Settings = settings
	fields["connection_id"] = conn.ID
	return conn, nil
}

// SetDeletionPolicy toggles whether expired specials are retracted from
// Google automatically.
func (s *Service) SetDeletionPolicy(ctx context.Context, req SetDeletionPolicyRequest) (conn Connection, err error) {
	startedAt := s.now()
	fields := map[string]any{
		"user_id":             req.UserID,
		"platform":            PlatformGoogleBusiness,
		"delete_when_expired": req.DeleteWhenExpired,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "set_deletion_policy", err, fields)
	}()

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		err = s.mapError(fmt.Errorf("core: user id is required"))
		return Connection{}, err
	}
	if s.connectionStore == nil {
		err = s.mapError(fmt.Errorf("core: connection store is not configured"))
		return Connection{}, err
	}

	conn, err = s.connectionStore.GetByUserAndPlatform(ctx, userID, PlatformGoogleBusiness)
	if err != nil {
		err = s.mapError(err)
		return Connection{}, err
	}
	settings := conn.Settings.Clone()
	if settings.Google == nil {
		settings.Google = &GoogleBusinessSettings{}
	}
	settings.Google.DeleteWhenExpired = req.DeleteWhenExpired

	if err = s.connectionStore.SaveSettings(ctx, conn.ID, settings); err != nil {
		err = s.mapError(err)
		return Connection{}, err
	}
	conn.Settings = settings
	fields["connection_id"] = conn.ID
	return conn, nil
}

// Disconnect flips the connection to disconnected. Settings are kept so
// a later reconnect reuses the same row.
func (s *Service) Disconnect(ctx context.Context, userID string, platform Platform) (conn Connection, err error) {
	startedAt := s.now()
	fields := map[string]any{
		"user_id":  userID,
		"platform": platform,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "disconnect", err, fields)
	}()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		err = s.mapError(fmt.Errorf("core: user id is required"))
		return Connection{}, err
	}
	if s.connectionStore == nil {
		err = s.mapError(fmt.Errorf("core: connection store is not configured"))
		return Connection{}, err
	}

	conn, err = s.connectionStore.GetByUserAndPlatform(ctx, userID, platform)
	if err != nil {
		err = s.mapError(err)
		return Connection{}, err
	}
	if err = s.connectionStore.SetConnected(ctx, conn.ID, false); err != nil {
		err = s.mapError(err)
		return Connection{}, err
	}
	conn.IsConnected = false
	fields["connection_id"] = conn.ID

	s.recordActivity(ctx, ActivityEntry{
		UserID:   userID,
		Action:   "disconnect",
		Platform: platform,
		Status:   ActivityStatusOK,
	})
	return conn, nil
}

var _ DistributionService = (*Service)(nil)
