package distribution

import (
	"fmt"
	"reflect"

	distributioncommand "github.com/appertivo/go-distribution/command"
	"github.com/appertivo/go-distribution/core"
	distributionquery "github.com/appertivo/go-distribution/query"
)

// CommandQueryService is what the facade wraps: the mutating surface
// plus the per-platform location override.
type CommandQueryService interface {
	distributioncommand.MutatingService
	distributioncommand.LocationOverrideService
}

type Commands struct {
	EnsureConnections *distributioncommand.EnsureConnectionsCommand
	Connect           *distributioncommand.ConnectCommand
	CompleteCallback  *distributioncommand.CompleteCallbackCommand
	SelectLocation    *distributioncommand.SelectLocationCommand
	SetDeletionPolicy *distributioncommand.SetDeletionPolicyCommand
	Disconnect        *distributioncommand.DisconnectCommand
	PublishSpecial    *distributioncommand.PublishSpecialCommand
	PublishSpecialAt  *distributioncommand.PublishSpecialAtCommand
	RetractSpecial    *distributioncommand.RetractSpecialCommand
	RunSweep          *distributioncommand.RunSweepCommand
}

type Queries struct {
	GetConnection *distributionquery.GetConnectionQuery
	ListConnected *distributionquery.ListConnectedQuery
	GetSpecial    *distributionquery.GetSpecialQuery
	ListActivity  *distributionquery.ListActivityQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	connectionReader distributionquery.ConnectionReader
	specialReader    distributionquery.SpecialReader
	activityReader   distributionquery.ActivityReader
}

func WithConnectionReader(reader distributionquery.ConnectionReader) FacadeOption {
	return func(options *facadeOptions) {
		options.connectionReader = reader
	}
}

func WithSpecialReader(reader distributionquery.SpecialReader) FacadeOption {
	return func(options *facadeOptions) {
		options.specialReader = reader
	}
}

func WithActivityReader(reader distributionquery.ActivityReader) FacadeOption {
	return func(options *facadeOptions) {
		options.activityReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("distribution: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	deps := resolveDependencies(service)
	if cfg.connectionReader == nil && deps.ConnectionStore != nil {
		cfg.connectionReader = deps.ConnectionStore
	}
	if cfg.specialReader == nil && deps.SpecialStore != nil {
		cfg.specialReader = deps.SpecialStore
	}
	if cfg.activityReader == nil {
		cfg.activityReader = resolveActivityReader(service, deps)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		EnsureConnections: distributioncommand.NewEnsureConnectionsCommand(service),
		Connect:           distributioncommand.NewConnectCommand(service),
		CompleteCallback:  distributioncommand.NewCompleteCallbackCommand(service),
		SelectLocation:    distributioncommand.NewSelectLocationCommand(service),
		SetDeletionPolicy: distributioncommand.NewSetDeletionPolicyCommand(service),
		Disconnect:        distributioncommand.NewDisconnectCommand(service),
		PublishSpecial:    distributioncommand.NewPublishSpecialCommand(service),
		PublishSpecialAt:  distributioncommand.NewPublishSpecialAtCommand(service),
		RetractSpecial:    distributioncommand.NewRetractSpecialCommand(service),
		RunSweep:          distributioncommand.NewRunSweepCommand(service),
	}
	facade.queries = Queries{
		GetConnection: distributionquery.NewGetConnectionQuery(cfg.connectionReader),
		ListConnected: distributionquery.NewListConnectedQuery(cfg.connectionReader),
		GetSpecial:    distributionquery.NewGetSpecialQuery(cfg.specialReader),
		ListActivity:  distributionquery.NewListActivityQuery(cfg.activityReader),
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

func resolveDependencies(service CommandQueryService) core.ServiceDependencies {
	provider, ok := service.(interface {
		Dependencies() core.ServiceDependencies
	})
	if !ok {
		return core.ServiceDependencies{}
	}
	return provider.Dependencies()
}

// resolveActivityReader prefers the sink wired into the service and
// falls back to an ActivityStore method on the repository factory,
// mirrored via reflection so the factory stays an opaque dependency.
func resolveActivityReader(service CommandQueryService, deps core.ServiceDependencies) distributionquery.ActivityReader {
	if deps.ActivitySink != nil {
		return deps.ActivitySink
	}
	if reader, ok := service.(distributionquery.ActivityReader); ok {
		return reader
	}
	if deps.RepositoryFactory == nil {
		return nil
	}

	factoryValue := reflect.ValueOf(deps.RepositoryFactory)
	if !factoryValue.IsValid() {
		return nil
	}
	if factoryValue.Kind() == reflect.Ptr && factoryValue.IsNil() {
		return nil
	}
	method := factoryValue.MethodByName("ActivityStore")
	if !method.IsValid() || method.Type().NumIn() != 0 || method.Type().NumOut() != 1 {
		return nil
	}

	results, ok := safeReflectCall(method)
	if !ok || len(results) != 1 {
		return nil
	}
	candidate := results[0]
	if !candidate.IsValid() {
		return nil
	}
	if candidate.Kind() == reflect.Ptr && candidate.IsNil() {
		return nil
	}
	reader, ok := candidate.Interface().(distributionquery.ActivityReader)
	if !ok {
		return nil
	}
	return reader
}

func safeReflectCall(method reflect.Value) (_ []reflect.Value, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return method.Call(nil), true
}
