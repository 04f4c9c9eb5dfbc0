package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/appertivo/go-distribution/core"
)

// MutatingService is the surface the command handlers drive. The
// concrete service satisfies it; tests use small fakes.
type MutatingService interface {
	EnsureDefaultConnections(ctx context.Context, userID string) ([]core.Connection, error)
	Connect(ctx context.Context, req core.ConnectRequest) (core.BeginAuthResponse, error)
	CompleteCallback(ctx context.Context, req core.CompleteCallbackRequest) (core.Connection, error)
	SelectLocation(ctx context.Context, req core.SelectLocationRequest) (core.Connection, error)
	SetDeletionPolicy(ctx context.Context, req core.SetDeletionPolicyRequest) (core.Connection, error)
	Disconnect(ctx context.Context, userID string, platform core.Platform) (core.Connection, error)
	PublishSpecial(ctx context.Context, specialID string) ([]core.DistributionReport, error)
	RetractSpecial(ctx context.Context, specialID string) ([]core.DistributionReport, error)
	ExpireOverdueSpecials(ctx context.Context) (core.SweepStats, error)
}

// LocationOverrideService is satisfied by services that can publish a
// special to one platform at an explicit location.
type LocationOverrideService interface {
	PublishSpecialAt(ctx context.Context, specialID string, platform core.Platform, locationID string) (core.DistributionReport, error)
}

type EnsureConnectionsCommand struct {
	service MutatingService
}

func NewEnsureConnectionsCommand(service MutatingService) *EnsureConnectionsCommand {
	return &EnsureConnectionsCommand{service: service}
}

func (c *EnsureConnectionsCommand) Execute(ctx context.Context, msg EnsureConnectionsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: distribution service is required")
	}
	out, err := c.service.EnsureDefaultConnections(ctx, msg.UserID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ConnectCommand struct {
	service MutatingService
}

func NewConnectCommand(service MutatingService) *ConnectCommand {
	return &ConnectCommand{service: service}
}

func (c *ConnectCommand) Execute(ctx context.Context, msg ConnectMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: connect service is required")
	}
	out, err := c.service.Connect(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CompleteCallbackCommand struct {
	service MutatingService
}

func NewCompleteCallbackCommand(service MutatingService) *CompleteCallbackCommand {
	return &CompleteCallbackCommand{service: service}
}

func (c *CompleteCallbackCommand) Execute(ctx context.Context, msg CompleteCallbackMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: callback service is required")
	}
	out, err := c.service.CompleteCallback(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SelectLocationCommand struct {
	service MutatingService
}

func NewSelectLocationCommand(service MutatingService) *SelectLocationCommand {
	return &SelectLocationCommand{service: service}
}

func (c *SelectLocationCommand) Execute(ctx context.Context, msg SelectLocationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: location service is required")
	}
	out, err := c.service.SelectLocation(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SetDeletionPolicyCommand struct {
	service MutatingService
}

func NewSetDeletionPolicyCommand(service MutatingService) *SetDeletionPolicyCommand {
	return &SetDeletionPolicyCommand{service: service}
}

func (c *SetDeletionPolicyCommand) Execute(ctx context.Context, msg SetDeletionPolicyMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: deletion policy service is required")
	}
	out, err := c.service.SetDeletionPolicy(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DisconnectCommand struct {
	service MutatingService
}

func NewDisconnectCommand(service MutatingService) *DisconnectCommand {
	return &DisconnectCommand{service: service}
}

func (c *DisconnectCommand) Execute(ctx context.Context, msg DisconnectMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: disconnect service is required")
	}
	out, err := c.service.Disconnect(ctx, msg.UserID, msg.Platform)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type PublishSpecialCommand struct {
	service MutatingService
}

func NewPublishSpecialCommand(service MutatingService) *PublishSpecialCommand {
	return &PublishSpecialCommand{service: service}
}

func (c *PublishSpecialCommand) Execute(ctx context.Context, msg PublishSpecialMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: publish service is required")
	}
	out, err := c.service.PublishSpecial(ctx, msg.SpecialID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type PublishSpecialAtCommand struct {
	service LocationOverrideService
}

func NewPublishSpecialAtCommand(service LocationOverrideService) *PublishSpecialAtCommand {
	return &PublishSpecialAtCommand{service: service}
}

func (c *PublishSpecialAtCommand) Execute(ctx context.Context, msg PublishSpecialAtMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: publish service is required")
	}
	out, err := c.service.PublishSpecialAt(ctx, msg.SpecialID, msg.Platform, msg.LocationID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RetractSpecialCommand struct {
	service MutatingService
}

func NewRetractSpecialCommand(service MutatingService) *RetractSpecialCommand {
	return &RetractSpecialCommand{service: service}
}

func (c *RetractSpecialCommand) Execute(ctx context.Context, msg RetractSpecialMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: retract service is required")
	}
	out, err := c.service.RetractSpecial(ctx, msg.SpecialID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RunSweepCommand struct {
	service MutatingService
}

func NewRunSweepCommand(service MutatingService) *RunSweepCommand {
	return &RunSweepCommand{service: service}
}

func (c *RunSweepCommand) Execute(ctx context.Context, msg RunSweepMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sweep service is required")
	}
	out, err := c.service.ExpireOverdueSpecials(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
