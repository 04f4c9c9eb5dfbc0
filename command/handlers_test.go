package command

import (
	"context"
	"fmt"
	"testing"

	gocmd "github.com/goliatone/go-command"

	"github.com/appertivo/go-distribution/core"
)

type stubMutatingService struct {
	ensureDefaultConnectionsFn func(ctx context.Context, userID string) ([]core.Connection, error)
	connectFn                  func(ctx context.Context, req core.ConnectRequest) (core.BeginAuthResponse, error)
	completeCallbackFn         func(ctx context.Context, req core.CompleteCallbackRequest) (core.Connection, error)
	selectLocationFn           func(ctx context.Context, req core.SelectLocationRequest) (core.Connection, error)
	setDeletionPolicyFn        func(ctx context.Context, req core.SetDeletionPolicyRequest) (core.Connection, error)
	disconnectFn               func(ctx context.Context, userID string, platform core.Platform) (core.Connection, error)
	publishSpecialFn           func(ctx context.Context, specialID string) ([]core.DistributionReport, error)
	publishSpecialAtFn         func(ctx context.Context, specialID string, platform core.Platform, locationID string) (core.DistributionReport, error)
	retractSpecialFn           func(ctx context.Context, specialID string) ([]core.DistributionReport, error)
	expireOverdueSpecialsFn    func(ctx context.Context) (core.SweepStats, error)
}

func (s stubMutatingService) EnsureDefaultConnections(ctx context.Context, userID string) ([]core.Connection, error) {
	if s.ensureDefaultConnectionsFn == nil {
		return nil, fmt.Errorf("ensure default connections not configured")
	}
	return s.ensureDefaultConnectionsFn(ctx, userID)
}

func (s stubMutatingService) Connect(ctx context.Context, req core.ConnectRequest) (core.BeginAuthResponse, error) {
	if s.connectFn == nil {
		return core.BeginAuthResponse{}, fmt.Errorf("connect not configured")
	}
	return s.connectFn(ctx, req)
}

func (s stubMutatingService) CompleteCallback(ctx context.Context, req core.CompleteCallbackRequest) (core.Connection, error) {
	if s.completeCallbackFn == nil {
		return core.Connection{}, fmt.Errorf("complete callback not configured")
	}
	return s.completeCallbackFn(ctx, req)
}

func (s stubMutatingService) SelectLocation(ctx context.Context, req core.SelectLocationRequest) (core.Connection, error) {
	if s.selectLocationFn == nil {
		return core.Connection{}, fmt.Errorf("select location not configured")
	}
	return s.selectLocationFn(ctx, req)
}

func (s stubMutatingService) SetDeletionPolicy(ctx context.Context, req core.SetDeletionPolicyRequest) (core.Connection, error) {
	if s.setDeletionPolicyFn == nil {
		return core.Connection{}, fmt.Errorf("set deletion policy not configured")
	}
	return s.setDeletionPolicyFn(ctx, req)
}

func (s stubMutatingService) Disconnect(ctx context.Context, userID string, platform core.Platform) (core.Connection, error) {
	if s.disconnectFn == nil {
		return core.Connection{}, fmt.Errorf("disconnect not configured")
	}
	return s.disconnectFn(ctx, userID, platform)
}

func (s stubMutatingService) PublishSpecial(ctx context.Context, specialID string) ([]core.DistributionReport, error) {
	if s.publishSpecialFn == nil {
		return nil, fmt.Errorf("publish special not configured")
	}
	return s.publishSpecialFn(ctx, specialID)
}

func (s stubMutatingService) PublishSpecialAt(ctx context.Context, specialID string, platform core.Platform, locationID string) (core.DistributionReport, error) {
	if s.publishSpecialAtFn == nil {
		return core.DistributionReport{}, fmt.Errorf("publish special at not configured")
	}
	return s.publishSpecialAtFn(ctx, specialID, platform, locationID)
}

func (s stubMutatingService) RetractSpecial(ctx context.Context, specialID string) ([]core.DistributionReport, error) {
	if s.retractSpecialFn == nil {
		return nil, fmt.Errorf("retract special not configured")
	}
	return s.retractSpecialFn(ctx, specialID)
}

func (s stubMutatingService) ExpireOverdueSpecials(ctx context.Context) (core.SweepStats, error) {
	if s.expireOverdueSpecialsFn == nil {
		return core.SweepStats{}, fmt.Errorf("expire overdue specials not configured")
	}
	return s.expireOverdueSpecialsFn(ctx)
}

func TestEnsureConnectionsCommand_StoresCreatedConnections(t *testing.T) {
	service := stubMutatingService{
		ensureDefaultConnectionsFn: func(_ context.Context, userID string) ([]core.Connection, error) {
			if userID != "user_1" {
				t.Fatalf("expected user_1, got %q", userID)
			}
			return []core.Connection{
				{ID: "conn_1", UserID: userID, Platform: core.PlatformWebsite, IsConnected: true},
				{ID: "conn_2", UserID: userID, Platform: core.PlatformGoogleBusiness},
			}, nil
		},
	}

	collector := gocmd.NewResult[[]core.Connection]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	handler := NewEnsureConnectionsCommand(service)
	if err := handler.Execute(ctx, EnsureConnectionsMessage{UserID: "user_1"}); err != nil {
		t.Fatalf("execute ensure connections: %v", err)
	}

	connections, ok := collector.Load()
	if !ok {
		t.Fatalf("expected connections in the result collector")
	}
	if len(connections) != 2 {
		t.Fatalf("expected 2 connections, got %d", len(connections))
	}
	if connections[0].ID != "conn_1" || !connections[0].IsConnected {
		t.Fatalf("unexpected first connection: %+v", connections[0])
	}
}

func TestEnsureConnectionsCommand_RequiresService(t *testing.T) {
	handler := NewEnsureConnectionsCommand(nil)
	if err := handler.Execute(context.Background(), EnsureConnectionsMessage{UserID: "user_1"}); err == nil {
		t.Fatalf("expected missing service to be rejected")
	}
}

func TestConnectCommand_StoresBeginAuthResponse(t *testing.T) {
	service := stubMutatingService{
		connectFn: func(_ context.Context, req core.ConnectRequest) (core.BeginAuthResponse, error) {
			if req.Platform != core.PlatformGoogleBusiness {
				t.Fatalf("unexpected platform: %q", req.Platform)
			}
			return core.BeginAuthResponse{URL: "https://auth.test/consent?state=state_1", State: "state_1"}, nil
		},
	}

	collector := gocmd.NewResult[core.BeginAuthResponse]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	handler := NewConnectCommand(service)
	err := handler.Execute(ctx, ConnectMessage{Request: core.ConnectRequest{
		UserID:   "user_1",
		Platform: core.PlatformGoogleBusiness,
	}})
	if err != nil {
		t.Fatalf("execute connect: %v", err)
	}

	response, ok := collector.Load()
	if !ok {
		t.Fatalf("expected a begin auth response in the result collector")
	}
	if response.State != "state_1" {
		t.Fatalf("expected issued state, got %q", response.State)
	}
}

func TestConnectCommand_ServiceErrorPropagates(t *testing.T) {
	service := stubMutatingService{
		connectFn: func(context.Context, core.ConnectRequest) (core.BeginAuthResponse, error) {
			return core.BeginAuthResponse{}, fmt.Errorf("channel not registered")
		},
	}

	handler := NewConnectCommand(service)
	err := handler.Execute(context.Background(), ConnectMessage{Request: core.ConnectRequest{
		UserID:   "user_1",
		Platform: core.PlatformGoogleBusiness,
	}})
	if err == nil {
		t.Fatalf("expected service error to propagate")
	}
}

func TestCompleteCallbackCommand_StoresConnection(t *testing.T) {
	service := stubMutatingService{
		completeCallbackFn: func(_ context.Context, req core.CompleteCallbackRequest) (core.Connection, error) {
			if req.Code != "auth_code" || req.State != "state_1" {
				t.Fatalf("unexpected callback request: %+v", req)
			}
			return core.Connection{ID: "conn_1", Platform: req.Platform, IsConnected: true}, nil
		},
	}

	collector := gocmd.NewResult[core.Connection]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	handler := NewCompleteCallbackCommand(service)
	err := handler.Execute(ctx, CompleteCallbackMessage{Request: core.CompleteCallbackRequest{
		UserID:   "user_1",
		Platform: core.PlatformGoogleBusiness,
		Code:     "auth_code",
		State:    "state_1",
	}})
	if err != nil {
		t.Fatalf("execute complete callback: %v", err)
	}

	connection, ok := collector.Load()
	if !ok {
		t.Fatalf("expected a connection in the result collector")
	}
	if !connection.IsConnected {
		t.Fatalf("expected a connected connection, got %+v", connection)
	}
}

func TestSelectLocationCommand_StoresConnection(t *testing.T) {
	service := stubMutatingService{
		selectLocationFn: func(_ context.Context, req core.SelectLocationRequest) (core.Connection, error) {
			if req.LocationID != "111" {
				t.Fatalf("unexpected location id: %q", req.LocationID)
			}
			return core.Connection{ID: "conn_1", IsConnected: true}, nil
		},
	}

	collector := gocmd.NewResult[core.Connection]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	handler := NewSelectLocationCommand(service)
	err := handler.Execute(ctx, SelectLocationMessage{Request: core.SelectLocationRequest{
		UserID:     "user_1",
		LocationID: "111",
	}})
	if err != nil {
		t.Fatalf("execute select location: %v", err)
	}

	if _, ok := collector.Load(); !ok {
		t.Fatalf("expected a connection in the result collector")
	}
}

func TestSetDeletionPolicyCommand_StoresConnection(t *testing.T) {
	var captured core.SetDeletionPolicyRequest
	service := stubMutatingService{
		setDeletionPolicyFn: func(_ context.Context, req core.SetDeletionPolicyRequest) (core.Connection, error) {
			captured = req
			return core.Connection{ID: "conn_1"}, nil
		},
	}

	collector := gocmd.NewResult[core.Connection]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	handler := NewSetDeletionPolicyCommand(service)
	err := handler.Execute(ctx, SetDeletionPolicyMessage{Request: core.SetDeletionPolicyRequest{
		UserID:            "user_1",
		DeleteWhenExpired: true,
	}})
	if err != nil {
		t.Fatalf("execute set deletion policy: %v", err)
	}
	if !captured.DeleteWhenExpired {
		t.Fatalf("expected deletion policy flag to reach the service")
	}
	if _, ok := collector.Load(); !ok {
		t.Fatalf("expected a connection in the result collector")
	}
}

func TestDisconnectCommand_StoresConnection(t *testing.T) {
	service := stubMutatingService{
		disconnectFn: func(_ context.Context, userID string, platform core.Platform) (core.Connection, error) {
			if userID != "user_1" || platform != core.PlatformGoogleBusiness {
				t.Fatalf("unexpected disconnect arguments: %q %q", userID, platform)
			}
			return core.Connection{ID: "conn_1", IsConnected: false}, nil
		},
	}

	collector := gocmd.NewResult[core.Connection]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	handler := NewDisconnectCommand(service)
	err := handler.Execute(ctx, DisconnectMessage{UserID: "user_1", Platform: core.PlatformGoogleBusiness})
	if err != nil {
		t.Fatalf("execute disconnect: %v", err)
	}

	connection, ok := collector.Load()
	if !ok {
		t.Fatalf("expected a connection in the result collector")
	}
	if connection.IsConnected {
		t.Fatalf("expected a disconnected connection")
	}
}

func TestPublishSpecialCommand_StoresReports(t *testing.T) {
	service := stubMutatingService{
		publishSpecialFn: func(_ context.Context, specialID string) ([]core.DistributionReport, error) {
			if specialID != "special_1" {
				t.Fatalf("unexpected special id: %q", specialID)
			}
			return []core.DistributionReport{
				{
					Platform:       core.PlatformGoogleBusiness,
					SpecialID:      specialID,
					Outcome:        core.OutcomePublished,
					RemotePostName: "accounts/987/locations/111/localPosts/42",
				},
			}, nil
		},
	}

	collector := gocmd.NewResult[[]core.DistributionReport]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	handler := NewPublishSpecialCommand(service)
	if err := handler.Execute(ctx, PublishSpecialMessage{SpecialID: "special_1"}); err != nil {
		t.Fatalf("execute publish special: %v", err)
	}

	reports, ok := collector.Load()
	if !ok {
		t.Fatalf("expected reports in the result collector")
	}
	if len(reports) != 1 || reports[0].Outcome != core.OutcomePublished {
		t.Fatalf("unexpected reports: %+v", reports)
	}
}

func TestPublishSpecialAtCommand_StoresSingleReport(t *testing.T) {
	service := stubMutatingService{
		publishSpecialAtFn: func(_ context.Context, specialID string, platform core.Platform, locationID string) (core.DistributionReport, error) {
			if specialID != "special_1" || platform != core.PlatformGoogleBusiness || locationID != "222" {
				t.Fatalf("unexpected override arguments: %q %q %q", specialID, platform, locationID)
			}
			return core.DistributionReport{
				Platform:  platform,
				SpecialID: specialID,
				Outcome:   core.OutcomePublished,
			}, nil
		},
	}

	collector := gocmd.NewResult[core.DistributionReport]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	handler := NewPublishSpecialAtCommand(service)
	err := handler.Execute(ctx, PublishSpecialAtMessage{
		SpecialID:  "special_1",
		Platform:   core.PlatformGoogleBusiness,
		LocationID: "222",
	})
	if err != nil {
		t.Fatalf("execute publish special at: %v", err)
	}

	report, ok := collector.Load()
	if !ok {
		t.Fatalf("expected a report in the result collector")
	}
	if report.Outcome != core.OutcomePublished {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestRetractSpecialCommand_StoresReports(t *testing.T) {
	service := stubMutatingService{
		retractSpecialFn: func(_ context.Context, specialID string) ([]core.DistributionReport, error) {
			return []core.DistributionReport{
				{Platform: core.PlatformGoogleBusiness, SpecialID: specialID, Outcome: core.OutcomeRetracted},
			}, nil
		},
	}

	collector := gocmd.NewResult[[]core.DistributionReport]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	handler := NewRetractSpecialCommand(service)
	if err := handler.Execute(ctx, RetractSpecialMessage{SpecialID: "special_1"}); err != nil {
		t.Fatalf("execute retract special: %v", err)
	}

	reports, ok := collector.Load()
	if !ok {
		t.Fatalf("expected reports in the result collector")
	}
	if len(reports) != 1 || reports[0].Outcome != core.OutcomeRetracted {
		t.Fatalf("unexpected reports: %+v", reports)
	}
}

func TestRunSweepCommand_StoresStats(t *testing.T) {
	service := stubMutatingService{
		expireOverdueSpecialsFn: func(context.Context) (core.SweepStats, error) {
			return core.SweepStats{Scanned: 3, Expired: 2, Retracted: 1, Skipped: 1}, nil
		},
	}

	collector := gocmd.NewResult[core.SweepStats]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	handler := NewRunSweepCommand(service)
	if err := handler.Execute(ctx, RunSweepMessage{}); err != nil {
		t.Fatalf("execute run sweep: %v", err)
	}

	stats, ok := collector.Load()
	if !ok {
		t.Fatalf("expected sweep stats in the result collector")
	}
	if stats.Expired != 2 || stats.Retracted != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestCommandsExecuteWithoutCollector(t *testing.T) {
	service := stubMutatingService{
		publishSpecialFn: func(context.Context, string) ([]core.DistributionReport, error) {
			return nil, nil
		},
	}

	handler := NewPublishSpecialCommand(service)
	if err := handler.Execute(context.Background(), PublishSpecialMessage{SpecialID: "special_1"}); err != nil {
		t.Fatalf("expected execution without a collector to succeed: %v", err)
	}
}

func TestMessageValidation(t *testing.T) {
	cases := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{name: "ensure connections valid", msg: EnsureConnectionsMessage{UserID: "user_1"}},
		{name: "ensure connections missing user", msg: EnsureConnectionsMessage{}, wantErr: true},
		{name: "connect valid", msg: ConnectMessage{Request: core.ConnectRequest{UserID: "user_1", Platform: core.PlatformGoogleBusiness}}},
		{name: "connect missing user", msg: ConnectMessage{Request: core.ConnectRequest{Platform: core.PlatformGoogleBusiness}}, wantErr: true},
		{name: "connect invalid platform", msg: ConnectMessage{Request: core.ConnectRequest{UserID: "user_1", Platform: "myspace"}}, wantErr: true},
		{name: "callback valid", msg: CompleteCallbackMessage{Request: core.CompleteCallbackRequest{UserID: "user_1", Platform: core.PlatformGoogleBusiness, Code: "auth_code"}}},
		{name: "callback missing code", msg: CompleteCallbackMessage{Request: core.CompleteCallbackRequest{UserID: "user_1", Platform: core.PlatformGoogleBusiness}}, wantErr: true},
		{name: "select location valid", msg: SelectLocationMessage{Request: core.SelectLocationRequest{UserID: "user_1", LocationID: "111"}}},
		{name: "select location missing location", msg: SelectLocationMessage{Request: core.SelectLocationRequest{UserID: "user_1"}}, wantErr: true},
		{name: "deletion policy valid", msg: SetDeletionPolicyMessage{Request: core.SetDeletionPolicyRequest{UserID: "user_1"}}},
		{name: "deletion policy missing user", msg: SetDeletionPolicyMessage{}, wantErr: true},
		{name: "disconnect valid", msg: DisconnectMessage{UserID: "user_1", Platform: core.PlatformDelivery}},
		{name: "disconnect invalid platform", msg: DisconnectMessage{UserID: "user_1", Platform: "myspace"}, wantErr: true},
		{name: "publish valid", msg: PublishSpecialMessage{SpecialID: "special_1"}},
		{name: "publish missing special", msg: PublishSpecialMessage{SpecialID: "  "}, wantErr: true},
		{name: "publish at valid", msg: PublishSpecialAtMessage{SpecialID: "special_1", Platform: core.PlatformGoogleBusiness, LocationID: "222"}},
		{name: "publish at missing special", msg: PublishSpecialAtMessage{Platform: core.PlatformGoogleBusiness}, wantErr: true},
		{name: "retract valid", msg: RetractSpecialMessage{SpecialID: "special_1"}},
		{name: "retract missing special", msg: RetractSpecialMessage{}, wantErr: true},
		{name: "sweep always valid", msg: RunSweepMessage{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

var (
	_ MutatingService         = stubMutatingService{}
	_ LocationOverrideService = stubMutatingService{}
)
