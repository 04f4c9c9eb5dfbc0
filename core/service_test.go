package core

import (
	"context"
	"strings"
	"testing"
)

func TestEnsureDefaultConnections_CreatesOneRowPerPlatform(t *testing.T) {
	env := newTestService(t)

	connections, err := env.Service.EnsureDefaultConnections(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("ensure default connections: %v", err)
	}
	if len(connections) != len(KnownPlatforms()) {
		t.Fatalf("expected %d connections, got %d", len(KnownPlatforms()), len(connections))
	}
	for _, conn := range connections {
		wantConnected := conn.Platform == PlatformWebsite
		if conn.IsConnected != wantConnected {
			t.Fatalf("platform %s: expected is_connected=%v, got %v", conn.Platform, wantConnected, conn.IsConnected)
		}
	}

	again, err := env.Service.EnsureDefaultConnections(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if len(again) != len(connections) {
		t.Fatalf("expected idempotent ensure, got %d rows", len(again))
	}
}

func TestEnsureDefaultConnections_RequiresUserID(t *testing.T) {
	env := newTestService(t)
	if _, err := env.Service.EnsureDefaultConnections(context.Background(), "  "); err == nil {
		t.Fatalf("expected blank user id to be rejected")
	}
}

func TestConnect_GeneratesStateAndDelegatesToChannel(t *testing.T) {
	registry := NewChannelRegistry()
	channel := newTestChannel(PlatformGoogleBusiness)
	if err := registry.Register(channel); err != nil {
		t.Fatalf("register channel: %v", err)
	}
	env := newTestService(t, WithRegistry(registry))

	response, err := env.Service.Connect(context.Background(), ConnectRequest{
		UserID:   "user_1",
		Platform: PlatformGoogleBusiness,
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if response.State == "" {
		t.Fatalf("expected a state to be issued")
	}
	if !strings.Contains(response.URL, response.State) {
		t.Fatalf("expected auth url to carry the state, got %q", response.URL)
	}
}

func TestConnect_UnknownPlatformFails(t *testing.T) {
	env := newTestService(t)
	if _, err := env.Service.Connect(context.Background(), ConnectRequest{
		UserID:   "user_1",
		Platform: PlatformGoogleBusiness,
	}); err == nil {
		t.Fatalf("expected connect without a registered channel to fail")
	}
}

func TestCompleteCallback_UpsertsConnectionWithResolvedSettings(t *testing.T) {
	registry := NewChannelRegistry()
	channel := newTestChannel(PlatformGoogleBusiness)
	channel.authSettings = ConnectionSettings{
		Google: &GoogleBusinessSettings{
			AccessToken:  "access_token",
			RefreshToken: "refresh_token",
			AccountID:    "accounts/123",
			Locations:    []Location{{ID: "locations/1", Name: "Downtown"}},
		},
	}
	if err := registry.Register(channel); err != nil {
		t.Fatalf("register channel: %v", err)
	}
	env := newTestService(t, WithRegistry(registry))

	begin, err := env.Service.Connect(context.Background(), ConnectRequest{
		UserID:   "user_1",
		Platform: PlatformGoogleBusiness,
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	conn, err := env.Service.CompleteCallback(context.Background(), CompleteCallbackRequest{
		UserID:   "user_1",
		Platform: PlatformGoogleBusiness,
		Code:     "auth_code",
		State:    begin.State,
	})
	if err != nil {
		t.Fatalf("complete callback: %v", err)
	}
	if !conn.IsConnected {
		t.Fatalf("expected connection to come back connected")
	}
	if conn.Settings.Google == nil || conn.Settings.Google.AccessToken != "access_token" {
		t.Fatalf("expected resolved settings to be stored, got %+v", conn.Settings.Google)
	}
	if conn.Settings.Google.LocationID != "" {
		t.Fatalf("expected no location to be selected yet")
	}
	if entries := env.Activity.byAction("connect"); len(entries) != 1 {
		t.Fatalf("expected one connect activity entry, got %d", len(entries))
	}
}

func TestCompleteCallback_RejectsStateMismatch(t *testing.T) {
	registry := NewChannelRegistry()
	channel := newTestChannel(PlatformGoogleBusiness)
	if err := registry.Register(channel); err != nil {
		t.Fatalf("register channel: %v", err)
	}
	env := newTestService(t, WithRegistry(registry))

	begin, err := env.Service.Connect(context.Background(), ConnectRequest{
		UserID:   "user_1",
		Platform: PlatformGoogleBusiness,
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	if _, err := env.Service.CompleteCallback(context.Background(), CompleteCallbackRequest{
		UserID:   "user_2",
		Platform: PlatformGoogleBusiness,
		Code:     "auth_code",
		State:    begin.State,
	}); err == nil {
		t.Fatalf("expected state bound to another user to be rejected")
	}

	if _, err := env.Service.CompleteCallback(context.Background(), CompleteCallbackRequest{
		UserID:   "user_1",
		Platform: PlatformGoogleBusiness,
		Code:     "auth_code",
		State:    "forged_state",
	}); err == nil {
		t.Fatalf("expected unknown state to be rejected")
	}
}

func TestSelectLocation_CopiesNameAndAddress(t *testing.T) {
	env := newTestService(t)
	seeded, err := env.Connections.Create(context.Background(), CreateConnectionInput{
		UserID:      "user_1",
		Platform:    PlatformGoogleBusiness,
		IsConnected: true,
		Settings: ConnectionSettings{
			Google: &GoogleBusinessSettings{
				Locations: []Location{
					{ID: "locations/1", Name: "Downtown", Address: "1 Main St"},
					{ID: "locations/2", Name: "Uptown", Address: "9 High St"},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("seed connection: %v", err)
	}

	conn, err := env.Service.SelectLocation(context.Background(), SelectLocationRequest{
		UserID:     "user_1",
		LocationID: "locations/2",
	})
	if err != nil {
		t.Fatalf("select location: %v", err)
	}
	if conn.Settings.Google.LocationID != "locations/2" {
		t.Fatalf("expected location id to be set, got %q", conn.Settings.Google.LocationID)
	}
	if conn.Settings.Google.LocationName != "Uptown" || conn.Settings.Google.LocationAddress != "9 High St" {
		t.Fatalf("expected location name and address to be copied, got %+v", conn.Settings.Google)
	}

	stored, err := env.Connections.Get(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("reload connection: %v", err)
	}
	if stored.Settings.Google.LocationID != "locations/2" {
		t.Fatalf("expected selection to be persisted")
	}

	if _, err := env.Service.SelectLocation(context.Background(), SelectLocationRequest{
		UserID:     "user_1",
		LocationID: "locations/999",
	}); err == nil {
		t.Fatalf("expected unknown location id to be rejected")
	}
}

func TestSetDeletionPolicy_InitializesSettingsWhenMissing(t *testing.T) {
	env := newTestService(t)
	if _, err := env.Connections.Create(context.Background(), CreateConnectionInput{
		UserID:   "user_1",
		Platform: PlatformGoogleBusiness,
	}); err != nil {
		t.Fatalf("seed connection: %v", err)
	}

	conn, err := env.Service.SetDeletionPolicy(context.Background(), SetDeletionPolicyRequest{
		UserID:            "user_1",
		DeleteWhenExpired: true,
	})
	if err != nil {
		t.Fatalf("set deletion policy: %v", err)
	}
	if conn.Settings.Google == nil || !conn.Settings.Google.DeleteWhenExpired {
		t.Fatalf("expected delete_when_expired to be set, got %+v", conn.Settings.Google)
	}
}

func TestDisconnect_KeepsSettingsForReconnect(t *testing.T) {
	env := newTestService(t)
	seeded, err := env.Connections.Create(context.Background(), CreateConnectionInput{
		UserID:      "user_1",
		Platform:    PlatformGoogleBusiness,
		IsConnected: true,
		Settings: ConnectionSettings{
			Google: &GoogleBusinessSettings{AccessToken: "access_token"},
		},
	})
	if err != nil {
		t.Fatalf("seed connection: %v", err)
	}

	conn, err := env.Service.Disconnect(context.Background(), "user_1", PlatformGoogleBusiness)
	if err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if conn.IsConnected {
		t.Fatalf("expected connection to be disconnected")
	}

	stored, err := env.Connections.Get(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("reload connection: %v", err)
	}
	if stored.IsConnected {
		t.Fatalf("expected disconnect to be persisted")
	}
	if stored.Settings.Google == nil || stored.Settings.Google.AccessToken != "access_token" {
		t.Fatalf("expected settings to survive disconnect")
	}
	if entries := env.Activity.byAction("disconnect"); len(entries) != 1 {
		t.Fatalf("expected one disconnect activity entry, got %d", len(entries))
	}
}
