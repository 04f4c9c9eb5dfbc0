package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/appertivo/go-distribution/core"
)

type stubConnectionReader struct {
	getFn               func(ctx context.Context, id string) (core.Connection, error)
	getByUserPlatformFn func(ctx context.Context, userID string, platform core.Platform) (core.Connection, error)
	listConnectedFn     func(ctx context.Context, userID string) ([]core.Connection, error)
}

func (r stubConnectionReader) Get(ctx context.Context, id string) (core.Connection, error) {
	if r.getFn == nil {
		return core.Connection{}, fmt.Errorf("get not configured")
	}
	return r.getFn(ctx, id)
}

func (r stubConnectionReader) GetByUserAndPlatform(ctx context.Context, userID string, platform core.Platform) (core.Connection, error) {
	if r.getByUserPlatformFn == nil {
		return core.Connection{}, fmt.Errorf("get by user and platform not configured")
	}
	return r.getByUserPlatformFn(ctx, userID, platform)
}

func (r stubConnectionReader) ListConnected(ctx context.Context, userID string) ([]core.Connection, error) {
	if r.listConnectedFn == nil {
		return nil, fmt.Errorf("list connected not configured")
	}
	return r.listConnectedFn(ctx, userID)
}

type stubSpecialReader struct {
	getFn func(ctx context.Context, id string) (core.Special, error)
}

func (r stubSpecialReader) Get(ctx context.Context, id string) (core.Special, error) {
	if r.getFn == nil {
		return core.Special{}, fmt.Errorf("get special not configured")
	}
	return r.getFn(ctx, id)
}

type stubActivityReader struct {
	listFn func(ctx context.Context, filter core.ActivityFilter) (core.ActivityPage, error)
}

func (r stubActivityReader) List(ctx context.Context, filter core.ActivityFilter) (core.ActivityPage, error) {
	if r.listFn == nil {
		return core.ActivityPage{}, fmt.Errorf("list activity not configured")
	}
	return r.listFn(ctx, filter)
}

func TestGetConnectionQuery_ResolvesByUserAndPlatform(t *testing.T) {
	reader := stubConnectionReader{
		getByUserPlatformFn: func(_ context.Context, userID string, platform core.Platform) (core.Connection, error) {
			if userID != "user_1" || platform != core.PlatformGoogleBusiness {
				t.Fatalf("unexpected lookup: %q %q", userID, platform)
			}
			return core.Connection{ID: "conn_1", UserID: userID, Platform: platform, IsConnected: true}, nil
		},
	}

	handler := NewGetConnectionQuery(reader)
	connection, err := handler.Query(context.Background(), GetConnectionMessage{
		UserID:   "user_1",
		Platform: core.PlatformGoogleBusiness,
	})
	if err != nil {
		t.Fatalf("query connection: %v", err)
	}
	if connection.ID != "conn_1" || !connection.IsConnected {
		t.Fatalf("unexpected connection: %+v", connection)
	}
}

func TestGetConnectionQuery_RequiresReader(t *testing.T) {
	handler := NewGetConnectionQuery(nil)
	if _, err := handler.Query(context.Background(), GetConnectionMessage{UserID: "user_1"}); err == nil {
		t.Fatalf("expected missing reader to be rejected")
	}
}

func TestGetConnectionQuery_ReaderErrorPropagates(t *testing.T) {
	reader := stubConnectionReader{
		getByUserPlatformFn: func(context.Context, string, core.Platform) (core.Connection, error) {
			return core.Connection{}, core.ErrConnectionNotFound
		},
	}

	handler := NewGetConnectionQuery(reader)
	if _, err := handler.Query(context.Background(), GetConnectionMessage{
		UserID:   "user_1",
		Platform: core.PlatformGoogleBusiness,
	}); err == nil {
		t.Fatalf("expected reader error to propagate")
	}
}

func TestListConnectedQuery_ReturnsConnections(t *testing.T) {
	reader := stubConnectionReader{
		listConnectedFn: func(_ context.Context, userID string) ([]core.Connection, error) {
			if userID != "user_1" {
				t.Fatalf("unexpected user id: %q", userID)
			}
			return []core.Connection{
				{ID: "conn_1", Platform: core.PlatformGoogleBusiness, IsConnected: true},
				{ID: "conn_2", Platform: core.PlatformWebsite, IsConnected: true},
			}, nil
		},
	}

	handler := NewListConnectedQuery(reader)
	connections, err := handler.Query(context.Background(), ListConnectedMessage{UserID: "user_1"})
	if err != nil {
		t.Fatalf("query connected connections: %v", err)
	}
	if len(connections) != 2 {
		t.Fatalf("expected 2 connections, got %d", len(connections))
	}
}

func TestGetSpecialQuery_ReturnsSpecial(t *testing.T) {
	reader := stubSpecialReader{
		getFn: func(_ context.Context, id string) (core.Special, error) {
			if id != "special_1" {
				t.Fatalf("unexpected special id: %q", id)
			}
			return core.Special{ID: id, Title: "Taco Tuesday", Status: core.SpecialStatusActive}, nil
		},
	}

	handler := NewGetSpecialQuery(reader)
	special, err := handler.Query(context.Background(), GetSpecialMessage{SpecialID: "special_1"})
	if err != nil {
		t.Fatalf("query special: %v", err)
	}
	if special.Title != "Taco Tuesday" {
		t.Fatalf("unexpected special: %+v", special)
	}
}

func TestGetSpecialQuery_RequiresReader(t *testing.T) {
	handler := NewGetSpecialQuery(nil)
	if _, err := handler.Query(context.Background(), GetSpecialMessage{SpecialID: "special_1"}); err == nil {
		t.Fatalf("expected missing reader to be rejected")
	}
}

func TestListActivityQuery_PassesFilterThrough(t *testing.T) {
	var captured core.ActivityFilter
	reader := stubActivityReader{
		listFn: func(_ context.Context, filter core.ActivityFilter) (core.ActivityPage, error) {
			captured = filter
			return core.ActivityPage{
				Items:   []core.ActivityEntry{{ID: "act_1", Action: "publish"}},
				Page:    1,
				PerPage: 20,
				Total:   1,
			}, nil
		},
	}

	handler := NewListActivityQuery(reader)
	page, err := handler.Query(context.Background(), ListActivityMessage{Filter: core.ActivityFilter{
		UserID:  "user_1",
		Action:  "publish",
		Page:    1,
		PerPage: 20,
	}})
	if err != nil {
		t.Fatalf("query activity: %v", err)
	}
	if captured.UserID != "user_1" || captured.Action != "publish" {
		t.Fatalf("expected the filter to reach the reader, got %+v", captured)
	}
	if len(page.Items) != 1 || page.Total != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestListActivityQuery_RequiresReader(t *testing.T) {
	handler := NewListActivityQuery(nil)
	if _, err := handler.Query(context.Background(), ListActivityMessage{}); err == nil {
		t.Fatalf("expected missing reader to be rejected")
	}
}

func TestQueryMessageValidation(t *testing.T) {
	cases := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{name: "get connection valid", msg: GetConnectionMessage{UserID: "user_1", Platform: core.PlatformGoogleBusiness}},
		{name: "get connection missing user", msg: GetConnectionMessage{Platform: core.PlatformGoogleBusiness}, wantErr: true},
		{name: "get connection invalid platform", msg: GetConnectionMessage{UserID: "user_1", Platform: "myspace"}, wantErr: true},
		{name: "list connected valid", msg: ListConnectedMessage{UserID: "user_1"}},
		{name: "list connected missing user", msg: ListConnectedMessage{}, wantErr: true},
		{name: "get special valid", msg: GetSpecialMessage{SpecialID: "special_1"}},
		{name: "get special missing id", msg: GetSpecialMessage{SpecialID: " "}, wantErr: true},
		{name: "list activity valid", msg: ListActivityMessage{Filter: core.ActivityFilter{Page: 1, PerPage: 20}}},
		{name: "list activity negative page", msg: ListActivityMessage{Filter: core.ActivityFilter{Page: -1}}, wantErr: true},
		{name: "list activity negative per page", msg: ListActivityMessage{Filter: core.ActivityFilter{PerPage: -5}}, wantErr: true},
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
	_ ConnectionReader = stubConnectionReader{}
	_ SpecialReader    = stubSpecialReader{}
	_ ActivityReader   = stubActivityReader{}
)
