package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

type testConnectionStore struct {
	mu   sync.Mutex
	next int
	byID map[string]Connection
}

func newTestConnectionStore() *testConnectionStore {
	return &testConnectionStore{byID: map[string]Connection{}}
}

func (s *testConnectionStore) Get(_ context.Context, id string) (Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.byID[id]
	if !ok {
		return Connection{}, fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	return cloneTestConnection(conn), nil
}

func (s *testConnectionStore) GetByUserAndPlatform(_ context.Context, userID string, platform Platform) (Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.byID {
		if conn.UserID == userID && conn.Platform == platform {
			return cloneTestConnection(conn), nil
		}
	}
	return Connection{}, fmt.Errorf("%w: %s/%s", ErrConnectionNotFound, userID, platform)
}

func (s *testConnectionStore) ListConnected(_ context.Context, userID string) ([]Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Connection
	for _, conn := range s.byID {
		if conn.UserID == userID && conn.IsConnected {
			out = append(out, cloneTestConnection(conn))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}

func (s *testConnectionStore) Create(_ context.Context, in CreateConnectionInput) (Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(in.UserID) == "" {
		return Connection{}, fmt.Errorf("user id is required")
	}
	for _, existing := range s.byID {
		if existing.UserID == in.UserID && existing.Platform == in.Platform {
			return Connection{}, fmt.Errorf("duplicate connection")
		}
	}
	s.next++
	conn := Connection{
		ID:          fmt.Sprintf("conn_%d", s.next),
		UserID:      in.UserID,
		Platform:    in.Platform,
		IsConnected: in.IsConnected,
		Settings:    in.Settings.Clone(),
	}
	s.byID[conn.ID] = conn
	return cloneTestConnection(conn), nil
}

func (s *testConnectionStore) SaveSettings(_ context.Context, id string, settings ConnectionSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	conn.Settings = settings.Clone()
	s.byID[id] = conn
	return nil
}

func (s *testConnectionStore) SetConnected(_ context.Context, id string, connected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	conn.IsConnected = connected
	s.byID[id] = conn
	return nil
}

func cloneTestConnection(conn Connection) Connection {
	cloned := conn
	cloned.Settings = conn.Settings.Clone()
	return cloned
}

type testSpecialStore struct {
	mu   sync.Mutex
	byID map[string]Special
}

func newTestSpecialStore() *testSpecialStore {
	return &testSpecialStore{byID: map[string]Special{}}
}

func (s *testSpecialStore) put(special Special) {
	s.mu.Lock()
	s.byID[special.ID] = special
	s.mu.Unlock()
}

func (s *testSpecialStore) Get(_ context.Context, id string) (Special, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	special, ok := s.byID[id]
	if !ok {
		return Special{}, fmt.Errorf("%w: %s", ErrSpecialNotFound, id)
	}
	return special, nil
}

func (s *testSpecialStore) ListExpired(_ context.Context, asOf time.Time) ([]Special, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Special
	for _, special := range s.byID {
		if special.Status != SpecialStatusActive {
			continue
		}
		if special.EndDate == nil || !special.EndDate.Before(asOf) {
			continue
		}
		out = append(out, special)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *testSpecialStore) UpdateStatus(_ context.Context, id string, status SpecialStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	special, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSpecialNotFound, id)
	}
	if err := special.TransitionTo(status, time.Now().UTC()); err != nil {
		return err
	}
	s.byID[id] = special
	return nil
}

func (s *testSpecialStore) SetRemotePostName(_ context.Context, id string, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	special, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSpecialNotFound, id)
	}
	special.RemotePostName = strings.TrimSpace(name)
	s.byID[id] = special
	return nil
}

type testActivitySink struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func (s *testActivitySink) Record(_ context.Context, entry ActivityEntry) error {
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
	return nil
}

func (s *testActivitySink) List(_ context.Context, filter ActivityFilter) (ActivityPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := append([]ActivityEntry(nil), s.entries...)
	return ActivityPage{Items: items, Page: 1, PerPage: len(items), Total: len(items)}, nil
}

func (s *testActivitySink) byAction(action string) []ActivityEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ActivityEntry
	for _, entry := range s.entries {
		if entry.Action == action {
			out = append(out, entry)
		}
	}
	return out
}

type publishCall struct {
	Connection Connection
	Special    Special
	LocationID string
}

type testChannel struct {
	mu            sync.Mutex
	platform      Platform
	authURL       string
	authSettings  ConnectionSettings
	publishReport DistributionReport
	retractReport DistributionReport
	publishCalls  []publishCall
	retractCalls  []publishCall
}

func newTestChannel(platform Platform) *testChannel {
	return &testChannel{
		platform: platform,
		authURL:  "https://auth.example.com/start",
	}
}

func (c *testChannel) Platform() Platform { return c.platform }

func (c *testChannel) BeginAuth(_ context.Context, req BeginAuthRequest) (BeginAuthResponse, error) {
	return BeginAuthResponse{URL: c.authURL + "?state=" + req.State, State: req.State}, nil
}

func (c *testChannel) CompleteAuth(context.Context, CompleteAuthRequest) (CompleteAuthResponse, error) {
	return CompleteAuthResponse{Settings: c.authSettings.Clone()}, nil
}

func (c *testChannel) Publish(_ context.Context, conn Connection, special Special) DistributionReport {
	c.mu.Lock()
	c.publishCalls = append(c.publishCalls, publishCall{Connection: conn, Special: special})
	c.mu.Unlock()
	return c.publishReport
}

func (c *testChannel) Retract(_ context.Context, conn Connection, special Special) DistributionReport {
	c.mu.Lock()
	c.retractCalls = append(c.retractCalls, publishCall{Connection: conn, Special: special})
	c.mu.Unlock()
	return c.retractReport
}

type testOverrideChannel struct {
	*testChannel
}

func (c *testOverrideChannel) PublishAt(_ context.Context, conn Connection, special Special, locationID string) DistributionReport {
	c.mu.Lock()
	c.publishCalls = append(c.publishCalls, publishCall{Connection: conn, Special: special, LocationID: locationID})
	c.mu.Unlock()
	return c.publishReport
}

type testServiceEnv struct {
	Service     *Service
	Connections *testConnectionStore
	Specials    *testSpecialStore
	Activity    *testActivitySink
}

func newTestService(t *testing.T, options ...Option) testServiceEnv {
	t.Helper()
	env := testServiceEnv{
		Connections: newTestConnectionStore(),
		Specials:    newTestSpecialStore(),
		Activity:    &testActivitySink{},
	}
	base := []Option{
		WithConnectionStore(env.Connections),
		WithSpecialStore(env.Specials),
		WithActivitySink(env.Activity),
	}
	svc, err := NewService(Config{}, append(base, options...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	env.Service = svc
	return env
}
