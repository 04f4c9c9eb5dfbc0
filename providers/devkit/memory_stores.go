package devkit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/appertivo/go-distribution/core"
)

// MemoryConnectionStore is an in-memory ConnectionStore for tests and
// local development. One connection per (user, platform) pair.
type MemoryConnectionStore struct {
	mu          sync.RWMutex
	connections map[string]core.Connection
	nowFn       func() time.Time
}

func NewMemoryConnectionStore() *MemoryConnectionStore {
	return &MemoryConnectionStore{
		connections: map[string]core.Connection{},
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryConnectionStore) WithClock(nowFn func() time.Time) *MemoryConnectionStore {
	if s != nil && nowFn != nil {
		s.nowFn = nowFn
	}
	return s
}

// Seed inserts a connection as-is, generating an ID when absent.
func (s *MemoryConnectionStore) Seed(conn core.Connection) core.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(conn.ID) == "" {
		conn.ID = uuid.NewString()
	}
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = s.nowFn()
	}
	conn.UpdatedAt = conn.CreatedAt
	s.connections[conn.ID] = cloneConnection(conn)
	return conn
}

func (s *MemoryConnectionStore) Get(_ context.Context, id string) (core.Connection, error) {
	if s == nil {
		return core.Connection{}, fmt.Errorf("devkit: connection store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	conn, ok := s.connections[strings.TrimSpace(id)]
	if !ok {
		return core.Connection{}, core.ErrConnectionNotFound
	}
	return cloneConnection(conn), nil
}

func (s *MemoryConnectionStore) GetByUserAndPlatform(_ context.Context, userID string, platform core.Platform) (core.Connection, error) {
	if s == nil {
		return core.Connection{}, fmt.Errorf("devkit: connection store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, conn := range s.connections {
		if conn.UserID == strings.TrimSpace(userID) && conn.Platform == platform {
			return cloneConnection(conn), nil
		}
	}
	return core.Connection{}, core.ErrConnectionNotFound
}

func (s *MemoryConnectionStore) ListConnected(_ context.Context, userID string) ([]core.Connection, error) {
	if s == nil {
		return nil, fmt.Errorf("devkit: connection store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Connection
	for _, conn := range s.connections {
		if conn.UserID == strings.TrimSpace(userID) && conn.IsConnected {
			out = append(out, cloneConnection(conn))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}

func (s *MemoryConnectionStore) Create(_ context.Context, in core.CreateConnectionInput) (core.Connection, error) {
	if s == nil {
		return core.Connection{}, fmt.Errorf("devkit: connection store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.connections {
		if conn.UserID == in.UserID && conn.Platform == in.Platform {
			return core.Connection{}, fmt.Errorf("devkit: connection already exists for %s/%s", in.UserID, in.Platform)
		}
	}
	now := s.nowFn()
	conn := core.Connection{
		ID:          uuid.NewString(),
		UserID:      strings.TrimSpace(in.UserID),
		Platform:    in.Platform,
		IsConnected: in.IsConnected,
		Settings:    in.Settings.Clone(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.connections[conn.ID] = cloneConnection(conn)
	return conn, nil
}

func (s *MemoryConnectionStore) SaveSettings(_ context.Context, id string, settings core.ConnectionSettings) error {
	if s == nil {
		return fmt.Errorf("devkit: connection store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.connections[strings.TrimSpace(id)]
	if !ok {
		return core.ErrConnectionNotFound
	}
	conn.Settings = settings.Clone()
	conn.UpdatedAt = s.nowFn()
	s.connections[conn.ID] = conn
	return nil
}

func (s *MemoryConnectionStore) SetConnected(_ context.Context, id string, connected bool) error {
	if s == nil {
		return fmt.Errorf("devkit: connection store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.connections[strings.TrimSpace(id)]
	if !ok {
		return core.ErrConnectionNotFound
	}
	conn.IsConnected = connected
	conn.UpdatedAt = s.nowFn()
	s.connections[conn.ID] = conn
	return nil
}

func cloneConnection(in core.Connection) core.Connection {
	out := in
	out.Settings = in.Settings.Clone()
	return out
}

// MemorySpecialStore is an in-memory SpecialStore for tests and local
// development.
type MemorySpecialStore struct {
	mu       sync.RWMutex
	specials map[string]core.Special
	nowFn    func() time.Time
}

func NewMemorySpecialStore() *MemorySpecialStore {
	return &MemorySpecialStore{
		specials: map[string]core.Special{},
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemorySpecialStore) WithClock(nowFn func() time.Time) *MemorySpecialStore {
	if s != nil && nowFn != nil {
		s.nowFn = nowFn
	}
	return s
}

func (s *MemorySpecialStore) Seed(special core.Special) core.Special {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(special.ID) == "" {
		special.ID = uuid.NewString()
	}
	if special.CreatedAt.IsZero() {
		special.CreatedAt = s.nowFn()
	}
	special.UpdatedAt = special.CreatedAt
	s.specials[special.ID] = special
	return special
}

func (s *MemorySpecialStore) Get(_ context.Context, id string) (core.Special, error) {
	if s == nil {
		return core.Special{}, fmt.Errorf("devkit: special store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	special, ok := s.specials[strings.TrimSpace(id)]
	if !ok {
		return core.Special{}, core.ErrSpecialNotFound
	}
	return special, nil
}

// ListExpired returns active specials whose end date has passed.
func (s *MemorySpecialStore) ListExpired(_ context.Context, asOf time.Time) ([]core.Special, error) {
	if s == nil {
		return nil, fmt.Errorf("devkit: special store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Special
	for _, special := range s.specials {
		if special.Status != core.SpecialStatusActive {
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

func (s *MemorySpecialStore) UpdateStatus(_ context.Context, id string, status core.SpecialStatus) error {
	if s == nil {
		return fmt.Errorf("devkit: special store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	special, ok := s.specials[strings.TrimSpace(id)]
	if !ok {
		return core.ErrSpecialNotFound
	}
	if err := special.TransitionTo(status, s.nowFn()); err != nil {
		return err
	}
	s.specials[special.ID] = special
	return nil
}

func (s *MemorySpecialStore) SetRemotePostName(_ context.Context, id string, name string) error {
	if s == nil {
		return fmt.Errorf("devkit: special store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	special, ok := s.specials[strings.TrimSpace(id)]
	if !ok {
		return core.ErrSpecialNotFound
	}
	special.RemotePostName = name
	special.UpdatedAt = s.nowFn()
	s.specials[special.ID] = special
	return nil
}

// MemoryActivitySink records activity entries in arrival order.
type MemoryActivitySink struct {
	mu      sync.RWMutex
	entries []core.ActivityEntry
}

func NewMemoryActivitySink() *MemoryActivitySink {
	return &MemoryActivitySink{}
}

func (s *MemoryActivitySink) Record(_ context.Context, entry core.ActivityEntry) error {
	if s == nil {
		return fmt.Errorf("devkit: activity sink is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryActivitySink) List(_ context.Context, filter core.ActivityFilter) (core.ActivityPage, error) {
	if s == nil {
		return core.ActivityPage{}, fmt.Errorf("devkit: activity sink is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []core.ActivityEntry
	for _, entry := range s.entries {
		if filter.UserID != "" && entry.UserID != filter.UserID {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.Platform != "" && entry.Platform != filter.Platform {
			continue
		}
		if filter.SpecialID != "" && entry.SpecialID != filter.SpecialID {
			continue
		}
		if filter.Status != "" && entry.Status != filter.Status {
			continue
		}
		if filter.From != nil && entry.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && entry.CreatedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, entry)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 25
	}
	start := (page - 1) * perPage
	if start > len(matched) {
		start = len(matched)
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}

	return core.ActivityPage{
		Items:   append([]core.ActivityEntry(nil), matched[start:end]...),
		Page:    page,
		PerPage: perPage,
		Total:   len(matched),
		HasNext: end < len(matched),
	}, nil
}

// Entries returns a copy of everything recorded so far.
func (s *MemoryActivitySink) Entries() []core.ActivityEntry {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.ActivityEntry(nil), s.entries...)
}

var (
	_ core.ConnectionStore = (*MemoryConnectionStore)(nil)
	_ core.SpecialStore    = (*MemorySpecialStore)(nil)
	_ core.ActivitySink    = (*MemoryActivitySink)(nil)
)
