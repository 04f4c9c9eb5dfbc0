package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/appertivo/go-distribution/core"
)

const connectionCacheKeyPrefix = "go-distribution::connection::v1"

// CachedConnectionStore layers a read-through cache over a connection
// store. Dispatch hits ListConnected on every publish, retract, and
// sweep pass, so those reads are the ones worth caching; every write
// drops the affected keys.
type CachedConnectionStore struct {
	base  core.ConnectionStore
	cache repositorycache.CacheService
}

func NewCachedConnectionStore(
	base core.ConnectionStore,
	cacheService repositorycache.CacheService,
) (*CachedConnectionStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base connection store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: connection cache service is required")
	}
	return &CachedConnectionStore{base: base, cache: cacheService}, nil
}

func connectionCacheKey(segments ...string) string {
	escaped := make([]string, 0, len(segments)+1)
	escaped = append(escaped, connectionCacheKeyPrefix)
	for _, segment := range segments {
		escaped = append(escaped, url.PathEscape(strings.TrimSpace(segment)))
	}
	return strings.Join(escaped, "::")
}

func (s *CachedConnectionStore) Get(ctx context.Context, id string) (core.Connection, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Connection{}, fmt.Errorf("sqlstore: cached connection store is not configured")
	}
	key := connectionCacheKey("id", id)
	conn, err := repositorycache.GetOrFetch(ctx, s.cache, key, func(ctx context.Context) (core.Connection, error) {
		return s.base.Get(ctx, id)
	})
	if err != nil {
		return core.Connection{}, err
	}
	return cloneCachedConnection(conn), nil
}

func (s *CachedConnectionStore) GetByUserAndPlatform(ctx context.Context, userID string, platform core.Platform) (core.Connection, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Connection{}, fmt.Errorf("sqlstore: cached connection store is not configured")
	}
	key := connectionCacheKey("user", userID, string(platform))
	conn, err := repositorycache.GetOrFetch(ctx, s.cache, key, func(ctx context.Context) (core.Connection, error) {
		return s.base.GetByUserAndPlatform(ctx, userID, platform)
	})
	if err != nil {
		return core.Connection{}, err
	}
	return cloneCachedConnection(conn), nil
}

func (s *CachedConnectionStore) ListConnected(ctx context.Context, userID string) ([]core.Connection, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached connection store is not configured")
	}
	key := connectionCacheKey("connected", userID)
	connections, err := repositorycache.GetOrFetch(ctx, s.cache, key, func(ctx context.Context) ([]core.Connection, error) {
		return s.base.ListConnected(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	out := make([]core.Connection, 0, len(connections))
	for _, conn := range connections {
		out = append(out, cloneCachedConnection(conn))
	}
	return out, nil
}

func (s *CachedConnectionStore) Create(ctx context.Context, in core.CreateConnectionInput) (core.Connection, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Connection{}, fmt.Errorf("sqlstore: cached connection store is not configured")
	}
	created, err := s.base.Create(ctx, in)
	if err != nil {
		return core.Connection{}, err
	}
	if invalidateErr := s.invalidate(ctx, created); invalidateErr != nil {
		return core.Connection{}, invalidateErr
	}
	return created, nil
}

func (s *CachedConnectionStore) SaveSettings(ctx context.Context, id string, settings core.ConnectionSettings) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached connection store is not configured")
	}
	conn, err := s.base.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.base.SaveSettings(ctx, id, settings); err != nil {
		return err
	}
	return s.invalidate(ctx, conn)
}

func (s *CachedConnectionStore) SetConnected(ctx context.Context, id string, connected bool) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached connection store is not configured")
	}
	conn, err := s.base.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.base.SetConnected(ctx, id, connected); err != nil {
		return err
	}
	return s.invalidate(ctx, conn)
}

func (s *CachedConnectionStore) invalidate(ctx context.Context, conn core.Connection) error {
	keys := []string{
		connectionCacheKey("id", conn.ID),
		connectionCacheKey("user", conn.UserID, string(conn.Platform)),
		connectionCacheKey("connected", conn.UserID),
	}
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func cloneCachedConnection(conn core.Connection) core.Connection {
	cloned := conn
	cloned.Settings = conn.Settings.Clone()
	return cloned
}
