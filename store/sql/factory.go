package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"

	"github.com/appertivo/go-distribution/core"
)

// RepositoryFactory builds the SQL-backed stores over a shared bun.DB.
// It satisfies both the store factory and the store provider shapes the
// service duck-types against.
type RepositoryFactory struct {
	db           *bun.DB
	cacheService repositorycache.CacheService

	connectionStore core.ConnectionStore
	specialStore    *SpecialStore
	activityStore   *ActivityStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// WithCacheService wraps the connection store with a read-through cache
// once the stores are built. Must be called before BuildStores.
func (f *RepositoryFactory) WithCacheService(cacheService repositorycache.CacheService) *RepositoryFactory {
	if f != nil {
		f.cacheService = cacheService
	}
	return f
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.connectionStore != nil && f.specialStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) ConnectionStore() core.ConnectionStore {
	if f == nil {
		return nil
	}
	return f.connectionStore
}

func (f *RepositoryFactory) SpecialStore() core.SpecialStore {
	if f == nil {
		return nil
	}
	return f.specialStore
}

func (f *RepositoryFactory) ActivitySink() core.ActivitySink {
	if f == nil {
		return nil
	}
	return f.activityStore
}

func (f *RepositoryFactory) SpecialSQLStore() *SpecialStore {
	if f == nil {
		return nil
	}
	return f.specialStore
}

func (f *RepositoryFactory) ActivityStore() *ActivityStore {
	if f == nil {
		return nil
	}
	return f.activityStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	connectionStore, err := NewConnectionStore(f.db)
	if err != nil {
		return err
	}
	if f.cacheService != nil {
		cached, cacheErr := NewCachedConnectionStore(connectionStore, f.cacheService)
		if cacheErr != nil {
			return cacheErr
		}
		f.connectionStore = cached
	} else {
		f.connectionStore = connectionStore
	}

	specialStore, err := NewSpecialStore(f.db)
	if err != nil {
		return err
	}
	f.specialStore = specialStore

	activityStore, err := NewActivityStore(f.db)
	if err != nil {
		return err
	}
	f.activityStore = activityStore
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
