package sqlstore

import "github.com/appertivo/go-distribution/core"

var (
	_ core.ConnectionStore        = (*ConnectionStore)(nil)
	_ core.ConnectionStore        = (*CachedConnectionStore)(nil)
	_ core.SpecialStore           = (*SpecialStore)(nil)
	_ core.ActivitySink           = (*ActivityStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
