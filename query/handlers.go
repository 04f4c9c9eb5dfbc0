package query

import (
	"context"

	"github.com/appertivo/go-distribution/core"
)

type ConnectionReader interface {
	Get(ctx context.Context, id string) (core.Connection, error)
	GetByUserAndPlatform(ctx context.Context, userID string, platform core.Platform) (core.Connection, error)
	ListConnected(ctx context.Context, userID string) ([]core.Connection, error)
}

type SpecialReader interface {
	Get(ctx context.Context, id string) (core.Special, error)
}

type ActivityReader interface {
	List(ctx context.Context, filter core.ActivityFilter) (core.ActivityPage, error)
}

type GetConnectionQuery struct {
	reader ConnectionReader
}

func NewGetConnectionQuery(reader ConnectionReader) *GetConnectionQuery {
	return &GetConnectionQuery{reader: reader}
}

func (q *GetConnectionQuery) Query(ctx context.Context, msg GetConnectionMessage) (core.Connection, error) {
	if q == nil || q.reader == nil {
		return core.Connection{}, queryDependencyError("query: connection reader is required")
	}
	return q.reader.GetByUserAndPlatform(ctx, msg.UserID, msg.Platform)
}

type ListConnectedQuery struct {
	reader ConnectionReader
}

func NewListConnectedQuery(reader ConnectionReader) *ListConnectedQuery {
	return &ListConnectedQuery{reader: reader}
}

func (q *ListConnectedQuery) Query(ctx context.Context, msg ListConnectedMessage) ([]core.Connection, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: connection reader is required")
	}
	return q.reader.ListConnected(ctx, msg.UserID)
}

type GetSpecialQuery struct {
	reader SpecialReader
}

func NewGetSpecialQuery(reader SpecialReader) *GetSpecialQuery {
	return &GetSpecialQuery{reader: reader}
}

func (q *GetSpecialQuery) Query(ctx context.Context, msg GetSpecialMessage) (core.Special, error) {
	if q == nil || q.reader == nil {
		return core.Special{}, queryDependencyError("query: special reader is required")
	}
	return q.reader.Get(ctx, msg.SpecialID)
}

type ListActivityQuery struct {
	reader ActivityReader
}

func NewListActivityQuery(reader ActivityReader) *ListActivityQuery {
	return &ListActivityQuery{reader: reader}
}

func (q *ListActivityQuery) Query(ctx context.Context, msg ListActivityMessage) (core.ActivityPage, error) {
	if q == nil || q.reader == nil {
		return core.ActivityPage{}, queryDependencyError("query: activity reader is required")
	}
	return q.reader.List(ctx, msg.Filter)
}
