package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/appertivo/go-distribution/core"
)

type ConnectionStore struct {
	db   *bun.DB
	repo repository.Repository[*connectionRecord]
}

func NewConnectionStore(db *bun.DB) (*ConnectionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*connectionRecord](db, connectionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid connection repository wiring: %w", err)
		}
	}
	return &ConnectionStore{db: db, repo: repo}, nil
}

func (s *ConnectionStore) Create(ctx context.Context, in core.CreateConnectionInput) (core.Connection, error) {
	if s == nil || s.repo == nil {
		return core.Connection{}, fmt.Errorf("sqlstore: connection store is not configured")
	}
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return core.Connection{}, fmt.Errorf("sqlstore: user id is required")
	}
	if _, err := core.ParsePlatform(string(in.Platform)); err != nil {
		return core.Connection{}, err
	}

	record, err := newConnectionRecord(in, time.Now().UTC())
	if err != nil {
		return core.Connection{}, err
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Connection{}, err
	}
	return created.toDomain()
}

func (s *ConnectionStore) Get(ctx context.Context, id string) (core.Connection, error) {
	if s == nil || s.repo == nil {
		return core.Connection{}, fmt.Errorf("sqlstore: connection store is not configured")
	}
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return core.Connection{}, err
	}
	return record.toDomain()
}

func (s *ConnectionStore) GetByUserAndPlatform(ctx context.Context, userID string, platform core.Platform) (core.Connection, error) {
	if s == nil || s.repo == nil {
		return core.Connection{}, fmt.Errorf("sqlstore: connection store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		repository.SelectBy("platform", "=", strings.TrimSpace(string(platform))),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.deleted_at IS NULL")
		}),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Connection{}, err
	}
	if len(records) == 0 {
		return core.Connection{}, fmt.Errorf("%w: %s/%s", core.ErrConnectionNotFound, userID, platform)
	}
	return records[0].toDomain()
}

func (s *ConnectionStore) ListConnected(ctx context.Context, userID string) ([]core.Connection, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: connection store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.is_connected = ?", true)
		}),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.deleted_at IS NULL")
		}),
		repository.OrderBy("platform ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.Connection, 0, len(records))
	for _, record := range records {
		conn, convertErr := record.toDomain()
		if convertErr != nil {
			return nil, convertErr
		}
		out = append(out, conn)
	}
	return out, nil
}

func (s *ConnectionStore) SaveSettings(ctx context.Context, id string, settings core.ConnectionSettings) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: connection store is not configured")
	}
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return err
	}
	encoded, err := encodeSettings(settings)
	if err != nil {
		return err
	}
	record.Settings = encoded
	record.UpdatedAt = time.Now().UTC()

	_, err = s.repo.Update(ctx, record, repository.UpdateByID(record.ID))
	return err
}

func (s *ConnectionStore) SetConnected(ctx context.Context, id string, connected bool) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: connection store is not configured")
	}
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return err
	}
	record.IsConnected = connected
	record.UpdatedAt = time.Now().UTC()

	_, err = s.repo.Update(ctx, record, repository.UpdateByID(record.ID))
	return err
}

func (s *ConnectionStore) getRecord(ctx context.Context, id string) (*connectionRecord, error) {
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return nil, fmt.Errorf("sqlstore: connection id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("id", "=", trimmedID),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.deleted_at IS NULL")
		}),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrConnectionNotFound, trimmedID)
	}
	return records[0], nil
}
