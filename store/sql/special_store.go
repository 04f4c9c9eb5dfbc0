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

type SpecialStore struct {
	db   *bun.DB
	repo repository.Repository[*specialRecord]
}

func NewSpecialStore(db *bun.DB) (*SpecialStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*specialRecord](db, specialHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid special repository wiring: %w", err)
		}
	}
	return &SpecialStore{db: db, repo: repo}, nil
}

// Save upserts the special as-is. Used by seeding and by the owning
// application; the distribution flows only read and patch specials.
func (s *SpecialStore) Save(ctx context.Context, special core.Special) (core.Special, error) {
	if s == nil || s.repo == nil {
		return core.Special{}, fmt.Errorf("sqlstore: special store is not configured")
	}
	record := newSpecialRecord(special, time.Now().UTC())
	if strings.TrimSpace(record.ID) == "" {
		created, err := s.repo.Create(ctx, record)
		if err != nil {
			return core.Special{}, err
		}
		return created.toDomain(), nil
	}
	updated, err := s.repo.Update(ctx, record, repository.UpdateByID(record.ID))
	if err != nil {
		return core.Special{}, err
	}
	return updated.toDomain(), nil
}

func (s *SpecialStore) Get(ctx context.Context, id string) (core.Special, error) {
	if s == nil || s.repo == nil {
		return core.Special{}, fmt.Errorf("sqlstore: special store is not configured")
	}
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return core.Special{}, err
	}
	return record.toDomain(), nil
}

// ListExpired returns active specials whose end date has already
// passed, oldest first so repeated sweeps drain the backlog in order.
func (s *SpecialStore) ListExpired(ctx context.Context, asOf time.Time) ([]core.Special, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: special store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("status", "=", string(core.SpecialStatusActive)),
		repository.SelectByTimetz("end_date", "<", asOf.UTC()),
		repository.OrderBy("end_date ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.Special, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *SpecialStore) UpdateStatus(ctx context.Context, id string, status core.SpecialStatus) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: special store is not configured")
	}
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return err
	}
	special := record.toDomain()
	now := time.Now().UTC()
	if transitionErr := special.TransitionTo(status, now); transitionErr != nil {
		return transitionErr
	}
	record.Status = string(special.Status)
	record.UpdatedAt = now

	_, err = s.repo.Update(ctx, record, repository.UpdateByID(record.ID))
	return err
}

func (s *SpecialStore) SetRemotePostName(ctx context.Context, id string, name string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: special store is not configured")
	}
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return err
	}
	record.RemotePostName = strings.TrimSpace(name)
	record.UpdatedAt = time.Now().UTC()

	_, err = s.repo.Update(ctx, record, repository.UpdateByID(record.ID))
	return err
}

func (s *SpecialStore) getRecord(ctx context.Context, id string) (*specialRecord, error) {
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return nil, fmt.Errorf("sqlstore: special id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("id", "=", trimmedID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrSpecialNotFound, trimmedID)
	}
	return records[0], nil
}
