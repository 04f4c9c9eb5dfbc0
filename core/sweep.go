package core

import (
	"context"
	"fmt"
)

// SweepJobName identifies the expiration pass on the job queue.
const SweepJobName = "distribution.sweep"

// ExpireOverdueSpecials runs one expiration pass: every active special
// whose end date lies strictly before now is marked expired, then its
// retraction is dispatched. The local transition is authoritative; a
// remote failure never rolls it back.
func (s *Service) ExpireOverdueSpecials(ctx context.Context) (stats SweepStats, err error) {
	startedAt := s.now()
	fields := map[string]any{}
	defer func() {
		fields["scanned"] = stats.Scanned
		fields["expired"] = stats.Expired
		fields["retracted"] = stats.Retracted
		fields["skipped"] = stats.Skipped
		fields["failed"] = stats.Failed
		s.observeOperation(ctx, startedAt, "expire_overdue_specials", err, fields)
	}()

	if s == nil {
		return SweepStats{}, fmt.Errorf("core: service is nil")
	}
	if s.specialStore == nil {
		err = s.mapError(fmt.Errorf("core: special store is not configured"))
		return SweepStats{}, err
	}
	if s.connectionStore == nil {
		err = s.mapError(fmt.Errorf("core: connection store is not configured"))
		return SweepStats{}, err
	}

	now := s.now()
	overdue, listErr := s.specialStore.ListExpired(ctx, now)
	if listErr != nil {
		err = s.mapError(listErr)
		return SweepStats{}, err
	}
	if batch := s.config.Sweep.BatchSize; batch > 0 && len(overdue) > batch {
		overdue = overdue[:batch]
	}
	stats.Scanned = len(overdue)

	connectionsByUser := map[string][]Connection{}
	for _, special := range overdue {
		if updateErr := s.specialStore.UpdateStatus(ctx, special.ID, SpecialStatusExpired); updateErr != nil {
			stats.Failed++
			s.logError(ctx, "special expiration not persisted", map[string]any{
				"special_id": special.ID,
				"error":      updateErr.Error(),
			})
			continue
		}
		special.Status = SpecialStatusExpired
		stats.Expired++

		connections, ok := connectionsByUser[special.UserID]
		if !ok {
			conns, connErr := s.connectionStore.ListConnected(ctx, special.UserID)
			if connErr != nil {
				stats.Failed++
				s.logError(ctx, "sweep connection lookup failed", map[string]any{
					"special_id": special.ID,
					"user_id":    special.UserID,
					"error":      connErr.Error(),
				})
				continue
			}
			connections = conns
			connectionsByUser[special.UserID] = conns
		}

		for _, report := range s.retractAcross(ctx, connections, special) {
			switch report.Outcome {
			case OutcomeRetracted:
				stats.Retracted++
			case OutcomeSkipped:
				stats.Skipped++
				s.logInfo(ctx, "sweep retraction skipped", map[string]any{
					"special_id": special.ID,
					"platform":   report.Platform,
					"reason":     outcomeReason(report),
				})
			case OutcomeFailed:
				stats.Failed++
			}
		}
	}
	return stats, nil
}

// EnqueueSweep schedules one expiration pass on the supplied queue.
func (s *Service) EnqueueSweep(ctx context.Context, enqueuer JobEnqueuer) error {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	if enqueuer == nil {
		return s.mapError(fmt.Errorf("core: job enqueuer is required"))
	}
	return s.mapError(enqueuer.Enqueue(ctx, &JobExecutionMessage{
		JobID:      SweepJobName,
		ScriptPath: SweepJobName,
		Parameters: map[string]any{
			"requested_at": s.now().Format("2006-01-02T15:04:05Z07:00"),
		},
	}))
}
