package core

import (
	"context"
	"strings"
)

// RetractSpecial removes a special from every connected channel that
// carries it. Missing preconditions (no token, no stored remote post
// name, deletion disabled) surface as skipped reports with zero remote
// calls; remote failures surface as failed reports and are not retried.
func (s *Service) RetractSpecial(ctx context.Context, specialID string) (reports []DistributionReport, err error) {
	startedAt := s.now()
	fields := map[string]any{"special_id": specialID}
	defer func() {
		s.observeOperation(ctx, startedAt, "retract_special", err, fields)
	}()

	special, connections, err := s.loadDistributionTargets(ctx, specialID)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	fields["user_id"] = special.UserID

	reports = s.retractAcross(ctx, connections, special)
	fields["reports"] = len(reports)
	return reports, nil
}

// retractAcross dispatches a retraction over pre-fetched connections so
// bulk callers (the sweep) do not repeat the connection lookup per
// special.
func (s *Service) retractAcross(ctx context.Context, connections []Connection, special Special) []DistributionReport {
	var reports []DistributionReport
	for _, conn := range connections {
		channel, ok := s.registry.Get(conn.Platform)
		if !ok {
			continue
		}
		reports = append(reports, s.retractFromChannel(ctx, channel, conn, special))
	}
	return reports
}

func (s *Service) retractFromChannel(ctx context.Context, channel DistributionChannel, conn Connection, special Special) DistributionReport {
	unlock, lockErr := s.lockConnection(ctx, conn.ID)
	if lockErr != nil {
		report := DistributionReport{
			Platform:     conn.Platform,
			ConnectionID: conn.ID,
			SpecialID:    special.ID,
			Outcome:      OutcomeFailed,
			Reason:       "retract lock not acquired",
			Err:          lockErr,
		}
		s.finishChannelReport(ctx, "retract", conn, report)
		return report
	}
	defer unlock()

	report := channel.Retract(ctx, conn, special)
	report.Platform = conn.Platform
	report.ConnectionID = conn.ID
	report.SpecialID = special.ID

	s.persistReportSettings(ctx, conn, &report)

	if report.Outcome == OutcomeRetracted {
		// Clearing the stored name makes a repeated sweep a no-op.
		if clearErr := s.specialStore.SetRemotePostName(ctx, special.ID, ""); clearErr != nil {
			s.logError(ctx, "remote post name not cleared", map[string]any{
				"special_id":    special.ID,
				"connection_id": conn.ID,
				"platform":      conn.Platform,
				"error":         clearErr.Error(),
			})
		}
	}

	s.finishChannelReport(ctx, "retract", conn, report)
	return report
}

func outcomeReason(report DistributionReport) string {
	if strings.TrimSpace(report.Reason) != "" {
		return report.Reason
	}
	if report.Err != nil {
		return report.Err.Error()
	}
	return string(report.Outcome)
}
