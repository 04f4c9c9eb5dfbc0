package core

import (
	"context"
	"fmt"
	"strings"
)

// PublishSpecial pushes an activated special to every connected channel
// the owner has. Channel-level skips and failures are reported, never
// returned as errors; only orchestration problems (missing stores, the
// special not existing) error out.
func (s *Service) PublishSpecial(ctx context.Context, specialID string) (reports []DistributionReport, err error) {
	startedAt := s.now()
	fields := map[string]any{"special_id": specialID}
	defer func() {
		s.observeOperation(ctx, startedAt, "publish_special", err, fields)
	}()

	special, connections, err := s.loadDistributionTargets(ctx, specialID)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	fields["user_id"] = special.UserID

	for _, conn := range connections {
		channel, ok := s.registry.Get(conn.Platform)
		if !ok {
			// Platforms without an integration carry nothing.
			continue
		}
		report := s.publishToChannel(ctx, channel, conn, special)
		reports = append(reports, report)
	}
	fields["reports"] = len(reports)
	return reports, nil
}

// PublishSpecialAt publishes one special to a single platform, letting
// the caller override the stored target location when the channel
// supports it.
func (s *Service) PublishSpecialAt(ctx context.Context, specialID string, platform Platform, locationID string) (report DistributionReport, err error) {
	startedAt := s.now()
	fields := map[string]any{
		"special_id":  specialID,
		"platform":    platform,
		"location_id": locationID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "publish_special_at", err, fields)
	}()

	specialID = strings.TrimSpace(specialID)
	if specialID == "" {
		err = s.mapError(fmt.Errorf("core: special id is required"))
		return DistributionReport{}, err
	}
	if s.specialStore == nil || s.connectionStore == nil {
		err = s.mapError(fmt.Errorf("core: stores are not configured"))
		return DistributionReport{}, err
	}
	channel, chanErr := s.channelFor(platform)
	if chanErr != nil {
		err = s.mapError(chanErr)
		return DistributionReport{}, err
	}

	special, getErr := s.specialStore.Get(ctx, specialID)
	if getErr != nil {
		err = s.mapError(getErr)
		return DistributionReport{}, err
	}
	conn, connErr := s.connectionStore.GetByUserAndPlatform(ctx, special.UserID, platform)
	if connErr != nil {
		err = s.mapError(connErr)
		return DistributionReport{}, err
	}
	fields["user_id"] = special.UserID

	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return s.publishToChannel(ctx, channel, conn, special), nil
	}
	overrider, ok := channel.(LocationOverridePublisher)
	if !ok {
		err = s.mapError(fmt.Errorf("core: channel %s does not support location overrides", platform))
		return DistributionReport{}, err
	}
	return s.publishToChannelAt(ctx, overrider, conn, special, locationID), nil
}

func (s *Service) loadDistributionTargets(ctx context.Context, specialID string) (Special, []Connection, error) {
	specialID = strings.TrimSpace(specialID)
	if specialID == "" {
		return Special{}, nil, fmt.Errorf("core: special id is required")
	}
	if s.specialStore == nil {
		return Special{}, nil, fmt.Errorf("core: special store is not configured")
	}
	if s.connectionStore == nil {
		return Special{}, nil, fmt.Errorf("core: connection store is not configured")
	}
	if s.registry == nil {
		return Special{}, nil, fmt.Errorf("core: registry is not configured")
	}

	special, err := s.specialStore.Get(ctx, specialID)
	if err != nil {
		return Special{}, nil, err
	}
	connections, err := s.connectionStore.ListConnected(ctx, special.UserID)
	if err != nil {
		return Special{}, nil, err
	}
	return special, connections, nil
}

// publishToChannel runs one channel publish under the per-connection
// lock. Settings mutated during the attempt (a refreshed token) are
// persisted regardless of the remote outcome; a remote post that was
// created but whose name could not be saved locally is logged and kept.
func (s *Service) publishToChannel(ctx context.Context, channel DistributionChannel, conn Connection, special Special) DistributionReport {
	unlock, lockErr := s.lockConnection(ctx, conn.ID)
	if lockErr != nil {
		report := DistributionReport{
			Platform:     conn.Platform,
			ConnectionID: conn.ID,
			SpecialID:    special.ID,
			Outcome:      OutcomeFailed,
			Reason:       "publish lock not acquired",
			Err:          lockErr,
		}
		s.finishChannelReport(ctx, "publish", conn, report)
		return report
	}
	defer unlock()

	report := channel.Publish(ctx, conn, special)
	return s.completePublishReport(ctx, conn, special, report)
}

// publishToChannelAt mirrors publishToChannel but targets an explicit
// location through the channel's override capability.
func (s *Service) publishToChannelAt(ctx context.Context, overrider LocationOverridePublisher, conn Connection, special Special, locationID string) DistributionReport {
	unlock, lockErr := s.lockConnection(ctx, conn.ID)
	if lockErr != nil {
		report := DistributionReport{
			Platform:     conn.Platform,
			ConnectionID: conn.ID,
			SpecialID:    special.ID,
			Outcome:      OutcomeFailed,
			Reason:       "publish lock not acquired",
			Err:          lockErr,
		}
		s.finishChannelReport(ctx, "publish", conn, report)
		return report
	}
	defer unlock()

	report := overrider.PublishAt(ctx, conn, special, locationID)
	return s.completePublishReport(ctx, conn, special, report)
}

func (s *Service) completePublishReport(ctx context.Context, conn Connection, special Special, report DistributionReport) DistributionReport {
	report.Platform = conn.Platform
	report.ConnectionID = conn.ID
	report.SpecialID = special.ID

	s.persistReportSettings(ctx, conn, &report)

	if report.Outcome == OutcomePublished && strings.TrimSpace(report.RemotePostName) != "" {
		if saveErr := s.specialStore.SetRemotePostName(ctx, special.ID, report.RemotePostName); saveErr != nil {
			// The remote post exists but its name was lost locally. The
			// sweep cannot retract it later, so leave a loud trail.
			s.logError(ctx, "remote post name not persisted", map[string]any{
				"special_id":       special.ID,
				"connection_id":    conn.ID,
				"platform":         conn.Platform,
				"remote_post_name": report.RemotePostName,
				"error":            saveErr.Error(),
			})
		}
	}

	s.finishChannelReport(ctx, "publish", conn, report)
	return report
}

func (s *Service) lockConnection(ctx context.Context, connectionID string) (func(), error) {
	if s.connectionLocker == nil {
		return func() {}, nil
	}
	handle, err := s.connectionLocker.Acquire(ctx, connectionID, defaultPublishLockTTL)
	if err != nil {
		return nil, err
	}
	return func() {
		_ = handle.Unlock(ctx)
	}, nil
}

func (s *Service) persistReportSettings(ctx context.Context, conn Connection, report *DistributionReport) {
	if report == nil || report.Settings == nil || s.connectionStore == nil {
		return
	}
	if err := s.connectionStore.SaveSettings(ctx, conn.ID, *report.Settings); err != nil {
		s.logError(ctx, "connection settings not persisted", map[string]any{
			"connection_id": conn.ID,
			"platform":      conn.Platform,
			"error":         err.Error(),
		})
	}
	report.Settings = nil
}

func (s *Service) finishChannelReport(ctx context.Context, action string, conn Connection, report DistributionReport) {
	tags := map[string]string{
		"action":   action,
		"platform": string(conn.Platform),
		"outcome":  string(report.Outcome),
	}
	s.recordCounter(ctx, "distribution."+action+".outcome", 1, tags)

	fields := map[string]any{
		"action":        action,
		"platform":      conn.Platform,
		"connection_id": conn.ID,
		"special_id":    report.SpecialID,
		"outcome":       report.Outcome,
	}
	if strings.TrimSpace(report.Reason) != "" {
		fields["reason"] = report.Reason
	}

	status := ActivityStatusOK
	switch report.Outcome {
	case OutcomeFailed:
		status = ActivityStatusError
		if report.Err != nil {
			fields["error"] = report.Err.Error()
		}
		s.logError(ctx, action+" attempt failed", fields)
	case OutcomeSkipped:
		status = ActivityStatusWarn
		s.logInfo(ctx, action+" attempt skipped", fields)
	default:
		s.logInfo(ctx, action+" attempt completed", fields)
	}

	s.recordActivity(ctx, ActivityEntry{
		UserID:    conn.UserID,
		Action:    action,
		Platform:  conn.Platform,
		SpecialID: report.SpecialID,
		Status:    status,
		Detail:    report.Reason,
	})
}
