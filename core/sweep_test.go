package core

import (
	"context"
	"testing"
	"time"
)

func TestExpireOverdueSpecials_ExpiresAndRetracts(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	registry := NewChannelRegistry()
	channel := newTestChannel(PlatformGoogleBusiness)
	channel.retractReport = DistributionReport{Outcome: OutcomeRetracted}
	if err := registry.Register(channel); err != nil {
		t.Fatalf("register channel: %v", err)
	}
	env := newTestService(t,
		WithRegistry(registry),
		WithClock(func() time.Time { return now }),
	)
	if _, err := env.Connections.Create(context.Background(), CreateConnectionInput{
		UserID:      "user_1",
		Platform:    PlatformGoogleBusiness,
		IsConnected: true,
		Settings: ConnectionSettings{
			Google: &GoogleBusinessSettings{
				AccessToken:       "access_token",
				LocationID:        "locations/1",
				DeleteWhenExpired: true,
			},
		},
	}); err != nil {
		t.Fatalf("seed connection: %v", err)
	}

	env.Specials.put(Special{
		ID:             "special_overdue",
		UserID:         "user_1",
		Status:         SpecialStatusActive,
		EndDate:        &past,
		RemotePostName: "accounts/1/locations/1/localPosts/99",
	})
	env.Specials.put(Special{
		ID:      "special_future",
		UserID:  "user_1",
		Status:  SpecialStatusActive,
		EndDate: &future,
	})
	env.Specials.put(Special{
		ID:      "special_draft",
		UserID:  "user_1",
		Status:  SpecialStatusDraft,
		EndDate: &past,
	})

	stats, err := env.Service.ExpireOverdueSpecials(context.Background())
	if err != nil {
		t.Fatalf("expire overdue specials: %v", err)
	}
	if stats.Scanned != 1 || stats.Expired != 1 || stats.Retracted != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	expired, err := env.Specials.Get(context.Background(), "special_overdue")
	if err != nil {
		t.Fatalf("reload special: %v", err)
	}
	if expired.Status != SpecialStatusExpired {
		t.Fatalf("expected overdue special to be expired, got %q", expired.Status)
	}
	if expired.RemotePostName != "" {
		t.Fatalf("expected remote post name to be cleared after retraction")
	}

	untouched, err := env.Specials.Get(context.Background(), "special_future")
	if err != nil {
		t.Fatalf("reload special: %v", err)
	}
	if untouched.Status != SpecialStatusActive {
		t.Fatalf("expected future special to stay active, got %q", untouched.Status)
	}

	// A second pass finds nothing left to expire.
	again, err := env.Service.ExpireOverdueSpecials(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if again.Scanned != 0 {
		t.Fatalf("expected nothing to scan on second pass, got %+v", again)
	}
	if len(channel.retractCalls) != 1 {
		t.Fatalf("expected exactly one retraction, got %d", len(channel.retractCalls))
	}
}

func TestExpireOverdueSpecials_SkipReportsCounted(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	registry := NewChannelRegistry()
	channel := newTestChannel(PlatformGoogleBusiness)
	channel.retractReport = DistributionReport{Outcome: OutcomeSkipped, Reason: "deletion disabled"}
	if err := registry.Register(channel); err != nil {
		t.Fatalf("register channel: %v", err)
	}
	env := newTestService(t,
		WithRegistry(registry),
		WithClock(func() time.Time { return now }),
	)
	if _, err := env.Connections.Create(context.Background(), CreateConnectionInput{
		UserID:      "user_1",
		Platform:    PlatformGoogleBusiness,
		IsConnected: true,
	}); err != nil {
		t.Fatalf("seed connection: %v", err)
	}
	env.Specials.put(Special{
		ID:      "special_overdue",
		UserID:  "user_1",
		Status:  SpecialStatusActive,
		EndDate: &past,
	})

	stats, err := env.Service.ExpireOverdueSpecials(context.Background())
	if err != nil {
		t.Fatalf("expire overdue specials: %v", err)
	}
	if stats.Expired != 1 || stats.Skipped != 1 || stats.Retracted != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestExpireOverdueSpecials_HonorsBatchSize(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	conns := newTestConnectionStore()
	specials := newTestSpecialStore()
	svc, err := NewService(Config{Sweep: SweepConfig{BatchSize: 1}},
		WithConnectionStore(conns),
		WithSpecialStore(specials),
		WithClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	specials.put(Special{ID: "special_a", UserID: "user_1", Status: SpecialStatusActive, EndDate: &past})
	specials.put(Special{ID: "special_b", UserID: "user_1", Status: SpecialStatusActive, EndDate: &past})

	stats, err := svc.ExpireOverdueSpecials(context.Background())
	if err != nil {
		t.Fatalf("expire overdue specials: %v", err)
	}
	if stats.Scanned != 1 || stats.Expired != 1 {
		t.Fatalf("expected the batch to be capped at one, got %+v", stats)
	}
}

type testEnqueuer struct {
	messages []*JobExecutionMessage
}

func (e *testEnqueuer) Enqueue(_ context.Context, msg *JobExecutionMessage) error {
	e.messages = append(e.messages, msg)
	return nil
}

func TestEnqueueSweep_SchedulesJob(t *testing.T) {
	env := newTestService(t)
	enqueuer := &testEnqueuer{}

	if err := env.Service.EnqueueSweep(context.Background(), enqueuer); err != nil {
		t.Fatalf("enqueue sweep: %v", err)
	}
	if len(enqueuer.messages) != 1 {
		t.Fatalf("expected one enqueued message, got %d", len(enqueuer.messages))
	}
	if enqueuer.messages[0].JobID != SweepJobName {
		t.Fatalf("expected job id %q, got %q", SweepJobName, enqueuer.messages[0].JobID)
	}

	if err := env.Service.EnqueueSweep(context.Background(), nil); err == nil {
		t.Fatalf("expected nil enqueuer to be rejected")
	}
}
