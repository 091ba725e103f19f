package gojob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/twjackysu/go-connectors/core"
)

type stubMaintenanceService struct {
	sweeps   int
	purges   int
	sweepErr error
	purgeErr error
}

func (s *stubMaintenanceService) SweepExpiring(_ context.Context) (core.SweepResult, error) {
	s.sweeps++
	return core.SweepResult{Scanned: 2, Refreshed: 1}, s.sweepErr
}

func (s *stubMaintenanceService) PurgeExpiredStates(_ context.Context) (int, error) {
	s.purges++
	return 3, s.purgeErr
}

type recordedNack struct {
	opts core.JobNackOptions
}

type stubDelivery struct {
	msg   *core.JobExecutionMessage
	acks  int
	nacks []recordedNack
}

func (d *stubDelivery) Message() *core.JobExecutionMessage { return d.msg }

func (d *stubDelivery) Ack(_ context.Context) error {
	d.acks++
	return nil
}

func (d *stubDelivery) Nack(_ context.Context, opts core.JobNackOptions) error {
	d.nacks = append(d.nacks, recordedNack{opts: opts})
	return nil
}

type stubDequeuer struct {
	deliveries []core.JobDelivery
	err        error
}

func (d *stubDequeuer) Dequeue(_ context.Context) (core.JobDelivery, error) {
	if d.err != nil {
		return nil, d.err
	}
	if len(d.deliveries) == 0 {
		return nil, context.Canceled
	}
	next := d.deliveries[0]
	d.deliveries = d.deliveries[1:]
	return next, nil
}

type recordingHook struct {
	starts    []core.JobWorkerEvent
	successes []core.JobWorkerEvent
	failures  []core.JobWorkerEvent
	retries   []core.JobWorkerEvent
}

func (h *recordingHook) OnStart(_ context.Context, event core.JobWorkerEvent) {
	h.starts = append(h.starts, event)
}

func (h *recordingHook) OnSuccess(_ context.Context, event core.JobWorkerEvent) {
	h.successes = append(h.successes, event)
}

func (h *recordingHook) OnFailure(_ context.Context, event core.JobWorkerEvent) {
	h.failures = append(h.failures, event)
}

func (h *recordingHook) OnRetry(_ context.Context, event core.JobWorkerEvent) {
	h.retries = append(h.retries, event)
}

func TestMaintenanceRunnerExecutesSweepAndPurge(t *testing.T) {
	service := &stubMaintenanceService{}
	hook := &recordingHook{}
	window := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sweep := &stubDelivery{msg: NewRefreshSweepMessage(window)}
	purge := &stubDelivery{msg: NewStatePurgeMessage(window)}
	dequeuer := &stubDequeuer{deliveries: []core.JobDelivery{sweep, purge}}

	runner, err := NewMaintenanceRunner(service, dequeuer, WithWorkerHook(hook))
	if err != nil {
		t.Fatalf("new maintenance runner: %v", err)
	}

	if err := runner.RunOnce(context.Background()); err != nil {
		t.Fatalf("run sweep delivery: %v", err)
	}
	if err := runner.RunOnce(context.Background()); err != nil {
		t.Fatalf("run purge delivery: %v", err)
	}

	if service.sweeps != 1 || service.purges != 1 {
		t.Fatalf("expected one sweep and one purge, got %d/%d", service.sweeps, service.purges)
	}
	if sweep.acks != 1 || purge.acks != 1 {
		t.Fatalf("expected both deliveries acked, got %d/%d", sweep.acks, purge.acks)
	}
	if len(hook.starts) != 2 || len(hook.successes) != 2 {
		t.Fatalf("expected hook start/success for both jobs, got %d/%d", len(hook.starts), len(hook.successes))
	}
	if len(hook.failures) != 0 || len(hook.retries) != 0 {
		t.Fatalf("unexpected failure or retry events: %d/%d", len(hook.failures), len(hook.retries))
	}
}

func TestMaintenanceRunnerRetriesTransientFailure(t *testing.T) {
	service := &stubMaintenanceService{sweepErr: errors.New("store unavailable")}
	hook := &recordingHook{}
	delivery := &stubDelivery{msg: NewRefreshSweepMessage(time.Now())}
	dequeuer := &stubDequeuer{deliveries: []core.JobDelivery{delivery}}

	runner, err := NewMaintenanceRunner(service, dequeuer, WithWorkerHook(hook))
	if err != nil {
		t.Fatalf("new maintenance runner: %v", err)
	}

	if err := runner.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected execution error to surface")
	}
	if delivery.acks != 0 {
		t.Fatalf("failed delivery should not ack")
	}
	if len(delivery.nacks) != 1 {
		t.Fatalf("expected one nack, got %d", len(delivery.nacks))
	}
	nack := delivery.nacks[0].opts
	if !nack.Requeue || nack.DeadLetter {
		t.Fatalf("transient failure should requeue, got %+v", nack)
	}
	if len(hook.retries) != 1 || len(hook.failures) != 0 {
		t.Fatalf("expected a retry event, got retries=%d failures=%d", len(hook.retries), len(hook.failures))
	}
}

func TestMaintenanceRunnerDeadLettersUnknownJob(t *testing.T) {
	service := &stubMaintenanceService{}
	hook := &recordingHook{}
	delivery := &stubDelivery{msg: &core.JobExecutionMessage{JobID: "connectors.unknown"}}
	dequeuer := &stubDequeuer{deliveries: []core.JobDelivery{delivery}}

	runner, err := NewMaintenanceRunner(service, dequeuer, WithWorkerHook(hook))
	if err != nil {
		t.Fatalf("new maintenance runner: %v", err)
	}

	if err := runner.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected unknown job error")
	}
	if service.sweeps != 0 || service.purges != 0 {
		t.Fatalf("unknown job must not reach the service")
	}
	if len(delivery.nacks) != 1 {
		t.Fatalf("expected one nack, got %d", len(delivery.nacks))
	}
	nack := delivery.nacks[0].opts
	if !nack.DeadLetter || nack.Requeue {
		t.Fatalf("unknown job should dead letter, got %+v", nack)
	}
	if len(hook.failures) != 1 {
		t.Fatalf("expected a failure event, got %d", len(hook.failures))
	}
}

func TestMaintenanceRunnerRunStopsOnCancel(t *testing.T) {
	service := &stubMaintenanceService{}
	dequeuer := &stubDequeuer{deliveries: []core.JobDelivery{
		&stubDelivery{msg: NewRefreshSweepMessage(time.Now())},
	}}

	runner, err := NewMaintenanceRunner(service, dequeuer)
	if err != nil {
		t.Fatalf("new maintenance runner: %v", err)
	}

	err = runner.Run(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected run to stop when the queue reports cancellation, got %v", err)
	}
	if service.sweeps != 1 {
		t.Fatalf("expected the queued sweep to execute before stopping, got %d", service.sweeps)
	}
}

func TestNewMaintenanceRunnerRequiresDependencies(t *testing.T) {
	if _, err := NewMaintenanceRunner(nil, &stubDequeuer{}); err == nil {
		t.Fatalf("expected error for nil service")
	}
	if _, err := NewMaintenanceRunner(&stubMaintenanceService{}, nil); err == nil {
		t.Fatalf("expected error for nil dequeuer")
	}
}

type recordingEnqueuer struct {
	messages []*core.JobExecutionMessage
	err      error
}

func (e *recordingEnqueuer) Enqueue(_ context.Context, msg *core.JobExecutionMessage) error {
	if e.err != nil {
		return e.err
	}
	e.messages = append(e.messages, msg)
	return nil
}

func TestSweepSchedulerTickEnqueuesBothJobs(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	scheduler, err := NewSweepScheduler(enqueuer, 5*time.Minute)
	if err != nil {
		t.Fatalf("new sweep scheduler: %v", err)
	}

	if err := scheduler.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(enqueuer.messages) != 2 {
		t.Fatalf("expected 2 enqueued jobs, got %d", len(enqueuer.messages))
	}
	if enqueuer.messages[0].JobID != JobIDRefreshSweep {
		t.Fatalf("expected sweep first, got %q", enqueuer.messages[0].JobID)
	}
	if enqueuer.messages[1].JobID != JobIDStatePurge {
		t.Fatalf("expected purge second, got %q", enqueuer.messages[1].JobID)
	}
	for _, msg := range enqueuer.messages {
		if msg.IdempotencyKey == "" {
			t.Fatalf("expected idempotency key on %s", msg.JobID)
		}
	}
}

func TestSweepSchedulerTickSharesWindowKeys(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	scheduler, err := NewSweepScheduler(enqueuer, 5*time.Minute)
	if err != nil {
		t.Fatalf("new sweep scheduler: %v", err)
	}
	base := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)
	scheduler.now = func() time.Time { return base }

	if err := scheduler.Tick(context.Background()); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	scheduler.now = func() time.Time { return base.Add(time.Minute) }
	if err := scheduler.Tick(context.Background()); err != nil {
		t.Fatalf("second tick: %v", err)
	}

	if len(enqueuer.messages) != 4 {
		t.Fatalf("expected 4 enqueued jobs, got %d", len(enqueuer.messages))
	}
	if enqueuer.messages[0].IdempotencyKey != enqueuer.messages[2].IdempotencyKey {
		t.Fatalf("ticks inside one window should share the sweep key: %q vs %q",
			enqueuer.messages[0].IdempotencyKey, enqueuer.messages[2].IdempotencyKey)
	}
}

func TestNewSweepSchedulerRequiresEnqueuer(t *testing.T) {
	if _, err := NewSweepScheduler(nil, time.Minute); err == nil {
		t.Fatalf("expected error for nil enqueuer")
	}
}
