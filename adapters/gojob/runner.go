package gojob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/twjackysu/go-connectors/core"
)

// MaintenanceService exposes the background operations the runner executes.
type MaintenanceService interface {
	SweepExpiring(ctx context.Context) (core.SweepResult, error)
	PurgeExpiredStates(ctx context.Context) (int, error)
}

// MaintenanceRunner drains connector maintenance jobs from a queue and
// executes them against the service. Unknown job IDs are dead-lettered so
// misrouted messages do not spin forever.
type MaintenanceRunner struct {
	service  MaintenanceService
	dequeuer core.JobDequeuer
	hook     core.JobWorkerHook
	policy   RetryPolicy
	now      func() time.Time
}

type MaintenanceRunnerOption func(*MaintenanceRunner)

func WithWorkerHook(hook core.JobWorkerHook) MaintenanceRunnerOption {
	return func(r *MaintenanceRunner) {
		if hook != nil {
			r.hook = hook
		}
	}
}

func WithRetryPolicy(policy RetryPolicy) MaintenanceRunnerOption {
	return func(r *MaintenanceRunner) {
		r.policy = policy
	}
}

func NewMaintenanceRunner(service MaintenanceService, dequeuer core.JobDequeuer, options ...MaintenanceRunnerOption) (*MaintenanceRunner, error) {
	if service == nil {
		return nil, fmt.Errorf("gojob: maintenance service is required")
	}
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	runner := &MaintenanceRunner{
		service:  service,
		dequeuer: dequeuer,
		policy:   RetryPolicy{MaxAttempts: 5, MaxDelay: time.Minute, DeadLetterOnMax: true},
		now:      time.Now,
	}
	for _, option := range options {
		if option != nil {
			option(runner)
		}
	}
	return runner, nil
}

// Run consumes deliveries until the context is canceled.
func (r *MaintenanceRunner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delivery, err := r.dequeuer.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			continue
		}
		r.handle(ctx, delivery, 1)
	}
}

// RunOnce dequeues and executes a single delivery. Useful for cron style
// scheduling where an external trigger owns the cadence.
func (r *MaintenanceRunner) RunOnce(ctx context.Context) error {
	delivery, err := r.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	return r.handle(ctx, delivery, 1)
}

func (r *MaintenanceRunner) handle(ctx context.Context, delivery core.JobDelivery, attempt int) error {
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}
	msg := delivery.Message()
	startedAt := r.now()
	if r.hook != nil {
		r.hook.OnStart(ctx, core.JobWorkerEvent{Message: msg, Attempt: attempt, StartedAt: startedAt})
	}

	err := r.execute(ctx, msg)
	event := core.JobWorkerEvent{
		Message:   msg,
		Attempt:   attempt,
		Err:       err,
		StartedAt: startedAt,
		Duration:  r.now().Sub(startedAt),
	}
	if err == nil {
		if r.hook != nil {
			r.hook.OnSuccess(ctx, event)
		}
		return delivery.Ack(ctx)
	}

	opts := core.JobNackOptions{Requeue: true, Reason: err.Error()}
	if isUnknownJob(err) {
		opts = core.JobNackOptions{DeadLetter: true, Reason: err.Error()}
	}
	opts = r.policy.NormalizeAttempt(opts, attempt)
	if r.hook != nil {
		if opts.Requeue {
			r.hook.OnRetry(ctx, event)
		} else {
			r.hook.OnFailure(ctx, event)
		}
	}
	if nackErr := delivery.Nack(ctx, opts); nackErr != nil {
		return nackErr
	}
	return err
}

func (r *MaintenanceRunner) execute(ctx context.Context, msg *core.JobExecutionMessage) error {
	if msg == nil {
		return errUnknownJob("")
	}
	switch strings.TrimSpace(msg.JobID) {
	case JobIDRefreshSweep:
		_, err := r.service.SweepExpiring(ctx)
		return err
	case JobIDStatePurge:
		_, err := r.service.PurgeExpiredStates(ctx)
		return err
	default:
		return errUnknownJob(msg.JobID)
	}
}

type unknownJobError struct {
	jobID string
}

func errUnknownJob(jobID string) error {
	return &unknownJobError{jobID: strings.TrimSpace(jobID)}
}

func (e *unknownJobError) Error() string {
	if e.jobID == "" {
		return "gojob: job id is required"
	}
	return fmt.Sprintf("gojob: unknown job id %q", e.jobID)
}

func isUnknownJob(err error) bool {
	var target *unknownJobError
	return errors.As(err, &target)
}

// SweepScheduler periodically enqueues sweep and purge jobs.
type SweepScheduler struct {
	enqueuer core.JobEnqueuer
	interval time.Duration
	now      func() time.Time
}

func NewSweepScheduler(enqueuer core.JobEnqueuer, interval time.Duration) (*SweepScheduler, error) {
	if enqueuer == nil {
		return nil, fmt.Errorf("gojob: enqueuer is required")
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SweepScheduler{enqueuer: enqueuer, interval: interval, now: time.Now}, nil
}

// Tick enqueues one sweep and one purge message for the current window.
func (s *SweepScheduler) Tick(ctx context.Context) error {
	window := s.now().Truncate(s.interval)
	if err := s.enqueuer.Enqueue(ctx, NewRefreshSweepMessage(window)); err != nil {
		return err
	}
	return s.enqueuer.Enqueue(ctx, NewStatePurgeMessage(window))
}

// Run enqueues on the configured cadence until the context is canceled.
func (s *SweepScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}
