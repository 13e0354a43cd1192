package orchestrator

import (
	"context"
	"time"

	"github.com/mediaforge/server/internal/domain/generation"
	apperrors "github.com/mediaforge/server/internal/shared/errors"
	"github.com/mediaforge/server/internal/shared/logger"
	"github.com/mediaforge/server/internal/utils/metrics"
)

// Clock abstracts wall-clock time and sleeping so wait-mode polling and
// its timeout behavior are testable without real delays.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

// WaitPolicy bounds wait-mode polling.
type WaitPolicy struct {
	// Interval is the fixed sleep between polls.
	Interval time.Duration
	// MaxWait is the maximum total wall-clock wait before giving up.
	// Exceeding it is not a task failure; the task id stays valid.
	MaxWait time.Duration
}

// DefaultWaitPolicy returns a vendor-neutral polling policy.
func DefaultWaitPolicy() WaitPolicy {
	return WaitPolicy{
		Interval: 5 * time.Second,
		MaxWait:  8 * time.Minute,
	}
}

// Engine drives submit, poll and terminal-state transitions for
// asynchronous tasks. It holds no per-task state: each invocation polls
// sequentially, so a later poll can only observe a state at or after the
// prior one.
type Engine struct {
	clock   Clock
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewEngine creates a task lifecycle engine.
func NewEngine(clock Clock, log *logger.Logger, m *metrics.Metrics) *Engine {
	if clock == nil {
		clock = realClock{}
	}
	return &Engine{clock: clock, log: log, metrics: m}
}

// Await polls the task at the policy interval until it reaches a terminal
// state or the maximum wait elapses. The bool return is true when the
// wait timed out; the returned task then carries the last observed
// non-terminal state and the original task id so the caller can resume
// via a later status check.
func (e *Engine) Await(ctx context.Context, poller Poller, task *generation.Task, creds generation.Credentials, policy WaitPolicy) (*generation.Task, bool, *apperrors.Error) {
	if policy.Interval <= 0 {
		policy = DefaultWaitPolicy()
	}
	deadline := e.clock.Now().Add(policy.MaxWait)

	if e.metrics != nil {
		e.metrics.TasksInFlight.Inc()
		defer e.metrics.TasksInFlight.Dec()
	}

	current := task
	for {
		if current.Terminal() {
			return current, false, nil
		}
		if !e.clock.Now().Before(deadline) {
			e.log.Warn("wait-mode poll exceeded maximum wait",
				"provider", task.Provider,
				"task_id", task.ID,
				"task_type", task.Type,
				"max_wait", policy.MaxWait,
			)
			return current, true, nil
		}

		if err := e.clock.Sleep(ctx, policy.Interval); err != nil {
			return current, false, apperrors.Network(task.Provider, err)
		}

		next, err := e.Poll(ctx, poller, task.Provider, current.ID, current.Type, creds)
		if err != nil {
			return current, false, err
		}
		current = next
	}
}

// Poll performs exactly one status check against the provider.
func (e *Engine) Poll(ctx context.Context, poller Poller, providerID, taskID string, taskType generation.TaskType, creds generation.Credentials) (*generation.Task, *apperrors.Error) {
	task, err := poller.Poll(ctx, taskID, taskType, creds)
	if err != nil {
		return nil, asAppError(providerID, err)
	}
	task.Progress = generation.ClampProgress(task.Progress)
	if e.metrics != nil {
		e.metrics.TaskPollsTotal.WithLabelValues(providerID, string(taskType), string(task.Status)).Inc()
	}
	e.log.Debug("task polled",
		"provider", providerID,
		"task_id", taskID,
		"task_type", taskType,
		"status", task.Status,
		"progress", task.Progress,
	)
	return task, nil
}

// asAppError keeps already-normalized errors and wraps everything else as
// a network failure.
func asAppError(providerID string, err error) *apperrors.Error {
	if appErr, ok := err.(*apperrors.Error); ok {
		return appErr
	}
	return apperrors.Network(providerID, err)
}
