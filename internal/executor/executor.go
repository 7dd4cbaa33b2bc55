// Package executor runs assessments off the request path and mirrors their
// lifecycle into the task registry.
package executor

import (
	"context"
	"fmt"
	"time"

	"assessment-backend/internal/agreement"
	"assessment-backend/internal/domain"
	"assessment-backend/internal/registry"

	"go.uber.org/zap"
)

type Executor struct {
	registry *registry.Registry
	runner   agreement.Runner
	log      *zap.Logger
}

func New(reg *registry.Registry, runner agreement.Runner, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{registry: reg, runner: runner, log: log}
}

// Run executes one assessment to its terminal state. Every failure mode of
// the runner, panics included, ends as a failed transition on the task;
// nothing escapes to the caller. ctx belongs to the process, not to any
// poller: a client disconnecting from a poll never reaches here.
func (e *Executor) Run(ctx context.Context, taskID string, job agreement.Job) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("assessment panicked",
				zap.String("task_id", taskID),
				zap.Any("panic", r))
			e.fail(taskID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if _, err := e.registry.Update(taskID, func(t *domain.Task) {
		t.Status = domain.StatusRunning
		t.Progress = 0
		t.Message = "Starting assessment..."
	}); err != nil {
		e.log.Error("cannot start task", zap.String("task_id", taskID), zap.Error(err))
		return
	}

	e.log.Info("assessment started",
		zap.String("task_id", taskID),
		zap.String("runner", e.runner.Name()),
		zap.Strings("files", job.Files))

	report := func(fraction float64, message string) {
		if _, err := e.registry.Update(taskID, func(t *domain.Task) {
			t.Progress = fraction
			t.Message = message
		}); err != nil {
			e.log.Warn("dropping progress update", zap.String("task_id", taskID), zap.Error(err))
		}
	}

	result, err := e.runner.Run(ctx, job, report)
	if err != nil {
		e.log.Warn("assessment failed", zap.String("task_id", taskID), zap.Error(err))
		e.fail(taskID, err.Error())
		return
	}

	if _, err := e.registry.Update(taskID, func(t *domain.Task) {
		t.Status = domain.StatusCompleted
		t.Message = "Task completed successfully"
		t.Result = result
	}); err != nil {
		e.log.Error("cannot complete task", zap.String("task_id", taskID), zap.Error(err))
		return
	}
	e.log.Info("assessment completed",
		zap.String("task_id", taskID),
		zap.Duration("took", time.Since(start)))
}

func (e *Executor) fail(taskID, message string) {
	if _, err := e.registry.Update(taskID, func(t *domain.Task) {
		t.Status = domain.StatusFailed
		t.Message = "Task failed"
		t.Error = message
	}); err != nil {
		e.log.Error("cannot fail task", zap.String("task_id", taskID), zap.Error(err))
	}
}
