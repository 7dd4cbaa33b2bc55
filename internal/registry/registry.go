package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"assessment-backend/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("task not found")
	ErrTerminal = errors.New("task already in terminal state")
)

// record pairs a task with its progress channel. notify is closed and
// replaced on every publish, so all waiters wake at once.
type record struct {
	task   domain.Task
	notify chan struct{}
}

// Registry owns all task records. Records leave the registry only as value
// copies; the single mutex guards both the map and every record's revision,
// which is what makes WaitForUpdate race-free against publishes.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*record
	log   *zap.Logger
}

func New(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		tasks: make(map[string]*record),
		log:   log,
	}
}

// Create allocates a fresh pending task and its progress channel.
func (r *Registry) Create() (domain.Task, error) {
	now := time.Now()
	task := domain.Task{
		ID:        uuid.NewString(),
		Status:    domain.StatusPending,
		Message:   "Task created",
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.tasks[task.ID] = &record{
		task:   task,
		notify: make(chan struct{}),
	}
	r.mu.Unlock()

	return task, nil
}

// Get returns a point-in-time snapshot of the task.
func (r *Registry) Get(id string) (domain.Task, error) {
	r.mu.RLock()
	rec, ok := r.tasks[id]
	if !ok {
		r.mu.RUnlock()
		return domain.Task{}, ErrNotFound
	}
	snap := rec.task
	r.mu.RUnlock()

	return snap, nil
}

// Update applies mutate to the record, bumps the revision and wakes every
// waiter. Progress is clamped so it never decreases, and a completed task
// always reports 1.0. Mutating a terminal record is a programming error:
// it is logged and rejected, never applied.
func (r *Registry) Update(id string, mutate func(*domain.Task)) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.tasks[id]
	if !ok {
		return domain.Task{}, ErrNotFound
	}
	if rec.task.Status.Terminal() {
		r.log.Error("update of terminal task rejected",
			zap.String("task_id", id),
			zap.String("status", string(rec.task.Status)))
		return rec.task, ErrTerminal
	}

	prev := rec.task
	next := prev
	mutate(&next)

	// immutable fields
	next.ID = prev.ID
	next.CreatedAt = prev.CreatedAt

	if next.Progress < prev.Progress {
		next.Progress = prev.Progress
	}
	// an out-of-range report gets the same treatment as a decreasing one;
	// only completion may carry 1.0
	if next.Progress >= 1.0 && next.Status != domain.StatusCompleted {
		next.Progress = prev.Progress
	}
	if next.Status == domain.StatusCompleted {
		next.Progress = 1.0
	}

	next.Revision = prev.Revision + 1
	next.UpdatedAt = time.Now()
	rec.task = next

	close(rec.notify)
	rec.notify = make(chan struct{})

	return next, nil
}

// WaitForUpdate blocks until the task's revision advances past baseline,
// the timeout elapses, or ctx is cancelled (a disconnected poller). The
// snapshot and the channel to wait on are taken under the same lock, so a
// publish racing the timeout is always observed.
func (r *Registry) WaitForUpdate(ctx context.Context, id string, baseline uint64, timeout time.Duration) (domain.Task, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var last domain.Task
	for attempt := 0; ; attempt++ {
		r.mu.RLock()
		rec, ok := r.tasks[id]
		if !ok {
			r.mu.RUnlock()
			if attempt == 0 {
				return domain.Task{}, false, ErrNotFound
			}
			// evicted while we were waiting; the pre-eviction snapshot is
			// the final word
			return last, false, nil
		}
		if rec.task.Revision > baseline {
			snap := rec.task
			r.mu.RUnlock()
			return snap, false, nil
		}
		last = rec.task
		notify := rec.notify
		r.mu.RUnlock()

		select {
		case <-notify:
		case <-timer.C:
			return last, true, nil
		case <-ctx.Done():
			return last, false, ctx.Err()
		}
	}
}

// Remove evicts the task. Waiters still attached are released first;
// snapshots already handed out are value copies and stay valid.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	rec, ok := r.tasks[id]
	if ok {
		close(rec.notify)
		delete(r.tasks, id)
	}
	r.mu.Unlock()
}

// Sweep evicts terminal tasks whose last update is older than the retention
// window and reports how many were removed. Non-terminal tasks are never
// touched.
func (r *Registry) Sweep(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, rec := range r.tasks {
		if rec.task.Status.Terminal() && rec.task.UpdatedAt.Before(cutoff) {
			close(rec.notify)
			delete(r.tasks, id)
			removed++
		}
	}
	if removed > 0 {
		r.log.Info("swept finished tasks", zap.Int("removed", removed))
	}
	return removed
}

// Len reports the number of live records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
