package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"assessment-backend/internal/agreement"
	"assessment-backend/internal/domain"
	"assessment-backend/internal/registry"
	"assessment-backend/internal/workerpool"

	"go.uber.org/zap"
)

// StartOptions are the recognized assessment options beyond the file list.
type StartOptions struct {
	Features       []string
	Weighted       bool
	DefFile        string
	MergeEpistemic bool
	SplitByUse     bool
	OnlyEpistemic  bool
}

type AssessmentService struct {
	registry *registry.Registry
	pool     *workerpool.Pool
	defFile  string
	log      *zap.Logger
}

func New(reg *registry.Registry, pool *workerpool.Pool, defaultDefFile string, log *zap.Logger) (*AssessmentService, error) {
	if reg == nil {
		return nil, ErrRegistryNil
	}
	if pool == nil {
		return nil, ErrPoolNil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AssessmentService{
		registry: reg,
		pool:     pool,
		defFile:  defaultDefFile,
		log:      log,
	}, nil
}

// StartAssessment validates the request, creates a pending task and hands
// it to the pool. Validation failures never create a task; a full pool
// creates the task but marks it failed so the caller can still inspect it.
func (s *AssessmentService) StartAssessment(files []string, opts StartOptions) (domain.Task, error) {
	cleaned := make([]string, 0, len(files))
	for _, f := range files {
		if f = strings.TrimSpace(f); f != "" {
			cleaned = append(cleaned, f)
		}
	}
	if len(cleaned) < 2 {
		return domain.Task{}, fmt.Errorf("%w: at least 2 annotation files are required", ErrInvalidInput)
	}

	defFile := opts.DefFile
	if defFile == "" {
		defFile = s.defFile
	}

	task, err := s.registry.Create()
	if err != nil {
		return domain.Task{}, err
	}

	job := agreement.Job{
		Files:          cleaned,
		Features:       opts.Features,
		Weighted:       opts.Weighted,
		DefFile:        defFile,
		MergeEpistemic: opts.MergeEpistemic,
		SplitByUse:     opts.SplitByUse,
		OnlyEpistemic:  opts.OnlyEpistemic,
	}

	if err := s.pool.Submit(task.ID, job); err != nil {
		if errors.Is(err, workerpool.ErrPoolFull) || errors.Is(err, workerpool.ErrPoolClosed) {
			failed, fErr := s.registry.Update(task.ID, func(t *domain.Task) {
				t.Status = domain.StatusFailed
				t.Message = "Task failed"
				t.Error = err.Error()
			})
			if fErr != nil {
				return domain.Task{}, fErr
			}
			return failed, err
		}
		return domain.Task{}, err
	}

	s.log.Info("assessment submitted",
		zap.String("task_id", task.ID),
		zap.Int("files", len(cleaned)),
		zap.Bool("weighted", opts.Weighted))

	return task, nil
}

// GetStatus returns the current snapshot without waiting.
func (s *AssessmentService) GetStatus(id string) (domain.Task, error) {
	task, err := s.registry.Get(id)
	if errors.Is(err, registry.ErrNotFound) {
		return domain.Task{}, ErrNotFound
	}
	return task, err
}

// PollProgress blocks until the task's revision passes baseline or timeout
// elapses. Timing out is a normal outcome, reported via timedOut.
func (s *AssessmentService) PollProgress(ctx context.Context, id string, baseline uint64, timeout time.Duration) (domain.Task, bool, error) {
	task, timedOut, err := s.registry.WaitForUpdate(ctx, id, baseline, timeout)
	if errors.Is(err, registry.ErrNotFound) {
		return domain.Task{}, false, ErrNotFound
	}
	return task, timedOut, err
}

// GetResult returns the terminal snapshot. Before the task finishes it
// reports ErrNotReady, which is distinct from an unknown id.
func (s *AssessmentService) GetResult(id string) (domain.Task, error) {
	task, err := s.GetStatus(id)
	if err != nil {
		return domain.Task{}, err
	}
	if !task.Status.Terminal() {
		return task, ErrNotReady
	}
	return task, nil
}
