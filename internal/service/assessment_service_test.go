package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"assessment-backend/internal/agreement"
	"assessment-backend/internal/domain"
	"assessment-backend/internal/registry"
	"assessment-backend/internal/workerpool"
)

func newService(t *testing.T, queueSize, workers int, run workerpool.RunFunc) (*AssessmentService, *registry.Registry, func()) {
	t.Helper()

	reg := registry.New(nil)
	if run == nil {
		run = func(context.Context, string, agreement.Job) {}
	}
	pool := workerpool.New(queueSize, run, nil)
	pool.Start(workers)

	svc, err := New(reg, pool, "defs.xml", nil)
	if err != nil {
		t.Fatalf("New err=%v", err)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	}
	return svc, reg, cleanup
}

func TestNew_NilDependencies(t *testing.T) {
	if _, err := New(nil, workerpool.New(1, nil, nil), "", nil); !errors.Is(err, ErrRegistryNil) {
		t.Fatalf("err=%v, want ErrRegistryNil", err)
	}
	if _, err := New(registry.New(nil), nil, "", nil); !errors.Is(err, ErrPoolNil) {
		t.Fatalf("err=%v, want ErrPoolNil", err)
	}
}

func TestStartAssessment_TooFewFiles(t *testing.T) {
	svc, reg, cleanup := newService(t, 4, 0, nil)
	defer cleanup()

	if _, err := svc.StartAssessment([]string{"a.xml"}, StartOptions{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err=%v, want ErrInvalidInput", err)
	}
	// blank entries don't count either
	if _, err := svc.StartAssessment([]string{"a.xml", "   "}, StartOptions{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err=%v, want ErrInvalidInput", err)
	}

	if reg.Len() != 0 {
		t.Fatalf("tasks=%d, want none created on invalid input", reg.Len())
	}
}

func TestStartAssessment_SubmitsJob(t *testing.T) {
	jobs := make(chan agreement.Job, 1)
	ids := make(chan string, 1)
	svc, _, cleanup := newService(t, 4, 1, func(_ context.Context, taskID string, job agreement.Job) {
		ids <- taskID
		jobs <- job
	})
	defer cleanup()

	task, err := svc.StartAssessment([]string{"f1.xml", "f2.xml"}, StartOptions{
		Features: []string{"use", "certainty"},
		Weighted: true,
	})
	if err != nil {
		t.Fatalf("StartAssessment err=%v", err)
	}
	if task.Status != domain.StatusPending {
		t.Fatalf("status=%q, want pending", task.Status)
	}

	select {
	case id := <-ids:
		if id != task.ID {
			t.Fatalf("ran task %q, want %q", id, task.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("job never reached a worker")
	}

	job := <-jobs
	if !job.Weighted || len(job.Features) != 2 {
		t.Fatalf("job=%+v", job)
	}
	if job.DefFile != "defs.xml" {
		t.Fatalf("def_file=%q, want service default", job.DefFile)
	}
}

func TestStartAssessment_DefFileOverride(t *testing.T) {
	jobs := make(chan agreement.Job, 1)
	svc, _, cleanup := newService(t, 4, 1, func(_ context.Context, _ string, job agreement.Job) {
		jobs <- job
	})
	defer cleanup()

	if _, err := svc.StartAssessment([]string{"f1.xml", "f2.xml"}, StartOptions{DefFile: "custom.xml"}); err != nil {
		t.Fatalf("StartAssessment err=%v", err)
	}
	if job := <-jobs; job.DefFile != "custom.xml" {
		t.Fatalf("def_file=%q, want override", job.DefFile)
	}
}

func TestStartAssessment_PoolFullFailsTask(t *testing.T) {
	svc, _, cleanup := newService(t, 1, 0, nil)
	defer cleanup()

	if _, err := svc.StartAssessment([]string{"a.xml", "b.xml"}, StartOptions{}); err != nil {
		t.Fatalf("first StartAssessment err=%v", err)
	}

	task, err := svc.StartAssessment([]string{"c.xml", "d.xml"}, StartOptions{})
	if !errors.Is(err, workerpool.ErrPoolFull) {
		t.Fatalf("err=%v, want ErrPoolFull", err)
	}
	if task.Status != domain.StatusFailed {
		t.Fatalf("status=%q, want failed", task.Status)
	}
	if task.Error == "" {
		t.Fatalf("error is empty")
	}
}

func TestGetStatus_NotFound(t *testing.T) {
	svc, _, cleanup := newService(t, 4, 0, nil)
	defer cleanup()

	if _, err := svc.GetStatus("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

func TestGetResult_Lifecycle(t *testing.T) {
	svc, reg, cleanup := newService(t, 4, 0, nil)
	defer cleanup()

	task, err := svc.StartAssessment([]string{"a.xml", "b.xml"}, StartOptions{})
	if err != nil {
		t.Fatalf("StartAssessment err=%v", err)
	}

	if _, err := svc.GetResult(task.ID); !errors.Is(err, ErrNotReady) {
		t.Fatalf("err=%v, want ErrNotReady before terminal", err)
	}

	want := &domain.Result{Summary: "ok", Metrics: map[string]float64{"cohens_kappa": 0.8}}
	if _, err := reg.Update(task.ID, func(tk *domain.Task) {
		tk.Status = domain.StatusCompleted
		tk.Result = want
	}); err != nil {
		t.Fatalf("Update err=%v", err)
	}

	// idempotent once terminal
	for i := 0; i < 3; i++ {
		got, err := svc.GetResult(task.ID)
		if err != nil {
			t.Fatalf("GetResult err=%v", err)
		}
		if got.Result != want {
			t.Fatalf("result=%+v, want stable payload", got.Result)
		}
	}
}

func TestGetResult_FailedTaskCarriesError(t *testing.T) {
	svc, reg, cleanup := newService(t, 4, 0, nil)
	defer cleanup()

	task, err := svc.StartAssessment([]string{"a.xml", "b.xml"}, StartOptions{})
	if err != nil {
		t.Fatalf("StartAssessment err=%v", err)
	}
	if _, err := reg.Update(task.ID, func(tk *domain.Task) {
		tk.Status = domain.StatusFailed
		tk.Error = "missing input file"
	}); err != nil {
		t.Fatalf("Update err=%v", err)
	}

	got, err := svc.GetResult(task.ID)
	if err != nil {
		t.Fatalf("GetResult err=%v", err)
	}
	if got.Result != nil {
		t.Fatalf("result=%+v, want nil for failed task", got.Result)
	}
	if got.Error != "missing input file" {
		t.Fatalf("error=%q", got.Error)
	}
}

func TestPollProgress_NotFound(t *testing.T) {
	svc, _, cleanup := newService(t, 4, 0, nil)
	defer cleanup()

	if _, _, err := svc.PollProgress(context.Background(), "nope", 0, time.Second); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}
