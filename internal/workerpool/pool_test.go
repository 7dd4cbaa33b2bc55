package workerpool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"assessment-backend/internal/agreement"
)

func TestSubmit_PoolFull(t *testing.T) {
	pool := New(1, func(context.Context, string, agreement.Job) {}, nil)
	// no workers started: the queue is the only capacity

	if err := pool.Submit("t1", agreement.Job{}); err != nil {
		t.Fatalf("first Submit err=%v", err)
	}
	if err := pool.Submit("t2", agreement.Job{}); !errors.Is(err, ErrPoolFull) {
		t.Fatalf("err=%v, want ErrPoolFull", err)
	}
}

func TestSubmit_AfterShutdown(t *testing.T) {
	pool := New(4, func(context.Context, string, agreement.Job) {}, nil)
	pool.Start(1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := pool.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown err=%v", err)
	}

	if err := pool.Submit("t1", agreement.Job{}); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("err=%v, want ErrPoolClosed", err)
	}
}

func TestWorkers_RunSubmittedJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]agreement.Job{}
	done := make(chan struct{}, 3)

	pool := New(8, func(_ context.Context, taskID string, job agreement.Job) {
		mu.Lock()
		seen[taskID] = job
		mu.Unlock()
		done <- struct{}{}
	}, nil)
	pool.Start(2)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	}()

	for _, id := range []string{"a", "b", "c"} {
		if err := pool.Submit(id, agreement.Job{Files: []string{id + ".xml"}}); err != nil {
			t.Fatalf("Submit(%s) err=%v", id, err)
		}
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of 3 jobs ran", i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen["b"].Files) != 1 || seen["b"].Files[0] != "b.xml" {
		t.Fatalf("job payload lost: %+v", seen["b"])
	}
}

func TestShutdown_FailsQueuedJobs(t *testing.T) {
	var mu sync.Mutex
	dropped := map[string]string{}

	pool := New(4, func(context.Context, string, agreement.Job) {}, func(taskID, reason string) {
		mu.Lock()
		dropped[taskID] = reason
		mu.Unlock()
	})
	// never started: everything submitted stays queued

	_ = pool.Submit("q1", agreement.Job{})
	_ = pool.Submit("q2", agreement.Job{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := pool.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown err=%v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(dropped) != 2 {
		t.Fatalf("dropped=%d, want 2", len(dropped))
	}
	if dropped["q1"] == "" {
		t.Fatalf("drop reason is empty")
	}
}

func TestShutdown_WaitsForInFlight(t *testing.T) {
	started := make(chan struct{})
	finished := make(chan struct{})

	pool := New(1, func(ctx context.Context, _ string, _ agreement.Job) {
		close(started)
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
		}
		close(finished)
	}, nil)
	pool.Start(1)

	if err := pool.Submit("slow", agreement.Job{}); err != nil {
		t.Fatalf("Submit err=%v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown err=%v", err)
	}

	select {
	case <-finished:
	default:
		t.Fatalf("Shutdown returned before the in-flight job finished")
	}
}
