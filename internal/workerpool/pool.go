package workerpool

import (
	"context"
	"errors"
	"sync"

	"assessment-backend/internal/agreement"
)

var (
	ErrPoolFull   = errors.New("task pool is full")
	ErrPoolClosed = errors.New("task pool is closed")
)

// RunFunc executes one assessment to its terminal state.
type RunFunc func(ctx context.Context, taskID string, job agreement.Job)

// DropFunc is called for jobs that were queued but never started.
type DropFunc func(taskID, reason string)

type queued struct {
	taskID string
	job    agreement.Job
}

// Pool dispatches assessments to a fixed set of workers through a bounded
// queue. A full queue is the service's resource-exhaustion signal: Submit
// fails fast instead of blocking the request path.
type Pool struct {
	mu     sync.Mutex
	closed bool

	queue  chan queued
	stop   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	run  RunFunc
	drop DropFunc
}

func New(queueSize int, run RunFunc, drop DropFunc) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		queue:  make(chan queued, queueSize),
		stop:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		run:    run,
		drop:   drop,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-p.stop:
					return
				case item := <-p.queue:
					p.run(p.ctx, item.taskID, item.job)
				}
			}
		}()
	}
}

// Submit enqueues a job without blocking.
func (p *Pool) Submit(taskID string, job agreement.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- queued{taskID: taskID, job: job}:
		return nil
	default:
		return ErrPoolFull
	}
}

// Shutdown stops intake, waits for in-flight assessments up to ctx's
// deadline (then cancels them), and fails jobs that never started so no
// task is left pending forever.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.stop)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		p.cancel()
		<-done
		err = ctx.Err()
	}

	for {
		select {
		case item := <-p.queue:
			if p.drop != nil {
				p.drop(item.taskID, "server shut down before the task started")
			}
		default:
			return err
		}
	}
}
