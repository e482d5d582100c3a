// Package bulk provides an unbounded concurrent task executor with
// wait-for-all, wait-for-first, and deadline-bounded semantics. It backs
// the category download fan-out in the pipeline.
package bulk

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRejected is returned when work is submitted to a shut-down executor.
var ErrRejected = errors.New("executor is shut down")

// ErrTimeout is returned when no task completes before the deadline.
var ErrTimeout = errors.New("no task completed before the deadline")

// Task is one unit of submitted work. It must honor context cancellation
// to be stoppable by deadlines and ShutdownNow.
type Task func(ctx context.Context) error

// Result pairs a task's position in its batch with its outcome.
type Result struct {
	Index int
	Err   error
}

// Handle tracks one submitted task until it is observed complete.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Cancel asks the task to stop via its context.
func (h *Handle) Cancel() {
	h.cancel()
}

// Done is closed when the task has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the task's outcome; only valid after Done is closed.
func (h *Handle) Err() error {
	return h.err
}

// Executor runs tasks with unbounded concurrency: every submission starts
// immediately, with no queueing or backpressure.
type Executor struct {
	mu           sync.Mutex
	pending      map[*Handle]struct{}
	idle         chan struct{}
	shuttingDown bool

	baseCtx    context.Context
	baseCancel context.CancelFunc
}

// New creates an Executor.
func New() *Executor {
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	return &Executor{
		pending:    make(map[*Handle]struct{}),
		idle:       idle,
		baseCtx:    ctx,
		baseCancel: cancel,
	}
}

// Submit starts the task immediately and returns its handle. It fails with
// ErrRejected once shutdown has begun.
func (e *Executor) Submit(task Task) (*Handle, error) {
	e.mu.Lock()
	if e.shuttingDown {
		e.mu.Unlock()
		return nil, ErrRejected
	}
	ctx, cancel := context.WithCancel(e.baseCtx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	if len(e.pending) == 0 {
		e.idle = make(chan struct{})
	}
	e.pending[h] = struct{}{}
	e.mu.Unlock()

	go func() {
		defer cancel()
		h.err = task(ctx)
		close(h.done)
		e.remove(h)
	}()
	return h, nil
}

func (e *Executor) remove(h *Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, h)
	if len(e.pending) == 0 {
		close(e.idle)
	}
}

// RunAll submits every task and waits for all of them to finish, returning
// one Result per task in submission order.
func (e *Executor) RunAll(tasks []Task) ([]Result, error) {
	handles, err := e.submitAll(tasks)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(handles))
	for i, h := range handles {
		<-h.Done()
		results = append(results, Result{Index: i, Err: h.Err()})
	}
	return results, nil
}

// RunAllWithDeadline waits up to timeout for the batch. Tasks still running
// at the deadline are cancelled; whatever completed in time is returned.
func (e *Executor) RunAllWithDeadline(tasks []Task, timeout time.Duration) ([]Result, error) {
	handles, err := e.submitAll(tasks)
	if err != nil {
		return nil, err
	}

	completions := make(chan Result, len(handles))
	for i, h := range handles {
		go func(idx int, handle *Handle) {
			<-handle.Done()
			completions <- Result{Index: idx, Err: handle.Err()}
		}(i, h)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	var results []Result
	for range handles {
		select {
		case res := <-completions:
			results = append(results, res)
		case <-timer.C:
			for _, h := range handles {
				h.Cancel()
			}
			return results, nil
		}
	}
	return results, nil
}

// RunAny waits for the first task to finish and cancels the rest.
func (e *Executor) RunAny(tasks []Task) (Result, error) {
	return e.runAny(tasks, 0)
}

// RunAnyWithDeadline is RunAny bounded by a timeout; it fails with
// ErrTimeout when nothing completes in time.
func (e *Executor) RunAnyWithDeadline(tasks []Task, timeout time.Duration) (Result, error) {
	return e.runAny(tasks, timeout)
}

func (e *Executor) runAny(tasks []Task, timeout time.Duration) (Result, error) {
	handles, err := e.submitAll(tasks)
	if err != nil {
		return Result{}, err
	}
	cancelAll := func() {
		for _, h := range handles {
			h.Cancel()
		}
	}

	completions := make(chan Result, len(handles))
	for i, h := range handles {
		go func(idx int, handle *Handle) {
			<-handle.Done()
			completions <- Result{Index: idx, Err: handle.Err()}
		}(i, h)
	}

	if timeout <= 0 {
		res := <-completions
		cancelAll()
		return res, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-completions:
		cancelAll()
		return res, nil
	case <-timer.C:
		cancelAll()
		return Result{}, ErrTimeout
	}
}

func (e *Executor) submitAll(tasks []Task) ([]*Handle, error) {
	handles := make([]*Handle, 0, len(tasks))
	for _, task := range tasks {
		h, err := e.Submit(task)
		if err != nil {
			for _, prev := range handles {
				prev.Cancel()
			}
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// Shutdown stops accepting new work and lets in-flight tasks finish.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	e.shuttingDown = true
	e.mu.Unlock()
}

// ShutdownNow stops accepting new work and cancels every in-flight task
// through its context.
func (e *Executor) ShutdownNow() {
	e.mu.Lock()
	e.shuttingDown = true
	e.mu.Unlock()
	e.baseCancel()
}

// AwaitTermination blocks until all tasks have finished or the timeout
// elapses; it reports whether the executor drained in time.
func (e *Executor) AwaitTermination(timeout time.Duration) bool {
	e.mu.Lock()
	idle := e.idle
	e.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-idle:
		return true
	case <-timer.C:
		return false
	}
}
