package dispatch

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// DisplayTask is one unit of display mutation. Tasks that commit results for
// a particular pause are expected to re-check that pause's validity before
// touching any node state.
type DisplayTask func()

// DisplayExecutor serializes all display mutation through a single
// goroutine.
//
// Tree nodes, widget state, and focus commits have display affinity: they
// are read and written only from this executor's worker, which is what lets
// the display side run without locks. Enqueueing never blocks, so a slow
// protocol conversation can never stall the display and vice versa.
type DisplayExecutor struct {
	queueSize    int
	panicHandler PanicHandler

	mu      sync.Mutex
	queue   chan DisplayTask
	running atomic.Bool
	closed  atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	// Stats
	scheduled atomic.Uint64
	executed  atomic.Uint64
	dropped   atomic.Uint64
	panicked  atomic.Uint64
}

// DisplayOption configures a DisplayExecutor.
type DisplayOption func(*DisplayExecutor)

// WithDisplayQueueSize sets the task queue size.
func WithDisplayQueueSize(size int) DisplayOption {
	return func(e *DisplayExecutor) {
		if size > 0 {
			e.queueSize = size
		}
	}
}

// WithDisplayPanicHandler sets the panic handler for task execution.
func WithDisplayPanicHandler(h PanicHandler) DisplayOption {
	return func(e *DisplayExecutor) {
		if h != nil {
			e.panicHandler = h
		}
	}
}

// NewDisplayExecutor creates a new display executor with the given options.
func NewDisplayExecutor(opts ...DisplayOption) *DisplayExecutor {
	e := &DisplayExecutor{
		queueSize:    1024,
		panicHandler: defaultPanicHandler,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start starts the worker goroutine.
func (e *DisplayExecutor) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrExecutorClosed
	}
	if e.running.Load() {
		return ErrAlreadyRunning
	}

	e.queue = make(chan DisplayTask, e.queueSize)
	e.done = make(chan struct{})
	e.running.Store(true)

	e.wg.Add(1)
	go e.worker()

	return nil
}

// Stop stops the executor, discarding queued tasks. It waits for an
// in-flight task to finish or for the context to expire.
func (e *DisplayExecutor) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running.Load() {
		e.mu.Unlock()
		return ErrNotRunning
	}
	e.running.Store(false)
	e.closed.Store(true)
	close(e.done)
	e.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Schedule enqueues a display task. The enqueue is non-blocking; a saturated
// queue returns ErrQueueFull and the task never runs.
func (e *DisplayExecutor) Schedule(task DisplayTask) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}
	if !e.running.Load() {
		return ErrNotRunning
	}

	select {
	case e.queue <- task:
		e.scheduled.Add(1)
		return nil
	case <-e.done:
		return ErrExecutorClosed
	default:
		e.dropped.Add(1)
		return ErrQueueFull
	}
}

// worker processes tasks from the queue one at a time.
func (e *DisplayExecutor) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			e.drainQueue()
			return
		case task := <-e.queue:
			e.run(task)
		}
	}
}

// run executes a single task with panic recovery.
func (e *DisplayExecutor) run(task DisplayTask) {
	defer func() {
		if r := recover(); r != nil {
			e.panicked.Add(1)
			stack := debug.Stack()
			func() {
				defer func() { _ = recover() }()
				e.panicHandler(r, stack)
			}()
		}
	}()

	e.executed.Add(1)
	task()
}

// drainQueue discards queued tasks after Stop.
func (e *DisplayExecutor) drainQueue() {
	for {
		select {
		case <-e.queue:
		default:
			return
		}
	}
}

// QueueDepth returns the current number of tasks in the queue.
// Returns 0 if the executor is not running.
func (e *DisplayExecutor) QueueDepth() int {
	if !e.running.Load() {
		return 0
	}
	return len(e.queue)
}

// IsRunning returns true if the executor is running.
func (e *DisplayExecutor) IsRunning() bool {
	return e.running.Load()
}

// Stats returns executor statistics.
func (e *DisplayExecutor) Stats() DisplayStats {
	return DisplayStats{
		Scheduled:  e.scheduled.Load(),
		Executed:   e.executed.Load(),
		Dropped:    e.dropped.Load(),
		Panicked:   e.panicked.Load(),
		QueueDepth: e.QueueDepth(),
	}
}

// DisplayStats contains statistics for a display executor.
type DisplayStats struct {
	// Scheduled is the total number of tasks accepted into the queue.
	Scheduled uint64

	// Executed is the number of tasks that ran.
	Executed uint64

	// Dropped is the number of tasks refused because the queue was full.
	Dropped uint64

	// Panicked is the number of tasks that panicked.
	Panicked uint64

	// QueueDepth is the current number of tasks waiting in the queue.
	QueueDepth int
}
