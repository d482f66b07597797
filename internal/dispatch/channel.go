package dispatch

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Pause is the slice of a pause context the executors need for scoping.
// It mirrors the session.Stop surface to avoid a circular import.
type Pause interface {
	// Valid reports whether the debuggee is still suspended at this pause.
	Valid() bool

	// Context returns a context that is cancelled when the pause is
	// invalidated.
	Context() context.Context
}

// ChannelTask is one unit of work against the debug channel. The context it
// receives is the owning pause's context and is cancelled when that pause is
// invalidated, so blocking protocol calls unwind on resume.
type ChannelTask func(ctx context.Context)

// channelCall pairs a task with the pause it is scoped to.
type channelCall struct {
	pause Pause
	task  ChannelTask
}

// PanicHandler is called when a task panics during execution.
// It receives the panic value and the stack trace.
type PanicHandler func(panicValue any, stack []byte)

// defaultPanicHandler is a no-op panic handler.
func defaultPanicHandler(panicValue any, stack []byte) {}

// ChannelExecutor serializes all debug-protocol work through a single
// goroutine.
//
// The wire conversation with a suspended debuggee is NOT safe for concurrent
// use. All protocol reads must occur on a single goroutine. The
// ChannelExecutor provides a channel-based mechanism to marshal protocol
// work from multiple goroutines to one worker goroutine, in FIFO order.
//
// Every task is scoped to a Pause. Scheduling against an invalidated pause
// fails fast with ErrStaleContext and has no side effects. A task whose
// pause is invalidated while it waits in the queue is skipped at dequeue.
//
// Usage:
//
//	exec := dispatch.NewChannelExecutor()
//	exec.Start()
//	defer exec.Stop(ctx)
//
//	// From any goroutine:
//	err := exec.Schedule(stop, func(ctx context.Context) {
//	    coros, err := cache.Dump(ctx)
//	    ...
//	})
type ChannelExecutor struct {
	queueSize    int
	panicHandler PanicHandler

	mu      sync.Mutex // protects queue creation and the running transition
	queue   chan channelCall
	running atomic.Bool
	closed  atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	// Stats
	scheduled atomic.Uint64
	executed  atomic.Uint64
	skipped   atomic.Uint64
	rejected  atomic.Uint64
	dropped   atomic.Uint64
	panicked  atomic.Uint64
}

// ChannelOption configures a ChannelExecutor.
type ChannelOption func(*ChannelExecutor)

// WithChannelQueueSize sets the task queue size.
func WithChannelQueueSize(size int) ChannelOption {
	return func(e *ChannelExecutor) {
		if size > 0 {
			e.queueSize = size
		}
	}
}

// WithChannelPanicHandler sets the panic handler for task execution.
func WithChannelPanicHandler(h PanicHandler) ChannelOption {
	return func(e *ChannelExecutor) {
		if h != nil {
			e.panicHandler = h
		}
	}
}

// NewChannelExecutor creates a new channel executor with the given options.
func NewChannelExecutor(opts ...ChannelOption) *ChannelExecutor {
	e := &ChannelExecutor{
		queueSize:    256,
		panicHandler: defaultPanicHandler,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start starts the worker goroutine.
func (e *ChannelExecutor) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrExecutorClosed
	}
	if e.running.Load() {
		return ErrAlreadyRunning
	}

	e.queue = make(chan channelCall, e.queueSize)
	e.done = make(chan struct{})
	e.running.Store(true)

	e.wg.Add(1)
	go e.worker()

	return nil
}

// Stop stops the executor. Queued tasks are drained without executing and
// counted as skipped. In-flight work is not preempted; Stop waits for it to
// finish or for the context to expire.
func (e *ChannelExecutor) Stop(ctx context.Context) error {
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

// Schedule enqueues a task scoped to the given pause.
//
// Returns ErrStaleContext if the pause is already invalid, ErrQueueFull if
// the queue is at capacity, and ErrExecutorClosed or ErrNotRunning per the
// executor lifecycle. On any error the task is not retained and will never
// run.
func (e *ChannelExecutor) Schedule(p Pause, task ChannelTask) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}
	if !e.running.Load() {
		return ErrNotRunning
	}
	if p == nil || !p.Valid() {
		e.rejected.Add(1)
		return ErrStaleContext
	}

	select {
	case e.queue <- channelCall{pause: p, task: task}:
		e.scheduled.Add(1)
		return nil
	case <-e.done:
		return ErrExecutorClosed
	default:
		e.dropped.Add(1)
		return ErrQueueFull
	}
}

// worker processes calls from the queue one at a time.
func (e *ChannelExecutor) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			e.drainQueue()
			return
		case call := <-e.queue:
			e.run(call)
		}
	}
}

// run executes a single call with a dequeue-time staleness check and panic
// recovery.
func (e *ChannelExecutor) run(call channelCall) {
	// The pause may have been invalidated while the call sat in the queue.
	if !call.pause.Valid() {
		e.skipped.Add(1)
		return
	}

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
	call.task(call.pause.Context())
}

// drainQueue discards queued calls after Stop, counting them as skipped.
func (e *ChannelExecutor) drainQueue() {
	for {
		select {
		case <-e.queue:
			e.skipped.Add(1)
		default:
			return
		}
	}
}

// QueueDepth returns the current number of tasks in the queue.
// Returns 0 if the executor is not running.
func (e *ChannelExecutor) QueueDepth() int {
	if !e.running.Load() {
		return 0
	}
	return len(e.queue)
}

// IsRunning returns true if the executor is running.
func (e *ChannelExecutor) IsRunning() bool {
	return e.running.Load()
}

// Stats returns executor statistics.
func (e *ChannelExecutor) Stats() ChannelStats {
	return ChannelStats{
		Scheduled:  e.scheduled.Load(),
		Executed:   e.executed.Load(),
		Skipped:    e.skipped.Load(),
		Rejected:   e.rejected.Load(),
		Dropped:    e.dropped.Load(),
		Panicked:   e.panicked.Load(),
		QueueDepth: e.QueueDepth(),
	}
}

// ChannelStats contains statistics for a channel executor.
type ChannelStats struct {
	// Scheduled is the total number of tasks accepted into the queue.
	Scheduled uint64

	// Executed is the number of tasks that ran.
	Executed uint64

	// Skipped is the number of tasks dropped at dequeue because their pause
	// was invalidated while they were queued, plus tasks drained at Stop.
	Skipped uint64

	// Rejected is the number of Schedule calls refused with ErrStaleContext.
	Rejected uint64

	// Dropped is the number of tasks refused because the queue was full.
	Dropped uint64

	// Panicked is the number of tasks that panicked.
	Panicked uint64

	// QueueDepth is the current number of tasks waiting in the queue.
	QueueDepth int
}
