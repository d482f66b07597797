package dispatch

import "errors"

// Sentinel errors for the dispatch package.
var (
	// ErrStaleContext is returned when scheduling work against a pause that
	// has already been invalidated by a resume.
	ErrStaleContext = errors.New("pause context is stale")

	// ErrExecutorClosed is returned when scheduling on a stopped executor.
	ErrExecutorClosed = errors.New("executor is closed")

	// ErrNotRunning is returned when scheduling on an executor that has not
	// been started.
	ErrNotRunning = errors.New("executor is not running")

	// ErrAlreadyRunning is returned when Start is called on a running
	// executor.
	ErrAlreadyRunning = errors.New("executor is already running")

	// ErrQueueFull is returned when an executor queue is full and cannot
	// accept more tasks.
	ErrQueueFull = errors.New("task queue is full")
)
