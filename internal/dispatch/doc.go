// Package dispatch provides the two serialized execution contexts the
// inspector runs on.
//
// # Executors
//
// Two single-worker executors are provided:
//
//   - ChannelExecutor: Serializes all debug-protocol work. The wire
//     conversation with a suspended debuggee is not safe for concurrent use,
//     so every protocol read runs as a task on this executor's one goroutine.
//     Tasks are scoped to a Pause and are rejected or skipped once that pause
//     has been invalidated by a resume.
//
//   - DisplayExecutor: Serializes all display mutation. Tree nodes, widget
//     state, and focus commits are touched only from this executor's one
//     goroutine, so the display side needs no locking of its own.
//
// # Handoff
//
// Work crosses from one context to the other only by scheduling a task on
// the other executor. The usual shape is a channel task that performs a
// protocol query and then schedules a display task to commit the result:
//
//	channel.Schedule(stop, func(ctx context.Context) {
//	    coros, err := cache.Dump(ctx)
//	    display.Schedule(func() {
//	        if !stop.Valid() {
//	            return // resumed while we were fetching
//	        }
//	        commit(coros, err)
//	    })
//	})
//
// # Staleness
//
// Scheduling against an invalidated pause fails fast with ErrStaleContext.
// Tasks whose pause was invalidated while they waited in the queue are
// skipped at dequeue. Tasks already running receive the pause's context,
// which is cancelled on invalidation, so blocking protocol calls unwind
// early. Completions for a dead pause are discarded by the validity check in
// the display task.
//
// # Panic Recovery
//
// Both executors recover from panics in tasks so a misbehaving task cannot
// take down the worker goroutine. Panics are reported via a configurable
// PanicHandler callback.
package dispatch
