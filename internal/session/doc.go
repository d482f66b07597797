// Package session owns the debug-session state: the wire client, the
// current Stop, the focused thread and frame, and a small fanout that
// delivers stop/resume/exit events to subscribers.
//
// # Stops
//
// A Stop is one suspension of the debuggee. Every protocol query in the
// program is scoped to exactly one Stop; when the debuggee resumes, the
// session invalidates the Stop, which cancels its context and turns every
// task still bound to it into a no-op. Stop identity is a ULID plus a
// monotonic per-session sequence number.
//
// # Event pump
//
// The session runs one goroutine that consumes the wire client's event
// stream in arrival order. A stopped notification mints a new Stop and
// invalidates the previous one before publishing, so by the time a
// subscriber observes a new Stop the old one is already dead.
package session
