package session

import (
	"context"
	"crypto/rand"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// Stop represents one suspension of the debuggee.
//
// A Stop is valid from the moment the stopped notification arrives until
// the debuggee resumes, exits, or the session shuts down. Invalidation is
// one-way and cancels the Stop's context, which unwinds any protocol call
// still blocked on it. Stop satisfies dispatch.Pause.
type Stop struct {
	id       string
	seq      uint64
	threadID int64
	reason   string

	valid  atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
}

// NewStop mints a valid stop with a fresh ULID identity.
func NewStop(seq uint64, threadID int64, reason string) *Stop {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Stop{
		id:       newStopID(),
		seq:      seq,
		threadID: threadID,
		reason:   reason,
		ctx:      ctx,
		cancel:   cancel,
	}
	s.valid.Store(true)
	return s
}

// newStopID generates a ULID for log correlation.
func newStopID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// ID returns the stop's ULID.
func (s *Stop) ID() string { return s.id }

// Seq returns the stop's per-session sequence number.
func (s *Stop) Seq() uint64 { return s.seq }

// ThreadID returns the thread that caused the stop, zero if unreported.
func (s *Stop) ThreadID() int64 { return s.threadID }

// Reason returns the server's stop reason.
func (s *Stop) Reason() string { return s.reason }

// Valid reports whether the debuggee is still suspended at this stop.
func (s *Stop) Valid() bool { return s.valid.Load() }

// Context returns the stop-scoped context, cancelled on invalidation.
func (s *Stop) Context() context.Context { return s.ctx }

// Done is closed when the stop is invalidated.
func (s *Stop) Done() <-chan struct{} { return s.ctx.Done() }

// Invalidate marks the stop dead and cancels its context. Idempotent.
func (s *Stop) Invalidate() {
	if s.valid.Swap(false) {
		s.cancel()
	}
}
