package session

import (
	"context"
	"sync"

	"github.com/coroview/coroview/internal/snapshot"
	"github.com/coroview/coroview/internal/wire"
)

// Logger is the logging surface the session and its consumers use.
// It matches the application logger's printf-style methods.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any) {}
func (nopLogger) Info(msg string, args ...any)  {}
func (nopLogger) Warn(msg string, args ...any)  {}
func (nopLogger) Error(msg string, args ...any) {}

// NopLogger is a Logger that discards all output.
var NopLogger Logger = nopLogger{}

// Status describes the debug session's view of the debuggee.
type Status int

const (
	// StatusDisconnected means no live connection to a debug server.
	StatusDisconnected Status = iota

	// StatusRunning means attached and the debuggee is executing.
	StatusRunning

	// StatusStopped means attached and suspended at the current Stop.
	StatusStopped

	// StatusExited means the debuggee has terminated.
	StatusExited
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	case StatusExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Session owns the wire client and tracks the debug-session state.
//
// One pump goroutine consumes the client's event stream in order and turns
// it into Stops and session events. Focus state is written only from
// display-executor tasks and read anywhere.
type Session struct {
	client wire.Client
	log    Logger

	mu          sync.Mutex
	status      Status
	current     *Stop
	seq         uint64
	focusThread int64
	focusFrame  *snapshot.Frame
	subs        map[chan Event]struct{}

	subDepth  int
	started   bool
	pumpDone  chan struct{}
	closeOnce sync.Once
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSubscriberDepth sets the per-subscriber event buffer size.
func WithSubscriberDepth(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.subDepth = n
		}
	}
}

// New creates a session over an attached client.
func New(client wire.Client, opts ...Option) *Session {
	s := &Session{
		client:   client,
		log:      NopLogger,
		status:   StatusRunning,
		subs:     make(map[chan Event]struct{}),
		subDepth: 64,
		pumpDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the event pump.
func (s *Session) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()
	go s.pump()
}

// pump consumes wire events until the connection is gone.
func (s *Session) pump() {
	defer close(s.pumpDone)
	for {
		select {
		case <-s.client.Done():
			s.handleDisconnect()
			return
		case ev := <-s.client.Events():
			s.handleWireEvent(ev)
		}
	}
}

// handleWireEvent translates one wire event into session state.
func (s *Session) handleWireEvent(ev wire.Event) {
	switch ev.Kind {
	case wire.EventStopped:
		s.handleStopped(ev)
	case wire.EventContinued:
		s.handleContinued()
	case wire.EventExited:
		s.handleExited(ev)
	}
}

// handleStopped mints the new Stop. The previous stop, if any, is
// invalidated before the new one is published.
func (s *Session) handleStopped(ev wire.Event) {
	s.mu.Lock()
	prev := s.current
	s.seq++
	stop := NewStop(s.seq, ev.ThreadID, ev.Reason)
	s.current = stop
	s.status = StatusStopped
	s.focusThread = ev.ThreadID
	s.focusFrame = nil
	s.mu.Unlock()

	if prev != nil {
		prev.Invalidate()
	}
	s.log.Debug("stopped, stop=%s seq=%d thread=%d reason=%s",
		stop.ID(), stop.Seq(), ev.ThreadID, ev.Reason)
	s.publish(Event{Kind: EventStopped, Stop: stop})
}

// handleContinued invalidates the current stop before publishing the
// resume.
func (s *Session) handleContinued() {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.status = StatusRunning
	s.focusFrame = nil
	s.mu.Unlock()

	if prev != nil {
		prev.Invalidate()
		s.log.Debug("resumed, stop=%s", prev.ID())
	}
	s.publish(Event{Kind: EventResumed, Stop: prev})
}

func (s *Session) handleExited(ev wire.Event) {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.status = StatusExited
	s.focusFrame = nil
	s.mu.Unlock()

	if prev != nil {
		prev.Invalidate()
	}
	s.log.Info("debuggee exited, code=%d", ev.ExitCode)
	s.publish(Event{Kind: EventExited, ExitCode: ev.ExitCode})
}

func (s *Session) handleDisconnect() {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	// A session already exited or closed locally does not need the event.
	quiet := s.status == StatusExited || s.status == StatusDisconnected
	s.status = StatusDisconnected
	s.mu.Unlock()

	if prev != nil {
		prev.Invalidate()
	}
	if !quiet {
		s.log.Warn("debug server connection lost")
		s.publish(Event{Kind: EventDisconnected})
	}
}

// Status returns the session status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CurrentStop returns the live Stop, or nil while the debuggee runs.
func (s *Session) CurrentStop() *Stop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// FocusedThread returns the thread the session focus rests on. At each stop
// it is initialized to the stopping thread and updated by CommitFocus.
func (s *Session) FocusedThread() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focusThread
}

// FocusedFrame returns the committed focus frame, if any.
func (s *Session) FocusedFrame() (snapshot.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focusFrame == nil {
		return snapshot.Frame{}, false
	}
	return *s.focusFrame, true
}

// CommitFocus records a new focus target. Called from display-executor
// tasks after the owning thread has been resolved. Commits for a stop that
// is no longer current are dropped.
func (s *Session) CommitFocus(stop *Stop, threadID int64, frame snapshot.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || stop == nil || s.current != stop {
		return false
	}
	s.focusThread = threadID
	f := frame
	s.focusFrame = &f
	return true
}

// Continue resumes the debuggee.
func (s *Session) Continue(ctx context.Context) error {
	return s.client.Command(ctx, wire.CommandContinue)
}

// Next steps over on the focused thread.
func (s *Session) Next(ctx context.Context) error {
	return s.client.Command(ctx, wire.CommandNext)
}

// Step steps into on the focused thread.
func (s *Session) Step(ctx context.Context) error {
	return s.client.Command(ctx, wire.CommandStep)
}

// Halt suspends a running debuggee. Unlike the stop-scoped queries, halt is
// issued while no Stop exists; no other protocol call can be in flight
// then, so it goes to the client directly.
func (s *Session) Halt(ctx context.Context) error {
	return s.client.Command(ctx, wire.CommandHalt)
}

// Source returns the snapshot source view of the client for building
// per-stop caches.
func (s *Session) Source() snapshot.Source {
	return &clientSource{client: s.client}
}

// ResolveThread resolves the owning thread of an execution frame.
func (s *Session) ResolveThread(ctx context.Context, coroutineID int64, frameIndex int) (*wire.Thread, error) {
	return s.client.ResolveThread(ctx, coroutineID, frameIndex)
}

// Close tears down the session and its client.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		prev := s.current
		s.current = nil
		s.status = StatusDisconnected
		started := s.started
		s.mu.Unlock()
		if prev != nil {
			prev.Invalidate()
		}
		err = s.client.Close()
		if started {
			<-s.pumpDone
		}
	})
	return err
}

// clientSource adapts the wire client to the snapshot.Source interface,
// converting wire DTOs into domain types.
type clientSource struct {
	client wire.Client
}

func (cs *clientSource) DumpCoroutines(ctx context.Context) ([]snapshot.Coroutine, error) {
	ws, err := cs.client.DumpCoroutines(ctx)
	if err != nil {
		return nil, err
	}
	coros := make([]snapshot.Coroutine, 0, len(ws))
	for _, w := range ws {
		coros = append(coros, snapshot.FromWire(w))
	}
	return coros, nil
}

func (cs *clientSource) CoroutineFrames(ctx context.Context, coroutineID int64) ([]snapshot.Frame, error) {
	ws, err := cs.client.CoroutineFrames(ctx, coroutineID)
	if err != nil {
		return nil, err
	}
	return snapshot.FramesFromWire(ws), nil
}
