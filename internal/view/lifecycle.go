package view

import (
	"time"

	"github.com/coroview/coroview/internal/dispatch"
	"github.com/coroview/coroview/internal/session"
	"github.com/coroview/coroview/internal/snapshot"
	"github.com/coroview/coroview/internal/tree"
)

// DefaultClearDelay is the quiet period between a resume and the display
// actually emptying.
const DefaultClearDelay = 200 * time.Millisecond

// Phase names the lifecycle's display condition.
type Phase int

const (
	// PhaseEmpty means no pause content is on screen.
	PhaseEmpty Phase = iota

	// PhasePopulated means the current stop's tree is on screen.
	PhasePopulated

	// PhaseClearPending means the debuggee resumed and the previous tree
	// is still visible while the clear window runs.
	PhaseClearPending
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhasePopulated:
		return "populated"
	case PhaseClearPending:
		return "clear-pending"
	default:
		return "unknown"
	}
}

// Display is the widget surface the lifecycle drives. Beyond the tree
// sink it can report carry-over state and empty itself. All calls arrive
// on the display executor.
type Display interface {
	tree.Sink

	// CaptureState reports the current expansion set and selection.
	CaptureState() tree.State

	// Clear removes all pause content.
	Clear()
}

// Lifecycle turns session events into display periods. One period spans
// one stop: its cache, its builder, and its tree all begin at the stop
// and end when the next event replaces or clears them. Expansion and
// selection carry across periods: captured when a period ends, reapplied
// as the next period's nodes appear.
type Lifecycle struct {
	source     snapshot.Source
	channel    *dispatch.ChannelExecutor
	display    *dispatch.DisplayExecutor
	view       Display
	log        session.Logger
	clearDelay time.Duration
	debounce   *Debouncer

	// Display-executor-affine from here down.
	phase   Phase
	builder *tree.Builder
	epoch   uint64

	// carried is the last captured expansion and selection. It outlives
	// the clear window, so a stop that lands on an empty panel still
	// restores the previous period's shape.
	carried tree.State
}

// LifecycleOption configures a Lifecycle.
type LifecycleOption func(*Lifecycle)

// WithClearDelay overrides the resume clear window.
func WithClearDelay(d time.Duration) LifecycleOption {
	return func(l *Lifecycle) {
		if d > 0 {
			l.clearDelay = d
		}
	}
}

// WithLifecycleLogger sets the lifecycle logger.
func WithLifecycleLogger(log session.Logger) LifecycleOption {
	return func(l *Lifecycle) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLifecycle creates a lifecycle over the given executors and display.
func NewLifecycle(source snapshot.Source, channel *dispatch.ChannelExecutor, display *dispatch.DisplayExecutor, view Display, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		source:     source,
		channel:    channel,
		display:    display,
		view:       view,
		log:        session.NopLogger,
		clearDelay: DefaultClearDelay,
		phase:      PhaseEmpty,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.debounce = NewDebouncer(l.clearDelay)
	return l
}

// HandleEvent reacts to one session event. Safe to call from the event
// pump goroutine; the work hops onto the display executor.
func (l *Lifecycle) HandleEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventStopped:
		l.handleStopped(ev.Stop)
	case session.EventResumed:
		l.handleResumed()
	case session.EventExited, session.EventDisconnected:
		l.handleGone()
	}
}

// handleStopped begins a new display period for the stop.
func (l *Lifecycle) handleStopped(stop *session.Stop) {
	if stop == nil {
		return
	}
	// Cancel before the hop so a clear window cannot elapse while the
	// populate task waits in the queue.
	l.debounce.Cancel()

	err := l.display.Schedule(func() {
		l.epoch++
		if !stop.Valid() {
			// Superseded before it reached the screen. The event that
			// invalidated it is right behind in the queue.
			l.log.Debug("stop %s stale before display, skipping", stop.ID())
			return
		}

		// A still-visible tree is fresher than the resume-time capture.
		if l.phase != PhaseEmpty {
			l.carried = l.view.CaptureState()
		}

		l.builder = tree.NewBuilder(stop, snapshot.NewCache(l.source), l.channel, l.display, l.view,
			tree.WithRestoreState(l.carried), tree.WithBuilderLogger(l.log))
		l.phase = PhasePopulated
		l.log.Debug("display period started, stop=%s seq=%d", stop.ID(), stop.Seq())
		l.builder.Populate()
	})
	if err != nil {
		l.log.Warn("stop display not scheduled: %v", err)
	}
}

// handleResumed opens the clear window over the still-visible tree.
func (l *Lifecycle) handleResumed() {
	err := l.display.Schedule(func() {
		if l.phase != PhasePopulated {
			return
		}
		l.carried = l.view.CaptureState()
		l.phase = PhaseClearPending
		epoch := l.epoch
		l.debounce.Arm(func() { l.scheduleClear(epoch) })
	})
	if err != nil {
		l.log.Warn("resume not scheduled: %v", err)
	}
}

// scheduleClear hops an elapsed clear window back onto the display
// executor. Runs on the debounce timer goroutine.
func (l *Lifecycle) scheduleClear(epoch uint64) {
	err := l.display.Schedule(func() {
		if l.epoch != epoch || l.phase != PhaseClearPending {
			// A newer stop claimed the screen while the timer fired.
			return
		}
		l.view.Clear()
		l.builder = nil
		l.phase = PhaseEmpty
		l.log.Debug("display cleared after resume window")
	})
	if err != nil {
		l.log.Debug("clear not scheduled: %v", err)
	}
}

// handleGone clears immediately on process exit or disconnect.
func (l *Lifecycle) handleGone() {
	l.debounce.Cancel()

	err := l.display.Schedule(func() {
		l.epoch++
		if l.phase == PhaseEmpty {
			return
		}
		l.carried = l.view.CaptureState()
		l.view.Clear()
		l.builder = nil
		l.phase = PhaseEmpty
		l.log.Debug("display cleared, debuggee gone")
	})
	if err != nil {
		l.log.Warn("clear not scheduled: %v", err)
	}
}

// Phase returns the current display phase. Display executor only.
func (l *Lifecycle) Phase() Phase { return l.phase }

// Builder returns the current period's tree builder, or nil when no
// period is active. Display executor only.
func (l *Lifecycle) Builder() *tree.Builder { return l.builder }

// ExpandNode forwards an expansion request to the current period's
// builder. Display executor only.
func (l *Lifecycle) ExpandNode(n *tree.Node) {
	if l.builder != nil {
		l.builder.RequestChildren(n)
	}
}
