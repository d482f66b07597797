package focus

import (
	"context"

	"github.com/coroview/coroview/internal/dispatch"
	"github.com/coroview/coroview/internal/session"
	"github.com/coroview/coroview/internal/snapshot"
	"github.com/coroview/coroview/internal/tree"
	"github.com/coroview/coroview/internal/wire"
)

// Session is the session slice the coordinator drives. It mirrors the
// session.Session surface so tests can substitute a fake.
type Session interface {
	// ResolveThread resolves the OS thread owning an execution frame.
	// Must be called from a channel-executor task.
	ResolveThread(ctx context.Context, coroutineID int64, frameIndex int) (*wire.Thread, error)

	// FocusedThread returns the thread the session focus rests on.
	FocusedThread() int64

	// CommitFocus records a new focus target, refusing stops that are no
	// longer current.
	CommitFocus(stop *session.Stop, threadID int64, frame snapshot.Frame) bool
}

// Presenter receives the committed stack view. Called on the display
// executor.
type Presenter interface {
	ShowStack(view ExecutionStackView)
}

// Coordinator resolves frame activations into focus switches.
//
// All exported methods must run on the display executor; the in-flight
// bookkeeping relies on its serialization.
type Coordinator struct {
	session   Session
	channel   *dispatch.ChannelExecutor
	display   *dispatch.DisplayExecutor
	presenter Presenter
	log       session.Logger

	inflight map[string]bool // node keys with an unresolved activation
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger sets the coordinator logger.
func WithCoordinatorLogger(log session.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}

// NewCoordinator creates a coordinator over the given executors.
func NewCoordinator(sess Session, channel *dispatch.ChannelExecutor, display *dispatch.DisplayExecutor, presenter Presenter, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		session:   sess,
		channel:   channel,
		display:   display,
		presenter: presenter,
		log:       session.NopLogger,
		inflight:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Activate handles the operator activating a node. Only execution frame
// leaves switch focus; everything else is ignored here. Must run on the
// display executor.
func (c *Coordinator) Activate(stop *session.Stop, n *tree.Node) {
	if stop == nil || n == nil || n.Kind != tree.KindFrame {
		return
	}
	if n.Frame.Kind == snapshot.FrameCreation {
		// Historical call, no live thread to focus.
		c.log.Debug("creation frame activation ignored, key=%s", n.Key)
		return
	}
	if c.inflight[n.Key] {
		c.log.Debug("activation coalesced, key=%s", n.Key)
		return
	}

	frames, top := executionStack(n)
	key := n.Key
	coroID := n.OwnerID
	frame := n.Frame

	c.inflight[key] = true
	err := c.channel.Schedule(stop, func(ctx context.Context) {
		th, rerr := c.session.ResolveThread(ctx, coroID, frame.Index)
		c.scheduleCommit(stop, key, coroID, frames, top, frame, th, rerr)
	})
	if err != nil {
		delete(c.inflight, key)
		c.log.Debug("activation not scheduled, key=%s err=%v", key, err)
	}
}

// scheduleCommit hands the resolution result back to the display
// executor. Runs on the channel executor.
func (c *Coordinator) scheduleCommit(stop *session.Stop, key string, coroID int64, frames []snapshot.Frame, top int, frame snapshot.Frame, th *wire.Thread, rerr error) {
	err := c.display.Schedule(func() {
		delete(c.inflight, key)
		if rerr != nil {
			// Resolution failure degrades to a logged no-op; the view
			// stays interactive.
			c.log.Warn("thread resolution failed, key=%s err=%v", key, rerr)
			return
		}
		if !stop.Valid() {
			return
		}

		view := ExecutionStackView{
			ThreadID:         th.ID,
			CoroutineID:      coroID,
			Frames:           frames,
			TopIndex:         top,
			IsCurrentContext: th.ID == c.session.FocusedThread(),
		}
		if !c.session.CommitFocus(stop, th.ID, frame) {
			return
		}
		c.log.Info("focus switched, thread=%d coroutine=%d frame=%d", th.ID, coroID, frame.Index)
		c.presenter.ShowStack(view)
	})
	if err != nil {
		c.log.Warn("focus commit not scheduled, key=%s err=%v", key, err)
	}
}

// executionStack collects the activated frame's sibling execution frames
// and its position among them.
func executionStack(n *tree.Node) ([]snapshot.Frame, int) {
	parent := n.Parent()
	if parent == nil {
		return []snapshot.Frame{n.Frame}, 0
	}
	frames := make([]snapshot.Frame, 0, len(parent.Children()))
	top := 0
	for _, sib := range parent.Children() {
		if sib.Kind != tree.KindFrame || sib.Frame.Kind != snapshot.FrameExecution {
			continue
		}
		if sib == n {
			top = len(frames)
		}
		frames = append(frames, sib.Frame)
	}
	return frames, top
}
