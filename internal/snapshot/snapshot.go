package snapshot

import (
	"fmt"
	"strings"

	"github.com/coroview/coroview/internal/wire"
)

// State is the lifecycle state of a coroutine at the moment of the dump.
type State int

const (
	// StateUnknown is reported for states this frontend does not recognize.
	StateUnknown State = iota

	// StateCreated marks a coroutine that has not started running.
	StateCreated

	// StateRunning marks a coroutine currently executing on a thread.
	StateRunning

	// StateSuspended marks a coroutine parked at a suspension point.
	StateSuspended

	// StateCompleted marks a coroutine that has finished.
	StateCompleted
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// ParseState maps a server-reported state string onto a State.
// Unrecognized strings map to StateUnknown rather than failing; runtimes
// disagree on vocabulary.
func ParseState(s string) State {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "created", "new":
		return StateCreated
	case "running", "active":
		return StateRunning
	case "suspended", "waiting", "parked":
		return StateSuspended
	case "completed", "done", "dead":
		return StateCompleted
	default:
		return StateUnknown
	}
}

// FrameKind distinguishes live call frames from creation-time history.
type FrameKind int

const (
	// FrameExecution is a currently-live call frame. It carries a
	// back-reference to the thread frame it maps onto and is a valid focus
	// target.
	FrameExecution FrameKind = iota

	// FrameCreation is a historical frame recorded when the coroutine was
	// created. It is display-only and never executable.
	FrameCreation
)

// String returns a human-readable frame kind name.
func (k FrameKind) String() string {
	switch k {
	case FrameExecution:
		return "execution"
	case FrameCreation:
		return "creation"
	default:
		return "unknown"
	}
}

// Location is a source position.
type Location struct {
	Function string
	File     string
	Line     int
	PC       uint64
}

// String formats the location the way the widget renders frame leaves.
func (l Location) String() string {
	if l.Function == "" {
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
	if l.File == "" {
		return l.Function
	}
	return fmt.Sprintf("%s (%s:%d)", l.Function, l.File, l.Line)
}

// Frame is one stack frame of a coroutine, tagged by Kind. Consumers switch
// exhaustively over Kind.
type Frame struct {
	Kind     FrameKind
	Location Location

	// Index is the frame's position in the coroutine's full frame list,
	// innermost first.
	Index int

	// ThreadID is the owning thread for FrameExecution frames. Zero for
	// FrameCreation frames.
	ThreadID int64
}

// Coroutine is the immutable dump entry for one coroutine. Identity is the
// runtime-assigned ID, stable across stops for the lifetime of the
// coroutine.
type Coroutine struct {
	ID    int64
	Name  string
	State State
}

// DisplayName returns the operator-facing label base.
func (c Coroutine) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("coroutine#%d", c.ID)
}

// FromWire converts a wire dump entry into the domain type.
func FromWire(w wire.Coroutine) Coroutine {
	return Coroutine{
		ID:    w.ID,
		Name:  w.Name,
		State: ParseState(w.State),
	}
}

// FramesFromWire converts a wire frame list, tagging each frame's kind and
// recording its position. Order is preserved exactly as reported.
func FramesFromWire(ws []wire.Frame) []Frame {
	frames := make([]Frame, 0, len(ws))
	for i, w := range ws {
		kind := FrameExecution
		if w.Creation {
			kind = FrameCreation
		}
		frames = append(frames, Frame{
			Kind: kind,
			Location: Location{
				Function: w.Function,
				File:     w.File,
				Line:     w.Line,
				PC:       w.PC,
			},
			Index:    i,
			ThreadID: w.ThreadID,
		})
	}
	return frames
}

// Partition splits a frame list into execution frames and creation frames.
// Relative order within each part is preserved; execution frames always
// render before the creation subgroup.
func Partition(frames []Frame) (execution, creation []Frame) {
	execution = make([]Frame, 0, len(frames))
	creation = make([]Frame, 0)
	for _, f := range frames {
		switch f.Kind {
		case FrameCreation:
			creation = append(creation, f)
		default:
			execution = append(execution, f)
		}
	}
	return execution, creation
}
