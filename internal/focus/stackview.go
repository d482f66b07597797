package focus

import "github.com/coroview/coroview/internal/snapshot"

// ExecutionStackView is the stack presented after an execution frame
// activation. Frames are the activated coroutine's execution frames,
// innermost first; TopIndex is the activated frame's position in them.
type ExecutionStackView struct {
	ThreadID    int64
	CoroutineID int64
	Frames      []snapshot.Frame
	TopIndex    int

	// IsCurrentContext reports whether the resolved thread was already
	// the session focus when the activation committed.
	IsCurrentContext bool
}

// Top returns the activated frame.
func (v ExecutionStackView) Top() snapshot.Frame {
	if v.TopIndex < 0 || v.TopIndex >= len(v.Frames) {
		return snapshot.Frame{}
	}
	return v.Frames[v.TopIndex]
}
