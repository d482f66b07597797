package wire

// Coroutine is one entry of the coroutine dump as reported by the debug
// server. Frames may be absent from the dump; they are fetched separately
// per coroutine.
type Coroutine struct {
	ID    int64  `json:"id"`
	Name  string `json:"name,omitempty"`
	State string `json:"state"`
}

// Frame is one stack frame of a coroutine. Creation marks frames recorded
// when the coroutine was created; they are historical and carry no live
// thread reference.
type Frame struct {
	Index    int    `json:"index"`
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	PC       uint64 `json:"pc,omitempty"`
	ThreadID int64  `json:"threadId,omitempty"`
	Creation bool   `json:"creation,omitempty"`
}

// Thread describes an OS thread of the debuggee.
type Thread struct {
	ID        int64  `json:"id"`
	Name      string `json:"name,omitempty"`
	Status    string `json:"status,omitempty"`
	CurrentPC uint64 `json:"currentPc,omitempty"`
	IsCurrent bool   `json:"isCurrent,omitempty"`
}

// FramesParams are the parameters for Debugger.CoroutineFrames.
type FramesParams struct {
	CoroutineID int64 `json:"coroutineId"`
}

// ResolveThreadParams are the parameters for Debugger.ResolveThread.
type ResolveThreadParams struct {
	CoroutineID int64 `json:"coroutineId"`
	FrameIndex  int   `json:"frameIndex"`
}

// CommandParams are the parameters for Debugger.Command.
type CommandParams struct {
	Name string `json:"name"`
}

// Execution command names accepted by Debugger.Command.
const (
	CommandContinue = "continue"
	CommandNext     = "next"
	CommandStep     = "step"
	CommandHalt     = "halt"
)

// dumpResult is the response body of Debugger.DumpCoroutines.
type dumpResult struct {
	Coroutines []Coroutine `json:"coroutines"`
}

// framesResult is the response body of Debugger.CoroutineFrames.
type framesResult struct {
	Frames []Frame `json:"frames"`
}

// resolveResult is the response body of Debugger.ResolveThread.
type resolveResult struct {
	Thread *Thread `json:"thread"`
}

// EventKind identifies a debug-session notification.
type EventKind int

const (
	// EventStopped is emitted when the debuggee suspends.
	EventStopped EventKind = iota

	// EventContinued is emitted when the debuggee resumes.
	EventContinued

	// EventExited is emitted when the debuggee terminates or detaches.
	EventExited
)

// String returns a human-readable event kind name.
func (k EventKind) String() string {
	switch k {
	case EventStopped:
		return "stopped"
	case EventContinued:
		return "continued"
	case EventExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Event is a debug-session notification from the server, delivered in
// arrival order.
type Event struct {
	Kind EventKind

	// ThreadID is the thread that caused a stop. Zero when the server did
	// not report one.
	ThreadID int64

	// Reason is the server's stop reason ("breakpoint", "step", ...).
	Reason string

	// ExitCode is set for EventExited.
	ExitCode int
}
