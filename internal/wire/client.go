package wire

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// Methods exposed by the debug server.
const (
	MethodDumpCoroutines  = "Debugger.DumpCoroutines"
	MethodCoroutineFrames = "Debugger.CoroutineFrames"
	MethodResolveThread   = "Debugger.ResolveThread"
	MethodCommand         = "Debugger.Command"
	MethodDetach          = "Debugger.Detach"
)

// Notification methods emitted by the debug server.
const (
	NotifyStopped   = "debugger.stopped"
	NotifyContinued = "debugger.continued"
	NotifyExited    = "debugger.exited"
)

// Client is the debug-protocol surface the inspector consumes.
//
// DumpCoroutines, CoroutineFrames, ResolveThread and Command must be issued
// from channel-executor tasks; the conversation is not safe for concurrent
// use. Events and Done may be consumed from any goroutine.
type Client interface {
	// DumpCoroutines returns all coroutines known to the runtime at the
	// current stop.
	DumpCoroutines(ctx context.Context) ([]Coroutine, error)

	// CoroutineFrames returns the full frame list of one coroutine,
	// innermost first, execution frames and creation frames mixed as the
	// runtime reports them.
	CoroutineFrames(ctx context.Context, coroutineID int64) ([]Frame, error)

	// ResolveThread resolves the OS thread owning an execution frame.
	// Returns ErrNoThread when the server cannot resolve one.
	ResolveThread(ctx context.Context, coroutineID int64, frameIndex int) (*Thread, error)

	// Command runs an execution command (CommandContinue and friends).
	Command(ctx context.Context, name string) error

	// Detach asks the server to release the debuggee, then closes the
	// client.
	Detach(ctx context.Context) error

	// Events delivers session notifications in arrival order. The channel
	// is never closed; consumers select on Done as well.
	Events() <-chan Event

	// Done is closed when the connection is gone.
	Done() <-chan struct{}

	// Close tears down the connection.
	Close() error
}

// RPCClient is the Client implementation over a Transport.
type RPCClient struct {
	transport *Transport
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// RPCClientOption configures an RPCClient.
type RPCClientOption func(*RPCClient)

// WithEventBuffer sets the event channel capacity.
func WithEventBuffer(n int) RPCClientOption {
	return func(c *RPCClient) {
		if n > 0 {
			c.events = make(chan Event, n)
		}
	}
}

// Dial connects to a debug server at the given TCP address.
func Dial(ctx context.Context, addr string, opts ...RPCClientOption) (*RPCClient, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &DialError{Addr: addr, Err: err}
	}
	return NewRPCClient(ctx, conn, opts...), nil
}

// DialTimeout is Dial bounded by a timeout.
func DialTimeout(addr string, timeout time.Duration, opts ...RPCClientOption) (*RPCClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return Dial(ctx, addr, opts...)
}

// NewRPCClient creates a client over an established connection and starts
// its read loop.
func NewRPCClient(ctx context.Context, conn io.ReadWriteCloser, opts ...RPCClientOption) *RPCClient {
	c := &RPCClient{
		transport: NewTransport(conn),
		events:    make(chan Event, 16),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.transport.OnNotification(NotifyStopped, c.onStopped)
	c.transport.OnNotification(NotifyContinued, c.onContinued)
	c.transport.OnNotification(NotifyExited, c.onExited)
	c.transport.OnClose(func(err error) {
		c.closeOnce.Do(func() { close(c.done) })
	})
	c.transport.Start(ctx)

	return c
}

// DumpCoroutines implements Client.
func (c *RPCClient) DumpCoroutines(ctx context.Context) ([]Coroutine, error) {
	var res dumpResult
	if err := c.transport.Call(ctx, MethodDumpCoroutines, nil, &res); err != nil {
		return nil, err
	}
	return res.Coroutines, nil
}

// CoroutineFrames implements Client.
func (c *RPCClient) CoroutineFrames(ctx context.Context, coroutineID int64) ([]Frame, error) {
	var res framesResult
	params := FramesParams{CoroutineID: coroutineID}
	if err := c.transport.Call(ctx, MethodCoroutineFrames, params, &res); err != nil {
		return nil, err
	}
	return res.Frames, nil
}

// ResolveThread implements Client.
func (c *RPCClient) ResolveThread(ctx context.Context, coroutineID int64, frameIndex int) (*Thread, error) {
	var res resolveResult
	params := ResolveThreadParams{CoroutineID: coroutineID, FrameIndex: frameIndex}
	if err := c.transport.Call(ctx, MethodResolveThread, params, &res); err != nil {
		return nil, err
	}
	if res.Thread == nil {
		return nil, ErrNoThread
	}
	return res.Thread, nil
}

// Command implements Client.
func (c *RPCClient) Command(ctx context.Context, name string) error {
	return c.transport.Call(ctx, MethodCommand, CommandParams{Name: name}, nil)
}

// Detach implements Client.
func (c *RPCClient) Detach(ctx context.Context) error {
	err := c.transport.Call(ctx, MethodDetach, nil, nil)
	closeErr := c.Close()
	if err != nil {
		return err
	}
	return closeErr
}

// Events implements Client.
func (c *RPCClient) Events() <-chan Event {
	return c.events
}

// Done implements Client.
func (c *RPCClient) Done() <-chan struct{} {
	return c.done
}

// Close implements Client.
func (c *RPCClient) Close() error {
	return c.transport.Close()
}

// emit delivers an event without blocking the read loop. If the consumer
// has fallen far enough behind to fill the buffer the event is dropped.
func (c *RPCClient) emit(ev Event) {
	select {
	case <-c.done:
	case c.events <- ev:
	default:
	}
}

// --- Notification parsing ---
//
// Server implementations disagree on payload field names, so the fields are
// probed leniently instead of bound to one struct shape.

func (c *RPCClient) onStopped(method string, params json.RawMessage) {
	c.emit(Event{
		Kind:     EventStopped,
		ThreadID: probeInt(params, "threadId", "thread.id", "goroutineId"),
		Reason:   probeString(params, "reason", "stopReason"),
	})
}

func (c *RPCClient) onContinued(method string, params json.RawMessage) {
	c.emit(Event{
		Kind:     EventContinued,
		ThreadID: probeInt(params, "threadId", "thread.id"),
	})
}

func (c *RPCClient) onExited(method string, params json.RawMessage) {
	c.emit(Event{
		Kind:     EventExited,
		ExitCode: int(probeInt(params, "exitCode", "code")),
	})
}

// probeInt returns the first of the given paths present in the payload.
func probeInt(params json.RawMessage, paths ...string) int64 {
	for _, p := range paths {
		if v := gjson.GetBytes(params, p); v.Exists() {
			return v.Int()
		}
	}
	return 0
}

// probeString returns the first of the given paths present in the payload.
func probeString(params json.RawMessage, paths ...string) string {
	for _, p := range paths {
		if v := gjson.GetBytes(params, p); v.Exists() {
			return v.String()
		}
	}
	return ""
}
