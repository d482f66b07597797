package wire

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Transport handles JSON-RPC 2.0 communication with the debug server.
// Messages are framed with Content-Length headers.
type Transport struct {
	reader *bufio.Reader
	conn   io.ReadWriteCloser

	mu       sync.Mutex
	nextID   atomic.Int64
	pending  map[int64]chan *Response
	handlers map[string]NotificationHandler
	onClose  func(err error)

	closed atomic.Bool
	done   chan struct{}
}

// NotificationHandler handles incoming notifications from the server.
//
// Handlers run on the read loop so that notification order is preserved;
// they must not block.
type NotificationHandler func(method string, params json.RawMessage)

// Request represents a JSON-RPC request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Response represents a JSON-RPC response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// notification is used to parse incoming notifications.
type notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NewTransport creates a new transport over the given connection.
func NewTransport(conn io.ReadWriteCloser) *Transport {
	return &Transport{
		reader:   bufio.NewReaderSize(conn, 64*1024),
		conn:     conn,
		pending:  make(map[int64]chan *Response),
		handlers: make(map[string]NotificationHandler),
		done:     make(chan struct{}),
	}
}

// Start begins reading messages from the connection.
func (t *Transport) Start(ctx context.Context) {
	go t.readLoop(ctx)
}

// OnNotification registers a handler for server notifications.
// Must be called before Start.
func (t *Transport) OnNotification(method string, handler NotificationHandler) {
	t.mu.Lock()
	t.handlers[method] = handler
	t.mu.Unlock()
}

// OnClose registers a callback invoked once when the transport shuts down,
// whether by Close or by a connection failure. Must be called before Start.
func (t *Transport) OnClose(fn func(err error)) {
	t.mu.Lock()
	t.onClose = fn
	t.mu.Unlock()
}

// Close closes the transport and releases resources.
// Callers blocked in Call are unblocked with ErrShutdown.
func (t *Transport) Close() error {
	return t.closeWith(nil)
}

func (t *Transport) closeWith(cause error) error {
	if t.closed.Swap(true) {
		return nil // Already closed
	}

	close(t.done)

	// Cancel all pending requests by clearing the map.
	// The channels are not closed to avoid racing handleResponse; waiting
	// callers observe t.done instead.
	t.mu.Lock()
	t.pending = make(map[int64]chan *Response)
	fn := t.onClose
	t.mu.Unlock()

	err := t.conn.Close()

	if fn != nil {
		fn(cause)
	}
	return err
}

// Call sends a request and waits for the matching response.
func (t *Transport) Call(ctx context.Context, method string, params any, result any) error {
	if t.closed.Load() {
		return ErrShutdown
	}

	id := t.nextID.Add(1)
	ch := make(chan *Response, 1)

	t.mu.Lock()
	t.pending[id] = ch
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
	}()

	req := &Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}

	if err := t.send(req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrShutdown
	case resp, ok := <-ch:
		if !ok {
			return ErrShutdown
		}
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}
		return nil
	}
}

// send writes a message with a Content-Length header.
func (t *Transport) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := io.WriteString(t.conn, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := t.conn.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}

	return nil
}

// readLoop reads messages from the connection until it fails or the
// transport is closed.
func (t *Transport) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			t.closeWith(ctx.Err())
			return
		case <-t.done:
			return
		default:
		}

		msg, err := t.readMessage()
		if err != nil {
			if t.closed.Load() {
				return
			}
			if err == io.EOF || err == io.ErrClosedPipe {
				t.closeWith(err)
				return
			}
			// Framing recovered on the next message boundary; skip this one.
			continue
		}

		t.dispatch(msg)
	}
}

// readMessage reads a single framed message.
func (t *Transport) readMessage() (json.RawMessage, error) {
	var contentLength int
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break // End of headers
		}
		if strings.HasPrefix(strings.ToLower(line), "content-length:") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				length, err := strconv.Atoi(strings.TrimSpace(parts[1]))
				if err == nil {
					contentLength = length
				}
			}
		}
		// Other headers are ignored
	}

	if contentLength == 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(t.reader, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}

// dispatch routes a message to the appropriate handler.
func (t *Transport) dispatch(data json.RawMessage) {
	var probe struct {
		ID     *int64          `json:"id"`
		Method string          `json:"method"`
		Error  *RPCError       `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return
	}

	// A message with an id and a result or error is a response.
	if probe.ID != nil && (probe.Result != nil || probe.Error != nil) {
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			return
		}
		t.handleResponse(&resp)
		return
	}

	if probe.Method != "" {
		var notif notification
		if err := json.Unmarshal(data, &notif); err != nil {
			return
		}
		t.handleNotification(&notif)
	}
}

// handleResponse routes a response to its waiting caller.
func (t *Transport) handleResponse(resp *Response) {
	if t.closed.Load() {
		return
	}

	t.mu.Lock()
	ch, ok := t.pending[resp.ID]
	if ok {
		delete(t.pending, resp.ID)
	}
	t.mu.Unlock()

	if ok {
		select {
		case ch <- resp:
		default:
			// Channel full, drop response
		}
	}
}

// handleNotification routes a notification to its handler. The handler runs
// on the read loop so successive notifications keep their arrival order.
func (t *Transport) handleNotification(notif *notification) {
	t.mu.Lock()
	handler, ok := t.handlers[notif.Method]
	if !ok {
		handler, ok = t.handlers["*"]
	}
	t.mu.Unlock()

	if ok && handler != nil {
		handler(notif.Method, notif.Params)
	}
}

// IsClosed returns true if the transport has been closed.
func (t *Transport) IsClosed() bool {
	return t.closed.Load()
}
