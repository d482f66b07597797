// Package wire implements the debug-server protocol client.
//
// The server speaks JSON-RPC 2.0 over a stream connection, framed with
// Content-Length headers. Requests carry monotonically increasing ids and
// are correlated with responses through a pending map; server notifications
// (debugger.stopped, debugger.continued, debugger.exited) are converted into
// Event values and delivered in arrival order on the Events channel.
//
// The protocol conversation is stateful on the server side, so callers must
// not issue concurrent requests. In this program every request is issued
// from a task on the dispatch.ChannelExecutor, which provides exactly that
// serialization.
//
// Notification payload shapes vary between server implementations. They are
// parsed leniently with gjson rather than bound to a single struct shape.
package wire
