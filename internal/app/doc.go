// Package app assembles the inspector and runs its main loop.
//
// Bootstrap happens in dependency order: configuration, logger, the two
// executors, the wire client, the session, and finally the optional Lua
// hooks. Display components are built in Run once a terminal backend is
// set, because the widget cannot exist without one.
//
// The main loop multiplexes two channels. Terminal input arrives from a
// polling goroutine; session events arrive from the session's subscriber
// channel. Execution commands and quit are decided on the loop goroutine,
// navigation is forwarded to the widget on the display executor, and
// stop-scoped protocol requests go through the channel executor. Halt is
// the one exception: it is issued while no stop exists and no other
// protocol call can be in flight. The loop itself never blocks on either
// executor.
package app
