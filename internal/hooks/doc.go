// Package hooks runs the operator's optional Lua formatting script.
//
// A single script is loaded at startup. If it defines format_coroutine or
// format_frame, those functions override the default labels of coroutine and
// frame nodes. Each hook receives one small table describing the node and
// overrides the label by returning a string; returning nil, or any other
// value, keeps the default.
//
// The Lua state is not goroutine-safe, so every call is serialized behind a
// mutex and wrapped in panic recovery. Each call runs under a wall-clock
// budget; a hook that exhausts it once is disabled for the rest of the
// session, since it would exhaust it on every render. Hook failures fall
// back to the default label and are logged once per hook. When no script is
// loaded the engine hands out no formatter at all, so the widget never pays
// for the indirection.
package hooks
