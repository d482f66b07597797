// Package focus turns frame activation into a debugger focus switch.
//
// Activating an execution frame resolves the owning OS thread on the
// channel executor, then commits the new focus and presents the derived
// stack view on the display executor. Creation frames have no live
// thread binding; activating one never switches focus.
//
// At most one activation per node is in flight at a time. Activating a
// node again while its resolution runs joins the earlier request instead
// of issuing a second one.
package focus
