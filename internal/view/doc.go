// Package view owns the pause display lifecycle.
//
// A Lifecycle sits between session events and the tree widget. On a stop
// it starts a fresh display period: a new snapshot cache, a new builder,
// and a carried-over copy of the previous period's expansion and
// selection. On a resume it does not clear immediately. The old tree
// stays on screen through a short quiet window, so a step that lands on
// the next line does not flash an empty panel between two stops. A stop
// arriving inside the window cancels the clear and repopulates in place;
// only a window that runs to completion empties the widget. The carried
// state is captured at resume, so it survives the clear: a stop landing
// on an empty panel still restores the shape the operator left behind.
//
// Process exit and disconnect clear immediately. There is no upcoming
// stop to wait for.
//
// All lifecycle state is confined to the display executor. Event
// handlers may be called from any goroutine; they schedule their work
// and return.
package view
