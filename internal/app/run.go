package app

import (
	"context"
	"fmt"

	"github.com/coroview/coroview/internal/focus"
	"github.com/coroview/coroview/internal/session"
	"github.com/coroview/coroview/internal/tree"
	"github.com/coroview/coroview/internal/ui"
	"github.com/coroview/coroview/internal/view"
)

// inputBuffer sizes the input event channel. The main loop drains faster
// than anyone types; the buffer only absorbs bursts like paste.
const inputBuffer = 100

// Run starts the main event loop and blocks until quit, Shutdown, or an
// unrecoverable error. A backend must be set first.
func (app *Application) Run() error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	app.mu.RLock()
	backend := app.backend
	app.mu.RUnlock()
	if backend == nil {
		return ErrNoBackend
	}

	if err := backend.Init(); err != nil {
		return &InitError{Component: "backend", Err: err}
	}
	defer backend.Fini()

	// Display-side pipeline. From here on the widget is mutated only on
	// the display executor.
	theme := ui.DefaultTheme()
	if app.config.Display.Monochrome {
		theme = ui.MonochromeTheme()
	}
	widget := ui.NewTreeWidget(backend, ui.WithTheme(theme))
	if app.hooks != nil {
		widget.SetFormatter(app.hooks.Formatter())
	}

	lifecycle := view.NewLifecycle(app.session.Source(), app.channel, app.display, widget,
		view.WithClearDelay(app.clearDelay()),
		view.WithLifecycleLogger(app.logger.WithComponent("view")))
	coordinator := focus.NewCoordinator(app.session, app.channel, app.display, widget,
		focus.WithCoordinatorLogger(app.logger.WithComponent("focus")))

	// Both callbacks fire from widget.HandleEvent, which runs on the
	// display executor, where ExpandNode and Activate belong.
	widget.OnExpand(lifecycle.ExpandNode)
	widget.OnActivate(func(n *tree.Node) {
		coordinator.Activate(app.session.CurrentStop(), n)
	})

	app.mu.Lock()
	app.widget = widget
	app.lifecycle = lifecycle
	app.coordinator = coordinator
	app.mu.Unlock()

	// Subscribe before Start so the first stop is not missed.
	sessionEvents, unsubscribe := app.session.Subscribe()
	defer unsubscribe()
	app.session.Start()

	app.updateStatus()
	app.logger.Info("running")

	inputEvents := app.startInputPolling()
	return app.loop(inputEvents, sessionEvents)
}

// loop multiplexes terminal input and session events until quit.
func (app *Application) loop(inputEvents <-chan ui.Event, sessionEvents <-chan session.Event) error {
	for {
		select {
		case <-app.done:
			return nil

		case ev, ok := <-inputEvents:
			if !ok {
				return nil
			}
			app.metrics.RecordInput()
			if err := app.handleInput(ev); err != nil {
				return err
			}

		case ev, ok := <-sessionEvents:
			if !ok {
				return nil
			}
			app.metrics.RecordSessionEvent()
			app.handleSessionEvent(ev)
		}
	}
}

// startInputPolling starts a goroutine that polls the backend for input
// events and forwards them to the returned channel.
//
// PollEvent blocks, so the goroutine may not exit until backend.Fini
// unblocks it with an EventClosed event.
func (app *Application) startInputPolling() <-chan ui.Event {
	events := make(chan ui.Event, inputBuffer)

	go func() {
		defer close(events)

		for app.running.Load() {
			ev := app.backend.PollEvent()
			if ev.Type == ui.EventClosed {
				return
			}

			select {
			case events <- ev:
			case <-app.done:
				return
			default:
				// Buffer full. Dropping beats blocking the poller.
				app.metrics.RecordInputDropped()
			}
		}
	}()

	return events
}

// handleInput routes one terminal event. Execution commands and quit are
// decided here; everything else is navigation and goes to the widget.
func (app *Application) handleInput(ev ui.Event) error {
	if ev.Type == ui.EventKey {
		switch {
		case ev.Key == ui.KeyCtrlC, isRune(ev, 'q'):
			return ErrQuit
		case isRune(ev, 'c'):
			app.runCommand("continue", app.session.Continue)
			return nil
		case isRune(ev, 'n'):
			app.runCommand("next", app.session.Next)
			return nil
		case isRune(ev, 's'):
			app.runCommand("step", app.session.Step)
			return nil
		case isRune(ev, 'h'):
			app.halt()
			return nil
		}
	}
	app.forward(ev)
	return nil
}

func isRune(ev ui.Event, r rune) bool {
	return ev.Key == ui.KeyRune && ev.Rune == r
}

// forward hands an event to the widget on the display executor.
func (app *Application) forward(ev ui.Event) {
	app.mu.RLock()
	widget := app.widget
	app.mu.RUnlock()
	if widget == nil {
		return
	}
	if err := app.display.Schedule(func() { widget.HandleEvent(ev) }); err != nil {
		app.logger.Debug("input event dropped: %v", err)
	}
}

// runCommand issues an execution command for the current stop. The call is
// serialized on the channel executor like every other protocol request, but
// it runs under its own timeout rather than the stop context: success
// invalidates the stop, which would cancel the very call that succeeded.
func (app *Application) runCommand(name string, fn func(context.Context) error) {
	stop := app.session.CurrentStop()
	if stop == nil {
		app.logger.Debug("%s ignored, not stopped", name)
		return
	}
	app.metrics.RecordCommand()

	err := app.channel.Schedule(stop, func(context.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), app.requestTimeout())
		defer cancel()
		if err := fn(ctx); err != nil {
			app.logger.Warn("%s failed: %v", name, err)
		}
	})
	if err != nil {
		app.logger.Debug("%s not scheduled: %v", name, err)
	}
}

// halt suspends a running debuggee. No Stop exists while the debuggee
// runs, so there is nothing to schedule against and the request goes out
// directly.
func (app *Application) halt() {
	if app.session.Status() != session.StatusRunning {
		app.logger.Debug("halt ignored, not running")
		return
	}
	app.metrics.RecordCommand()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), app.requestTimeout())
		defer cancel()
		if err := app.session.Halt(ctx); err != nil {
			app.logger.Warn("halt failed: %v", err)
		}
	}()
}

// handleSessionEvent feeds the view lifecycle and refreshes the status
// line. Runs on the loop goroutine.
func (app *Application) handleSessionEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventStopped:
		app.metrics.RecordStop()
	case session.EventExited:
		app.exitCode = ev.ExitCode
	case session.EventDisconnected:
		app.logger.Info("debug server disconnected")
	}

	app.lifecycle.HandleEvent(ev)
	app.updateStatus()
}

// updateStatus pushes the current status line to the widget.
func (app *Application) updateStatus() {
	line := app.statusLine()

	app.mu.RLock()
	widget := app.widget
	app.mu.RUnlock()
	if widget == nil {
		return
	}
	if err := app.display.Schedule(func() { widget.SetStatus(line) }); err != nil {
		app.logger.Debug("status update dropped: %v", err)
	}
}

// statusLine renders the session state and the keys that apply to it.
func (app *Application) statusLine() string {
	switch app.session.Status() {
	case session.StatusStopped:
		where := "stopped"
		if stop := app.session.CurrentStop(); stop != nil {
			where = fmt.Sprintf("stopped (%s) thread %d", stop.Reason(), stop.ThreadID())
		}
		return "coroview | " + where + " | c continue  n next  s step  q quit"
	case session.StatusRunning:
		return "coroview | running | h halt  q quit"
	case session.StatusExited:
		return fmt.Sprintf("coroview | exited (code %d) | q quit", app.exitCode)
	default:
		return "coroview | disconnected | q quit"
	}
}
