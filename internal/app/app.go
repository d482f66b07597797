package app

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coroview/coroview/internal/config"
	"github.com/coroview/coroview/internal/dispatch"
	"github.com/coroview/coroview/internal/focus"
	"github.com/coroview/coroview/internal/hooks"
	"github.com/coroview/coroview/internal/session"
	"github.com/coroview/coroview/internal/ui"
	"github.com/coroview/coroview/internal/view"
	"github.com/coroview/coroview/internal/wire"
)

// shutdownTimeout bounds how long Shutdown waits for each executor to
// finish its in-flight task.
const shutdownTimeout = 2 * time.Second

// Application is the central coordinator for all coroview components.
// It manages component lifecycles, wiring, and the main event loop.
type Application struct {
	mu sync.RWMutex

	// Configuration and logging
	opts      Options
	config    config.Config
	logger    *Logger
	logCloser io.Closer

	// Serialized execution contexts
	channel *dispatch.ChannelExecutor
	display *dispatch.DisplayExecutor

	// Debug session
	client  wire.Client
	session *session.Session

	// Display components, created in Run once a backend exists
	backend     ui.Backend
	widget      *ui.TreeWidget
	lifecycle   *view.Lifecycle
	coordinator *focus.Coordinator

	// Optional Lua formatting hooks
	hooks *hooks.Engine

	metrics *Metrics

	// exitCode is the debuggee's exit status once it terminates. Written
	// and read only on the loop goroutine.
	exitCode int

	// State
	running      atomic.Bool
	done         chan struct{}
	quitOnce     sync.Once
	teardownOnce sync.Once
}

// Options configures the application. Zero values defer to the loaded
// configuration.
type Options struct {
	// AttachAddr is the debug server's TCP address. Required.
	AttachAddr string

	// ConfigPath is the path to the configuration file.
	ConfigPath string

	// LogLevel overrides the configured logging level when non-empty.
	LogLevel string

	// LogFile overrides the configured log file when non-empty.
	LogFile string

	// ClearDelay overrides the configured resume clear window when positive.
	ClearDelay time.Duration

	// HooksPath overrides the configured hooks script when non-empty.
	HooksPath string

	// Monochrome disables colors regardless of configuration.
	Monochrome bool
}

// New creates a new Application with the given options, loads the
// configuration, and connects to the debug server.
func New(opts Options) (*Application, error) {
	if opts.AttachAddr == "" {
		return nil, ErrNoAttachAddr
	}
	return newApplication(opts, nil)
}

// newApplication builds and bootstraps the application. A non-nil client
// skips the dial; tests use that to substitute a scripted debug server.
func newApplication(opts Options, client wire.Client) (*Application, error) {
	app := &Application{
		opts:    opts,
		client:  client,
		done:    make(chan struct{}),
		metrics: NewMetrics(),
	}

	if err := app.bootstrap(); err != nil {
		app.teardown()
		return nil, err
	}

	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	// 1. Configuration: defaults, file, environment, then flag overrides.
	cfg, err := config.Load(app.opts.ConfigPath)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	app.applyOverrides(&cfg)
	app.config = cfg

	// 2. Logger. The terminal belongs to the tree panel, so output goes to
	// the configured file or nowhere.
	out, closer, err := openLogOutput(cfg.Logging.File)
	if err != nil {
		return &InitError{Component: "logger", Err: err}
	}
	app.logCloser = closer
	app.logger = NewLogger(LoggerConfig{
		Level:  ParseLogLevel(cfg.Logging.Level),
		Output: out,
		Prefix: "coroview",
	})
	SetLogger(app.logger)
	app.logger.Info("starting, attach=%s", app.opts.AttachAddr)

	// 3. Executors: the protocol channel and the display loop.
	app.channel = dispatch.NewChannelExecutor(
		dispatch.WithChannelQueueSize(cfg.Executors.ChannelQueue),
		dispatch.WithChannelPanicHandler(app.panicHandler("channel")),
	)
	app.display = dispatch.NewDisplayExecutor(
		dispatch.WithDisplayQueueSize(cfg.Executors.DisplayQueue),
		dispatch.WithDisplayPanicHandler(app.panicHandler("display")),
	)
	if err := app.channel.Start(); err != nil {
		return &InitError{Component: "channel executor", Err: err}
	}
	if err := app.display.Start(); err != nil {
		return &InitError{Component: "display executor", Err: err}
	}

	// 4. Wire client, unless a test injected one.
	if app.client == nil {
		client, err := wire.DialTimeout(app.opts.AttachAddr, app.dialTimeout())
		if err != nil {
			return &InitError{Component: "wire client", Err: err}
		}
		app.client = client
	}

	// 5. Session over the client. The event pump starts in Run, after the
	// display side is subscribed.
	app.session = session.New(app.client,
		session.WithLogger(app.logger.WithComponent("session")))

	// 6. Hooks engine, only when a script is configured. A broken script
	// falls back to default labels rather than failing startup.
	if cfg.Hooks.Path != "" {
		engine := hooks.New(hooks.WithLogger(app.logger.WithComponent("hooks")))
		if err := engine.LoadFile(cfg.Hooks.Path); err != nil {
			app.logger.Warn("hooks disabled: %v", err)
			engine.Close()
		} else {
			app.hooks = engine
		}
	}

	return nil
}

// applyOverrides overlays command-line flags onto the loaded configuration.
func (app *Application) applyOverrides(cfg *config.Config) {
	if app.opts.LogLevel != "" {
		cfg.Logging.Level = app.opts.LogLevel
	}
	if app.opts.LogFile != "" {
		cfg.Logging.File = app.opts.LogFile
	}
	if app.opts.ClearDelay > 0 {
		cfg.Display.ClearDelay = int(app.opts.ClearDelay / time.Millisecond)
	}
	if app.opts.HooksPath != "" {
		cfg.Hooks.Path = app.opts.HooksPath
	}
	if app.opts.Monochrome {
		cfg.Display.Monochrome = true
	}
}

// panicHandler builds an executor panic handler that logs under the given
// component.
func (app *Application) panicHandler(component string) dispatch.PanicHandler {
	return func(panicValue any, stack []byte) {
		app.logger.WithComponent(component).Error("task panic: %v\n%s", panicValue, stack)
	}
}

// SetBackend sets the terminal backend.
// Must be called before Run().
func (app *Application) SetBackend(b ui.Backend) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.running.Load() {
		return ErrAlreadyRunning
	}

	app.backend = b
	return nil
}

// Shutdown initiates graceful shutdown. Safe to call from any goroutine
// and more than once; the first call wins.
func (app *Application) Shutdown() {
	app.quitOnce.Do(func() { close(app.done) })
	app.teardown()
}

// teardown releases components in reverse initialization order. Also used
// to unwind a partially completed bootstrap.
func (app *Application) teardown() {
	app.teardownOnce.Do(func() {
		if app.session != nil {
			if err := app.session.Close(); err != nil {
				app.logger.Debug("session close: %v", err)
			}
		} else if app.client != nil {
			_ = app.client.Close()
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if app.channel != nil && app.channel.IsRunning() {
			if err := app.channel.Stop(ctx); err != nil {
				app.logger.Warn("channel executor stop: %v", err)
			}
		}
		if app.display != nil && app.display.IsRunning() {
			if err := app.display.Stop(ctx); err != nil {
				app.logger.Warn("display executor stop: %v", err)
			}
		}

		if app.hooks != nil {
			_ = app.hooks.Close()
		}

		if app.logger != nil {
			app.logger.Info("shut down")
		}
		if app.logCloser != nil {
			_ = app.logCloser.Close()
		}
	})
}

// IsRunning returns true if the application is running.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Logger returns the application's logger instance.
func (app *Application) Logger() *Logger {
	if app.logger == nil {
		return GetLogger()
	}
	return app.logger
}

// Config returns the effective configuration.
func (app *Application) Config() config.Config {
	return app.config
}

// Session returns the debug session.
func (app *Application) Session() *session.Session {
	return app.session
}

// Channel returns the protocol channel executor.
func (app *Application) Channel() *dispatch.ChannelExecutor {
	return app.channel
}

// Display returns the display executor.
func (app *Application) Display() *dispatch.DisplayExecutor {
	return app.display
}

// Widget returns the tree widget, nil before Run.
func (app *Application) Widget() *ui.TreeWidget {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.widget
}

// Hooks returns the hooks engine (may be nil).
func (app *Application) Hooks() *hooks.Engine {
	return app.hooks
}

// dialTimeout returns the configured dial timeout.
func (app *Application) dialTimeout() time.Duration {
	return time.Duration(app.config.Protocol.DialTimeout) * time.Millisecond
}

// requestTimeout returns the configured execution-command timeout.
func (app *Application) requestTimeout() time.Duration {
	return time.Duration(app.config.Protocol.RequestTimeout) * time.Millisecond
}

// clearDelay returns the configured resume clear window.
func (app *Application) clearDelay() time.Duration {
	return time.Duration(app.config.Display.ClearDelay) * time.Millisecond
}
