// Package main is the entry point for the coroview coroutine inspector.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coroview/coroview/internal/app"
	"github.com/coroview/coroview/internal/ui"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	// Ensure cleanup on all exit paths
	defer application.Shutdown()

	term, err := ui.NewTerminal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create terminal: %v\n", err)
		return 1
	}
	if err := application.SetBackend(term); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to set backend: %v\n", err)
		return 1
	}

	// Handle signals for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signals
		application.Shutdown()
	}()

	if err := application.Run(); err != nil {
		// ErrQuit is the operator pressing q, not a failure
		if errors.Is(err, app.ErrQuit) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

func parseFlags() app.Options {
	var opts app.Options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.AttachAddr, "attach", "", "Debug server address (host:port)")
	flag.StringVar(&opts.AttachAddr, "a", "", "Debug server address (shorthand)")
	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.LogFile, "log-file", "", "Append logs to this file")
	flag.DurationVar(&opts.ClearDelay, "debounce", 0, "Resume clear delay (e.g. 250ms)")
	flag.StringVar(&opts.HooksPath, "hooks", "", "Lua script with label formatting hooks")
	flag.BoolVar(&opts.Monochrome, "monochrome", false, "Disable colors")
	flag.BoolVar(&opts.Monochrome, "m", false, "Disable colors (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Coroview - coroutine inspector for suspended debuggees\n\n")
		fmt.Fprintf(os.Stderr, "Usage: coroview -attach host:port [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  coroview -attach localhost:4711              Attach to a debug server\n")
		fmt.Fprintf(os.Stderr, "  coroview -a localhost:4711 -m                Attach without colors\n")
		fmt.Fprintf(os.Stderr, "  coroview -a localhost:4711 -hooks fmt.lua    Attach with label hooks\n")
		fmt.Fprintf(os.Stderr, "\nKeys:\n")
		fmt.Fprintf(os.Stderr, "  arrows/jk move   l expand   enter focus frame\n")
		fmt.Fprintf(os.Stderr, "  c continue   n next   s step   h halt   q quit\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Coroview %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	// Validate log level
	switch opts.LogLevel {
	case "", "debug", "info", "warn", "error":
		// Valid
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
		os.Exit(1)
	}

	if opts.ClearDelay < 0 {
		fmt.Fprintf(os.Stderr, "Error: negative debounce %v\n", opts.ClearDelay)
		os.Exit(1)
	}

	// A bare address argument works too
	if opts.AttachAddr == "" && flag.NArg() > 0 {
		opts.AttachAddr = flag.Arg(0)
	}

	if opts.AttachAddr == "" {
		fmt.Fprintf(os.Stderr, "Error: no debug server address, use -attach host:port\n")
		os.Exit(1)
	}

	return opts
}
