package hooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/coroview/coroview/internal/session"
	"github.com/coroview/coroview/internal/snapshot"
	"github.com/coroview/coroview/internal/tree"
)

// Hook function names a script may define.
const (
	FuncFormatCoroutine = "format_coroutine"
	FuncFormatFrame     = "format_frame"
)

// DefaultCallTimeout bounds one hook call. Hooks run on the render path, so
// the budget is deliberately tight.
const DefaultCallTimeout = 50 * time.Millisecond

// Engine owns the Lua state the formatting hooks run in.
//
// gopher-lua's LState is not goroutine-safe. The mutex serializes every
// call; Lua execution itself is single-threaded.
type Engine struct {
	mu sync.Mutex
	L  *lua.LState

	log         session.Logger
	callTimeout time.Duration

	// hooks records which hook functions the loaded script defines. An
	// entry flips to false when the hook exhausts its call budget.
	hooks map[string]bool

	// warned tracks hooks whose failure has already been logged.
	warned map[string]bool

	closed bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(log session.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithCallTimeout sets the wall-clock budget for one hook call. Zero
// disables the budget.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.callTimeout = d
	}
}

// New creates an engine with a sandboxed Lua state and no script loaded.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:         session.NopLogger,
		callTimeout: DefaultCallTimeout,
		hooks:       make(map[string]bool),
		warned:      make(map[string]bool),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.L = lua.NewState(lua.Options{
		SkipOpenLibs: true, // opened selectively below
	})
	openSafeLibraries(e.L)

	return e
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	// Base library (type, pairs, ipairs, tostring, etc.) plus the pure
	// data libraries. io, os, debug and package stay closed.
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Script loading stays with LoadFile.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// LoadFile executes the hooks script and records which hook functions it
// defined. Calling it on an engine that already loaded a script replaces
// the hooks the new script redefines.
func (e *Engine) LoadFile(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}

	err := e.doWithRecovery(func() error {
		return e.L.DoFile(path)
	})
	if err != nil {
		return fmt.Errorf("load hooks script %s: %w", path, err)
	}

	for _, name := range []string{FuncFormatCoroutine, FuncFormatFrame} {
		if e.L.GetGlobal(name).Type() == lua.LTFunction {
			e.hooks[name] = true
		}
	}
	return nil
}

// doWithRecovery executes a function with panic recovery.
func (e *Engine) doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// FormatCoroutine asks the script for a coroutine label. The second return
// is false when no override applies.
func (e *Engine) FormatCoroutine(c snapshot.Coroutine) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || !e.hooks[FuncFormatCoroutine] {
		return "", false
	}

	tbl := e.L.NewTable()
	tbl.RawSetString("id", lua.LNumber(c.ID))
	tbl.RawSetString("name", lua.LString(c.Name))
	tbl.RawSetString("state", lua.LString(c.State.String()))

	return e.callHook(FuncFormatCoroutine, tbl)
}

// FormatFrame asks the script for a frame label. The second return is false
// when no override applies.
func (e *Engine) FormatFrame(f snapshot.Frame) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || !e.hooks[FuncFormatFrame] {
		return "", false
	}

	tbl := e.L.NewTable()
	tbl.RawSetString("index", lua.LNumber(f.Index))
	tbl.RawSetString("kind", lua.LString(f.Kind.String()))
	tbl.RawSetString("func", lua.LString(f.Location.Function))
	tbl.RawSetString("file", lua.LString(f.Location.File))
	tbl.RawSetString("line", lua.LNumber(f.Location.Line))

	return e.callHook(FuncFormatFrame, tbl)
}

// Formatter returns the label override function to install on the widget,
// or nil when the loaded script defines no hooks. Nil keeps the widget on
// its zero-cost default path.
func (e *Engine) Formatter() func(*tree.Node) (string, bool) {
	if e == nil {
		return nil
	}

	e.mu.Lock()
	hasAny := e.hooks[FuncFormatCoroutine] || e.hooks[FuncFormatFrame]
	e.mu.Unlock()
	if !hasAny {
		return nil
	}

	return func(n *tree.Node) (string, bool) {
		switch n.Kind {
		case tree.KindCoroutine:
			return e.FormatCoroutine(n.Coroutine)
		case tree.KindFrame:
			return e.FormatFrame(n.Frame)
		default:
			return "", false
		}
	}
}

// callHook invokes one hook function with arg. The caller holds e.mu.
func (e *Engine) callHook(name string, arg lua.LValue) (string, bool) {
	var budget context.Context
	if e.callTimeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), e.callTimeout)
		defer cancel()
		e.L.SetContext(ctx)
		defer e.L.RemoveContext()
		budget = ctx
	}

	stackTop := e.L.GetTop()
	e.L.Push(e.L.GetGlobal(name))
	e.L.Push(arg)

	// Call with panic recovery
	var callErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				callErr = fmt.Errorf("lua panic: %v", r)
			}
		}()
		callErr = e.L.PCall(1, 1, nil)
	}()

	if callErr != nil {
		if budget != nil && budget.Err() != nil {
			// A script that exhausts the budget once will exhaust it on
			// every call, and each call stalls a render.
			e.hooks[name] = false
		}
		e.warnOnce(name, callErr)
		return "", false
	}

	ret := e.L.Get(-1)
	if n := e.L.GetTop() - stackTop; n > 0 {
		e.L.Pop(n)
	}

	if s, ok := ret.(lua.LString); ok {
		return string(s), true
	}
	return "", false
}

// warnOnce logs a hook failure the first time it happens.
func (e *Engine) warnOnce(name string, err error) {
	if e.warned[name] {
		return
	}
	e.warned[name] = true
	e.log.Warn("hook %s failed, using default label: %v", name, err)
}

// IsClosed returns true if the engine has been closed.
func (e *Engine) IsClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Close releases the Lua state. After Close every format call declines and
// LoadFile returns ErrEngineClosed. Double close is a no-op.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.L.Close()
	e.closed = true
	return nil
}
