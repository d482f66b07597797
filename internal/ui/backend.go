// Package ui renders the coroutine tree in a terminal.
package ui

import "sync"

// EventType identifies a terminal event.
type EventType int

const (
	EventNone EventType = iota
	EventKey
	EventResize
	// EventClosed means the backend is gone and polling must stop.
	EventClosed
)

// Key represents a keyboard key.
type Key int

// Key constants for the keys the inspector consumes.
const (
	KeyNone Key = iota
	KeyRune     // regular character, see the Rune field
	KeyEscape
	KeyEnter
	KeyTab
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyCtrlC
)

// ModMask represents modifier key state.
type ModMask int

const (
	ModNone  ModMask = 0
	ModShift ModMask = 1 << iota
	ModCtrl
	ModAlt
)

// Event represents a terminal event.
type Event struct {
	Type EventType

	// Key event fields.
	Key  Key
	Rune rune
	Mod  ModMask

	// Resize event fields.
	Width, Height int
}

// Color selects a palette color. ColorDefault keeps the terminal's own.
type Color int32

// ColorDefault is the terminal's unstyled color.
const ColorDefault Color = -1

// Style describes how a cell is drawn.
type Style struct {
	Fg, Bg  Color
	Bold    bool
	Dim     bool
	Reverse bool
}

// Backend is the terminal surface the widget draws on. Implementations
// handle actual output; NullBackend records it for tests.
type Backend interface {
	// Init prepares the backend. Must be called before any other method.
	Init() error

	// Fini releases the backend and restores the terminal.
	Fini()

	// Size returns the current dimensions.
	Size() (width, height int)

	// SetCell draws one rune. Out-of-bounds positions are ignored.
	SetCell(x, y int, r rune, style Style)

	// Clear blanks the screen with the default style.
	Clear()

	// Show flushes buffered changes to the display.
	Show()

	// PollEvent blocks until the next event. After Fini it returns an
	// EventClosed event.
	PollEvent() Event

	// PostEvent injects a synthetic event into the queue.
	PostEvent(event Event)

	// Beep produces the terminal bell.
	Beep()
}

// NullBackend is an in-memory backend for tests.
type NullBackend struct {
	mu            sync.Mutex
	width, height int
	runes         [][]rune
	styles        [][]Style
	events        chan Event
	shows         int
}

// NewNullBackend creates a null backend with the given dimensions.
func NewNullBackend(width, height int) *NullBackend {
	return &NullBackend{
		width:  width,
		height: height,
		events: make(chan Event, 64),
	}
}

func (b *NullBackend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
	return nil
}

func (b *NullBackend) reset() {
	b.runes = make([][]rune, b.height)
	b.styles = make([][]Style, b.height)
	for y := range b.runes {
		b.runes[y] = make([]rune, b.width)
		b.styles[y] = make([]Style, b.width)
		for x := range b.runes[y] {
			b.runes[y][x] = ' '
		}
	}
}

func (b *NullBackend) Fini() {
	b.PostEvent(Event{Type: EventClosed})
}

func (b *NullBackend) Size() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

func (b *NullBackend) SetCell(x, y int, r rune, style Style) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return
	}
	b.runes[y][x] = r
	b.styles[y][x] = style
}

func (b *NullBackend) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}

func (b *NullBackend) Show() {
	b.mu.Lock()
	b.shows++
	b.mu.Unlock()
}

func (b *NullBackend) PollEvent() Event {
	return <-b.events
}

func (b *NullBackend) PostEvent(event Event) {
	select {
	case b.events <- event:
	default:
		// Dropped when the queue is full; tests never queue that deep.
	}
}

func (b *NullBackend) Beep() {}

// Row returns the rendered text of one row, right-trimmed.
func (b *NullBackend) Row(y int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if y < 0 || y >= b.height {
		return ""
	}
	end := b.width
	for end > 0 && b.runes[y][end-1] == ' ' {
		end--
	}
	return string(b.runes[y][:end])
}

// StyleAt returns the style of one cell.
func (b *NullBackend) StyleAt(x, y int) Style {
	b.mu.Lock()
	defer b.mu.Unlock()
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return Style{}
	}
	return b.styles[y][x]
}

// ShowCount returns how many times Show has run.
func (b *NullBackend) ShowCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shows
}
