package ui

import (
	"fmt"
	"sort"

	"github.com/coroview/coroview/internal/focus"
	"github.com/coroview/coroview/internal/snapshot"
	"github.com/coroview/coroview/internal/tree"
)

// TreeWidget renders the coroutine tree and handles navigation.
//
// The widget is the display half of the pipeline: the view lifecycle and
// tree builder commit into it, the focus coordinator presents stacks
// through it, and the application forwards key events to it. Every method
// must run on the display executor; the widget holds no locks of its own.
type TreeWidget struct {
	backend Backend
	theme   Theme

	root     *tree.Node
	expanded map[string]bool
	selected string
	scroll   int

	status string
	stack  *focus.ExecutionStackView

	formatter  func(*tree.Node) (string, bool)
	onExpand   func(*tree.Node)
	onActivate func(*tree.Node)

	rows []widgetRow
}

type widgetRow struct {
	node  *tree.Node
	depth int
}

// WidgetOption configures a TreeWidget.
type WidgetOption func(*TreeWidget)

// WithTheme sets the widget theme.
func WithTheme(theme Theme) WidgetOption {
	return func(w *TreeWidget) {
		w.theme = theme
	}
}

// NewTreeWidget creates a widget over the given backend.
func NewTreeWidget(backend Backend, opts ...WidgetOption) *TreeWidget {
	w := &TreeWidget{
		backend:  backend,
		theme:    DefaultTheme(),
		expanded: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnExpand registers the callback fired when a collapsed node with
// uncomputed children is opened.
func (w *TreeWidget) OnExpand(fn func(*tree.Node)) { w.onExpand = fn }

// OnActivate registers the callback fired when a leaf is activated.
func (w *TreeWidget) OnActivate(fn func(*tree.Node)) { w.onActivate = fn }

// SetFormatter installs a label override. Returning false falls back to
// the node's own label.
func (w *TreeWidget) SetFormatter(fn func(*tree.Node) (string, bool)) { w.formatter = fn }

// SetRoot installs a new root and resets navigation.
func (w *TreeWidget) SetRoot(root *tree.Node) {
	w.root = root
	w.expanded = make(map[string]bool)
	w.selected = ""
	w.scroll = 0
	w.stack = nil
	w.Render()
}

// AddChildren redraws after a child commit. The nodes themselves are
// reachable through the parent, so only the redraw is needed here.
func (w *TreeWidget) AddChildren(parent *tree.Node, children []*tree.Node) {
	w.Render()
}

// RestoreExpansion marks a node expanded without user input.
func (w *TreeWidget) RestoreExpansion(n *tree.Node) {
	if n == nil {
		return
	}
	w.expanded[n.Key] = true
	w.Render()
}

// RestoreSelection moves the selection without user input.
func (w *TreeWidget) RestoreSelection(n *tree.Node) {
	if n == nil {
		return
	}
	w.selected = n.Key
	w.Render()
}

// CaptureState reports the expansion set and selection for carry-over
// into the next pause.
func (w *TreeWidget) CaptureState() tree.State {
	keys := make([]string, 0, len(w.expanded))
	for key, on := range w.expanded {
		if on {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return tree.State{Expanded: keys, Selected: w.selected}
}

// Clear removes all pause content.
func (w *TreeWidget) Clear() {
	w.root = nil
	w.expanded = make(map[string]bool)
	w.selected = ""
	w.scroll = 0
	w.stack = nil
	w.rows = nil
	w.Render()
}

// SetStatus replaces the status line text.
func (w *TreeWidget) SetStatus(status string) {
	w.status = status
	w.Render()
}

// ShowStack presents a committed execution stack in the footer.
func (w *TreeWidget) ShowStack(view focus.ExecutionStackView) {
	w.stack = &view
	w.Render()
}

// SelectedNode returns the node under the selection.
func (w *TreeWidget) SelectedNode() (*tree.Node, bool) {
	for _, row := range w.rows {
		if row.node.Key == w.selected {
			return row.node, true
		}
	}
	return nil, false
}

// HandleEvent processes one navigation event. Returns true when the
// event was consumed.
func (w *TreeWidget) HandleEvent(ev Event) bool {
	if ev.Type == EventResize {
		w.Render()
		return true
	}
	if ev.Type != EventKey {
		return false
	}

	switch {
	case ev.Key == KeyUp || isRune(ev, 'k'):
		w.moveSelection(-1)
	case ev.Key == KeyDown || isRune(ev, 'j'):
		w.moveSelection(1)
	case ev.Key == KeyPageUp:
		w.moveSelection(-w.pageSize())
	case ev.Key == KeyPageDown:
		w.moveSelection(w.pageSize())
	case ev.Key == KeyHome || isRune(ev, 'g'):
		w.selectIndex(0)
	case ev.Key == KeyEnd || isRune(ev, 'G'):
		w.selectIndex(len(w.rows) - 1)
	case ev.Key == KeyRight || isRune(ev, 'l'):
		w.expandSelected()
	case ev.Key == KeyLeft:
		w.collapseSelected()
	case isRune(ev, ' '):
		w.toggleSelected()
	case ev.Key == KeyEnter:
		w.activateSelected()
	default:
		return false
	}
	return true
}

func isRune(ev Event, r rune) bool {
	return ev.Key == KeyRune && ev.Rune == r
}

// moveSelection shifts the selection by delta rows.
func (w *TreeWidget) moveSelection(delta int) {
	if len(w.rows) == 0 {
		return
	}
	w.selectIndex(w.selectedIndex() + delta)
}

// selectIndex clamps and applies a row selection.
func (w *TreeWidget) selectIndex(i int) {
	if len(w.rows) == 0 {
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(w.rows) {
		i = len(w.rows) - 1
	}
	w.selected = w.rows[i].node.Key
	w.Render()
}

func (w *TreeWidget) selectedIndex() int {
	for i, row := range w.rows {
		if row.node.Key == w.selected {
			return i
		}
	}
	return 0
}

// expandSelected opens the selected node, requesting children on first
// open, or descends into an already-open one.
func (w *TreeWidget) expandSelected() {
	n, ok := w.SelectedNode()
	if !ok || !n.Expandable() {
		return
	}
	if w.expanded[n.Key] {
		if len(n.Children()) > 0 {
			w.moveSelection(1)
		}
		return
	}
	w.open(n)
	w.Render()
}

// collapseSelected closes the selected node, or climbs to its parent if
// it is already closed.
func (w *TreeWidget) collapseSelected() {
	n, ok := w.SelectedNode()
	if !ok {
		return
	}
	if n.Expandable() && w.expanded[n.Key] {
		delete(w.expanded, n.Key)
		w.Render()
		return
	}
	if parent := n.Parent(); parent != nil && parent.Kind != tree.KindRoot {
		w.selected = parent.Key
		w.Render()
	}
}

// toggleSelected flips the selected node's expansion.
func (w *TreeWidget) toggleSelected() {
	n, ok := w.SelectedNode()
	if !ok || !n.Expandable() {
		return
	}
	if w.expanded[n.Key] {
		delete(w.expanded, n.Key)
	} else {
		w.open(n)
	}
	w.Render()
}

// activateSelected toggles containers and hands leaves to the activation
// callback.
func (w *TreeWidget) activateSelected() {
	n, ok := w.SelectedNode()
	if !ok {
		return
	}
	if n.Expandable() {
		w.toggleSelected()
		return
	}
	if w.onActivate != nil {
		w.onActivate(n)
	}
}

// open marks a node expanded and requests children if they were never
// computed for this pause.
func (w *TreeWidget) open(n *tree.Node) {
	w.expanded[n.Key] = true
	if n.Load() == tree.LoadIdle && w.onExpand != nil {
		w.onExpand(n)
	}
}

// Render redraws the whole panel.
func (w *TreeWidget) Render() {
	w.backend.Clear()
	width, height := w.backend.Size()
	if width <= 0 || height <= 0 {
		return
	}

	w.rows = w.flatten()
	w.ensureSelection()

	viewH := height - 1
	if w.stack != nil && height > 2 {
		viewH--
	}
	if viewH < 0 {
		viewH = 0
	}
	w.clampScroll(viewH)

	for i := 0; i < viewH && i+w.scroll < len(w.rows); i++ {
		w.drawRow(i, w.rows[i+w.scroll], width)
	}
	if w.stack != nil && height > 2 {
		w.drawLine(height-2, w.stackLine(), w.theme.Stack, width)
	}
	w.drawLine(height-1, w.status, w.theme.Status, width)
	w.backend.Show()
}

// flatten walks the expanded tree into visible rows. The root itself is
// not shown.
func (w *TreeWidget) flatten() []widgetRow {
	var rows []widgetRow
	if w.root == nil {
		return rows
	}
	var walk func(n *tree.Node, depth int)
	walk = func(n *tree.Node, depth int) {
		for _, child := range n.Children() {
			rows = append(rows, widgetRow{node: child, depth: depth})
			if w.expanded[child.Key] {
				walk(child, depth+1)
			}
		}
	}
	walk(w.root, 0)
	return rows
}

// ensureSelection keeps the selection on a visible row.
func (w *TreeWidget) ensureSelection() {
	if len(w.rows) == 0 {
		w.selected = ""
		return
	}
	for _, row := range w.rows {
		if row.node.Key == w.selected {
			return
		}
	}
	w.selected = w.rows[0].node.Key
}

// clampScroll keeps the selected row inside the viewport.
func (w *TreeWidget) clampScroll(viewH int) {
	if viewH <= 0 {
		w.scroll = 0
		return
	}
	sel := w.selectedIndex()
	if sel < w.scroll {
		w.scroll = sel
	}
	if sel >= w.scroll+viewH {
		w.scroll = sel - viewH + 1
	}
	if max := len(w.rows) - viewH; w.scroll > max {
		w.scroll = max
	}
	if w.scroll < 0 {
		w.scroll = 0
	}
}

func (w *TreeWidget) pageSize() int {
	_, height := w.backend.Size()
	if height > 2 {
		return height - 2
	}
	return 1
}

// drawRow renders one tree row: indent, expander marker, label.
func (w *TreeWidget) drawRow(y int, row widgetRow, width int) {
	style := w.styleFor(row.node)
	if row.node.Key == w.selected {
		style = w.theme.Selected
	}

	x := row.depth * 2
	marker := ' '
	if row.node.Expandable() {
		if w.expanded[row.node.Key] {
			marker = '-'
		} else {
			marker = '+'
		}
	}
	if x < width {
		w.backend.SetCell(x, y, marker, style)
	}
	x += 2

	label := w.label(row.node)
	if row.node.Load() == tree.LoadPending {
		label += " ..."
	}
	for _, r := range label {
		if x >= width {
			break
		}
		w.backend.SetCell(x, y, r, style)
		x++
	}
}

// drawLine renders a full-width footer line.
func (w *TreeWidget) drawLine(y int, text string, style Style, width int) {
	x := 0
	for _, r := range text {
		if x >= width {
			break
		}
		w.backend.SetCell(x, y, r, style)
		x++
	}
	for ; x < width; x++ {
		w.backend.SetCell(x, y, ' ', style)
	}
}

func (w *TreeWidget) label(n *tree.Node) string {
	if w.formatter != nil {
		if s, ok := w.formatter(n); ok {
			return s
		}
	}
	return n.Label()
}

// stackLine formats the committed focus for the footer.
func (w *TreeWidget) stackLine() string {
	v := w.stack
	top := v.Top()
	line := fmt.Sprintf("thread %d coroutine %d %s", v.ThreadID, v.CoroutineID, top.Location)
	if v.IsCurrentContext {
		line += " [current]"
	}
	return line
}

// styleFor picks the theme style for a node.
func (w *TreeWidget) styleFor(n *tree.Node) Style {
	switch n.Kind {
	case tree.KindGroup:
		return w.theme.Group
	case tree.KindCoroutine:
		switch n.Coroutine.State {
		case snapshot.StateRunning:
			return w.theme.Running
		case snapshot.StateSuspended:
			return w.theme.Suspended
		case snapshot.StateCreated:
			return w.theme.Created
		case snapshot.StateCompleted:
			return w.theme.Completed
		default:
			return w.theme.Base
		}
	case tree.KindFrame:
		if n.Frame.Kind == snapshot.FrameCreation {
			return w.theme.Creation
		}
		return w.theme.Base
	case tree.KindCreationGroup:
		return w.theme.Creation
	case tree.KindError:
		return w.theme.Error
	case tree.KindEmpty:
		return w.theme.Empty
	default:
		return w.theme.Base
	}
}
