package tree

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coroview/coroview/internal/dispatch"
	"github.com/coroview/coroview/internal/session"
	"github.com/coroview/coroview/internal/snapshot"
)

// builderSource is a scripted snapshot source for builder tests.
type builderSource struct {
	mu         sync.Mutex
	coros      []snapshot.Coroutine
	frames     map[int64][]snapshot.Frame
	dumpErr    error
	framesErr  error
	dumpCalls  int
	frameCalls map[int64]int
	framesHook func()
}

func (s *builderSource) DumpCoroutines(ctx context.Context) ([]snapshot.Coroutine, error) {
	s.mu.Lock()
	s.dumpCalls++
	coros, err := s.coros, s.dumpErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return coros, nil
}

func (s *builderSource) CoroutineFrames(ctx context.Context, id int64) ([]snapshot.Frame, error) {
	s.mu.Lock()
	if s.frameCalls == nil {
		s.frameCalls = make(map[int64]int)
	}
	s.frameCalls[id]++
	frames, err, hook := s.frames[id], s.framesErr, s.framesHook
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return frames, nil
}

func (s *builderSource) dumpCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dumpCalls
}

func (s *builderSource) frameCount(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameCalls[id]
}

// fakeSink records builder commits.
type fakeSink struct {
	mu       sync.Mutex
	root     *Node
	children map[string][]string
	adds     map[string]int
	expanded []string
	selected []string
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		children: make(map[string][]string),
		adds:     make(map[string]int),
	}
}

func (s *fakeSink) SetRoot(root *Node) {
	s.mu.Lock()
	s.root = root
	s.mu.Unlock()
}

func (s *fakeSink) AddChildren(parent *Node, children []*Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, len(children))
	for i, c := range children {
		keys[i] = c.Key
	}
	s.children[parent.Key] = keys
	s.adds[parent.Key]++
}

func (s *fakeSink) RestoreExpansion(n *Node) {
	s.mu.Lock()
	s.expanded = append(s.expanded, n.Key)
	s.mu.Unlock()
}

func (s *fakeSink) RestoreSelection(n *Node) {
	s.mu.Lock()
	s.selected = append(s.selected, n.Key)
	s.mu.Unlock()
}

func (s *fakeSink) addCount(parent string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adds[parent]
}

func (s *fakeSink) childKeys(parent string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, len(s.children[parent]))
	copy(keys, s.children[parent])
	return keys
}

func (s *fakeSink) expandedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, len(s.expanded))
	copy(keys, s.expanded)
	return keys
}

func (s *fakeSink) selectedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, len(s.selected))
	copy(keys, s.selected)
	return keys
}

// waitChildren blocks until the sink has seen a commit for parent, then
// returns the committed child keys.
func (s *fakeSink) waitChildren(t *testing.T, parent string) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.addCount(parent) > 0 {
			return s.childKeys(parent)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for children of %s", parent)
	return nil
}

type builderFixture struct {
	stop    *session.Stop
	source  *builderSource
	sink    *fakeSink
	channel *dispatch.ChannelExecutor
	display *dispatch.DisplayExecutor
	builder *Builder
}

func newBuilderFixture(t *testing.T, source *builderSource, opts ...BuilderOption) *builderFixture {
	t.Helper()

	channel := dispatch.NewChannelExecutor()
	if err := channel.Start(); err != nil {
		t.Fatalf("start channel executor: %v", err)
	}
	t.Cleanup(func() { channel.Stop(context.Background()) })

	display := dispatch.NewDisplayExecutor()
	if err := display.Start(); err != nil {
		t.Fatalf("start display executor: %v", err)
	}
	t.Cleanup(func() { display.Stop(context.Background()) })

	stop := session.NewStop(1, 1, "breakpoint")
	sink := newFakeSink()
	b := NewBuilder(stop, snapshot.NewCache(source), channel, display, sink, opts...)

	return &builderFixture{
		stop:    stop,
		source:  source,
		sink:    sink,
		channel: channel,
		display: display,
		builder: b,
	}
}

// onDisplay runs fn on the display executor and waits for it.
func (f *builderFixture) onDisplay(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	if err := f.display.Schedule(func() {
		fn()
		close(done)
	}); err != nil {
		t.Fatalf("schedule display task: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for display task")
	}
}

// expand requests children for the node with the given key.
func (f *builderFixture) expand(t *testing.T, key string) {
	t.Helper()
	f.onDisplay(t, func() {
		n, ok := f.builder.NodeByKey(key)
		if !ok {
			t.Errorf("node %s not indexed", key)
			return
		}
		f.builder.RequestChildren(n)
	})
}

func TestBuilder_PopulateExpandsGroup(t *testing.T) {
	source := &builderSource{
		coros: []snapshot.Coroutine{
			{ID: 1, Name: "A", State: snapshot.StateSuspended},
			{ID: 2, Name: "B", State: snapshot.StateRunning},
		},
	}
	fix := newBuilderFixture(t, source)

	fix.onDisplay(t, func() { fix.builder.Populate() })

	got := fix.sink.waitChildren(t, "group/coroutines")
	want := []string{"group/coroutines/coro/1", "group/coroutines/coro/2"}
	if len(got) != len(want) {
		t.Fatalf("group children = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("group child %d = %q, want %q", i, got[i], want[i])
		}
	}

	expanded := fix.sink.expandedKeys()
	if len(expanded) == 0 || expanded[0] != "group/coroutines" {
		t.Errorf("default group not auto-expanded: %v", expanded)
	}
	if source.dumpCount() != 1 {
		t.Errorf("dump queried %d times, want 1", source.dumpCount())
	}
}

func TestBuilder_CoroutineChildrenPartitioned(t *testing.T) {
	source := &builderSource{
		coros: []snapshot.Coroutine{{ID: 1, Name: "A", State: snapshot.StateSuspended}},
		frames: map[int64][]snapshot.Frame{
			1: {
				{Kind: snapshot.FrameExecution, Index: 0, Location: snapshot.Location{Function: "main.work"}},
				{Kind: snapshot.FrameCreation, Index: 1, Location: snapshot.Location{Function: "main.spawn"}},
				{Kind: snapshot.FrameExecution, Index: 2, Location: snapshot.Location{Function: "main.run"}},
			},
		},
	}
	fix := newBuilderFixture(t, source)

	fix.onDisplay(t, func() { fix.builder.Populate() })
	fix.sink.waitChildren(t, "group/coroutines")

	fix.expand(t, "group/coroutines/coro/1")
	got := fix.sink.waitChildren(t, "group/coroutines/coro/1")

	// Execution frames in dump order, then the creation subgroup last.
	want := []string{
		"group/coroutines/coro/1/frame/0",
		"group/coroutines/coro/1/frame/2",
		"group/coroutines/coro/1/creation",
	}
	if len(got) != len(want) {
		t.Fatalf("coroutine children = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("child %d = %q, want %q", i, got[i], want[i])
		}
	}

	fix.expand(t, "group/coroutines/coro/1/creation")
	creation := fix.sink.waitChildren(t, "group/coroutines/coro/1/creation")
	if len(creation) != 1 || creation[0] != "group/coroutines/coro/1/creation/frame/1" {
		t.Errorf("creation children = %v, want single frame/1", creation)
	}

	fix.onDisplay(t, func() {
		n, ok := fix.builder.NodeByKey("group/coroutines/coro/1/creation/frame/1")
		if !ok {
			t.Error("creation frame not indexed")
			return
		}
		if n.Kind != KindFrame {
			t.Errorf("creation frame kind = %v, want %v", n.Kind, KindFrame)
		}
		if n.Frame.Kind != snapshot.FrameCreation {
			t.Errorf("creation frame payload kind = %v, want %v", n.Frame.Kind, snapshot.FrameCreation)
		}
		if n.OwnerID != 1 {
			t.Errorf("creation frame owner = %d, want 1", n.OwnerID)
		}
	})
}

func TestBuilder_CreationGroupPresentWithoutFrames(t *testing.T) {
	source := &builderSource{
		coros:  []snapshot.Coroutine{{ID: 5, Name: "idle", State: snapshot.StateCreated}},
		frames: map[int64][]snapshot.Frame{5: {}},
	}
	fix := newBuilderFixture(t, source)

	fix.onDisplay(t, func() { fix.builder.Populate() })
	fix.sink.waitChildren(t, "group/coroutines")

	fix.expand(t, "group/coroutines/coro/5")
	got := fix.sink.waitChildren(t, "group/coroutines/coro/5")
	if len(got) != 1 || got[0] != "group/coroutines/coro/5/creation" {
		t.Fatalf("coroutine children = %v, want only the creation subgroup", got)
	}

	fix.expand(t, "group/coroutines/coro/5/creation")
	creation := fix.sink.waitChildren(t, "group/coroutines/coro/5/creation")
	if len(creation) != 0 {
		t.Errorf("creation children = %v, want none", creation)
	}
}

func TestBuilder_DumpErrorBecomesErrorLeaf(t *testing.T) {
	source := &builderSource{dumpErr: errors.New("timeout")}
	fix := newBuilderFixture(t, source)

	fix.onDisplay(t, func() { fix.builder.Populate() })

	got := fix.sink.waitChildren(t, "group/coroutines")
	if len(got) != 1 || got[0] != "group/coroutines/error" {
		t.Fatalf("group children = %v, want single error leaf", got)
	}
	fix.onDisplay(t, func() {
		n, ok := fix.builder.NodeByKey("group/coroutines/error")
		if !ok {
			t.Error("error node not indexed")
			return
		}
		if n.Kind != KindError {
			t.Errorf("kind = %v, want %v", n.Kind, KindError)
		}
		if got, want := n.Label(), "error: timeout"; got != want {
			t.Errorf("label = %q, want %q", got, want)
		}
	})
}

func TestBuilder_EmptyDumpShowsPlaceholder(t *testing.T) {
	source := &builderSource{}
	fix := newBuilderFixture(t, source)

	fix.onDisplay(t, func() { fix.builder.Populate() })

	got := fix.sink.waitChildren(t, "group/coroutines")
	if len(got) != 1 || got[0] != "empty" {
		t.Fatalf("group children = %v, want the empty placeholder", got)
	}
}

func TestBuilder_ExpandIsIdempotent(t *testing.T) {
	source := &builderSource{
		coros:  []snapshot.Coroutine{{ID: 1, Name: "A", State: snapshot.StateSuspended}},
		frames: map[int64][]snapshot.Frame{1: {{Kind: snapshot.FrameExecution, Index: 0}}},
	}
	fix := newBuilderFixture(t, source)

	fix.onDisplay(t, func() { fix.builder.Populate() })
	fix.sink.waitChildren(t, "group/coroutines")

	// Two requests before the first commit coalesce into one query.
	fix.onDisplay(t, func() {
		n, _ := fix.builder.NodeByKey("group/coroutines/coro/1")
		fix.builder.RequestChildren(n)
		fix.builder.RequestChildren(n)
	})
	fix.sink.waitChildren(t, "group/coroutines/coro/1")

	// A request after completion is a no-op.
	fix.expand(t, "group/coroutines/coro/1")
	fix.onDisplay(t, func() {}) // drain

	if got := source.frameCount(1); got != 1 {
		t.Errorf("frames queried %d times, want 1", got)
	}
	if got := fix.sink.addCount("group/coroutines/coro/1"); got != 1 {
		t.Errorf("children committed %d times, want 1", got)
	}
}

func TestBuilder_StaleStopDiscardsCommit(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	source := &builderSource{
		coros:  []snapshot.Coroutine{{ID: 1, Name: "A", State: snapshot.StateSuspended}},
		frames: map[int64][]snapshot.Frame{1: {{Kind: snapshot.FrameExecution, Index: 0}}},
		framesHook: func() {
			close(entered)
			<-release
		},
	}
	fix := newBuilderFixture(t, source)

	fix.onDisplay(t, func() { fix.builder.Populate() })
	fix.sink.waitChildren(t, "group/coroutines")
	fix.expand(t, "group/coroutines/coro/1")

	// The query is in flight when the stop goes stale.
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("frames query never started")
	}
	fix.stop.Invalidate()
	close(release)

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		if fix.sink.addCount("group/coroutines/coro/1") != 0 {
			t.Fatal("stale commit reached the sink")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBuilder_ScheduleFailureRevertsLoad(t *testing.T) {
	source := &builderSource{coros: []snapshot.Coroutine{{ID: 1}}}
	fix := newBuilderFixture(t, source)

	fix.stop.Invalidate()
	fix.onDisplay(t, func() {
		fix.builder.RequestChildren(fix.builder.group)
		if got := fix.builder.group.Load(); got != LoadIdle {
			t.Errorf("load state after failed schedule = %v, want %v", got, LoadIdle)
		}
	})

	if got := source.dumpCount(); got != 0 {
		t.Errorf("dump queried %d times for a stale stop, want 0", got)
	}
}

func TestBuilder_RestoresCarriedState(t *testing.T) {
	source := &builderSource{
		coros: []snapshot.Coroutine{
			{ID: 1, Name: "A", State: snapshot.StateSuspended},
			{ID: 2, Name: "B", State: snapshot.StateRunning},
		},
		frames: map[int64][]snapshot.Frame{
			1: {
				{Kind: snapshot.FrameExecution, Index: 0, Location: snapshot.Location{Function: "main.work"}},
				{Kind: snapshot.FrameCreation, Index: 1, Location: snapshot.Location{Function: "main.spawn"}},
			},
		},
	}
	carried := State{
		Expanded: []string{
			"group/coroutines",
			"group/coroutines/coro/1",
			"group/coroutines/coro/1/creation",
			"group/coroutines/coro/99", // gone at this stop
		},
		Selected: "group/coroutines/coro/1/creation/frame/1",
	}
	fix := newBuilderFixture(t, source, WithRestoreState(carried))

	fix.onDisplay(t, func() { fix.builder.Populate() })

	// The carried expansion cascades without further requests.
	fix.sink.waitChildren(t, "group/coroutines")
	fix.sink.waitChildren(t, "group/coroutines/coro/1")
	fix.sink.waitChildren(t, "group/coroutines/coro/1/creation")

	expanded := fix.sink.expandedKeys()
	wantExpanded := map[string]bool{
		"group/coroutines":                 true,
		"group/coroutines/coro/1":          true,
		"group/coroutines/coro/1/creation": true,
	}
	for _, key := range expanded {
		if !wantExpanded[key] {
			t.Errorf("unexpected expansion restored: %s", key)
		}
		delete(wantExpanded, key)
	}
	for key := range wantExpanded {
		t.Errorf("expansion not restored: %s", key)
	}

	selected := fix.sink.selectedKeys()
	if len(selected) != 1 || selected[0] != "group/coroutines/coro/1/creation/frame/1" {
		t.Errorf("selection restored = %v, want the creation frame", selected)
	}
}
