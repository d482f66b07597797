package tree

import (
	"context"

	"github.com/coroview/coroview/internal/dispatch"
	"github.com/coroview/coroview/internal/session"
	"github.com/coroview/coroview/internal/snapshot"
)

// DefaultGroupName is the single top-level group's name.
const DefaultGroupName = "coroutines"

// Sink is the display-toolkit boundary the builder commits into. All calls
// arrive on the display executor.
type Sink interface {
	// SetRoot installs a new root. The root's static children (the default
	// group, or the empty placeholder) are already attached.
	SetRoot(root *Node)

	// AddChildren announces freshly committed children of a node.
	AddChildren(parent *Node, children []*Node)

	// RestoreExpansion marks a node expanded on behalf of carried-over
	// view state.
	RestoreExpansion(node *Node)

	// RestoreSelection moves the selection to a node on behalf of
	// carried-over view state.
	RestoreSelection(node *Node)
}

// Builder constructs the display tree for exactly one stop.
//
// A Builder is created when a stop is displayed and discarded with it;
// node state never outlives the stop that produced it. All exported
// methods must run on the display executor. Protocol reads happen inside
// channel-executor tasks, which hand their results back to the display
// executor for commit.
type Builder struct {
	stop    *session.Stop
	cache   *snapshot.Cache
	channel *dispatch.ChannelExecutor
	display *dispatch.DisplayExecutor
	sink    Sink
	log     session.Logger

	root  *Node
	group *Node
	index map[string]*Node

	restoreExpand map[string]bool
	restoreSelect string
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithRestoreState hands the builder the previous period's view state for
// progressive reapply.
func WithRestoreState(st State) BuilderOption {
	return func(b *Builder) {
		b.restoreExpand = st.expandedSet()
		b.restoreSelect = st.Selected
	}
}

// WithBuilderLogger sets the builder logger.
func WithBuilderLogger(l session.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// NewBuilder creates a builder for one stop. The root and its default
// group exist immediately; everything below is computed lazily.
func NewBuilder(stop *session.Stop, cache *snapshot.Cache, channel *dispatch.ChannelExecutor, display *dispatch.DisplayExecutor, sink Sink, opts ...BuilderOption) *Builder {
	b := &Builder{
		stop:    stop,
		cache:   cache,
		channel: channel,
		display: display,
		sink:    sink,
		log:     session.NopLogger,
		index:   make(map[string]*Node),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.root = newRootNode()
	b.group = newGroupNode(DefaultGroupName)
	b.group.parent = b.root
	b.root.children = []*Node{b.group}
	b.index[b.root.Key] = b.root
	b.index[b.group.Key] = b.group

	return b
}

// Root returns the builder's root node.
func (b *Builder) Root() *Node { return b.root }

// Stop returns the stop this builder displays.
func (b *Builder) Stop() *session.Stop { return b.stop }

// NodeByKey resolves a structural key against the nodes committed so far.
func (b *Builder) NodeByKey(key string) (*Node, bool) {
	n, ok := b.index[key]
	return n, ok
}

// Populate installs the root into the sink and starts the initial
// expansion of the default group. Must run on the display executor.
func (b *Builder) Populate() {
	b.sink.SetRoot(b.root)
	b.sink.RestoreExpansion(b.group)
	delete(b.restoreExpand, b.group.Key)
	if b.restoreSelect == b.group.Key {
		b.restoreSelect = ""
		b.sink.RestoreSelection(b.group)
	}
	b.RequestChildren(b.group)
}

// RequestChildren computes a node's children if they have not been
// computed for this stop. Repeat requests while a computation is pending
// coalesce into it; requests after completion return immediately, so each
// node queries the protocol at most once per stop. Must run on the display
// executor.
func (b *Builder) RequestChildren(n *Node) {
	if n == nil || !n.Expandable() || n.load != LoadIdle {
		return
	}

	switch n.Kind {
	case KindGroup:
		n.load = LoadPending
		b.scheduleGroupChildren(n)
	case KindCoroutine:
		n.load = LoadPending
		b.scheduleCoroutineChildren(n)
	case KindCreationGroup:
		// Creation frames were fetched with the parent coroutine; this
		// step is pure and commits synchronously.
		n.load = LoadPending
		children := make([]*Node, 0, len(n.creationFrames))
		for _, f := range n.creationFrames {
			children = append(children, newFrameNode(n, n.OwnerID, f))
		}
		b.commit(n, children)
	}
}

// scheduleGroupChildren fetches the dump on the channel executor and turns
// it into coroutine nodes.
func (b *Builder) scheduleGroupChildren(n *Node) {
	err := b.channel.Schedule(b.stop, func(ctx context.Context) {
		coros, derr := b.cache.Dump(ctx)
		b.scheduleCommit(n, func() []*Node {
			if derr != nil {
				return []*Node{newErrorNode(n, derr.Error())}
			}
			if len(coros) == 0 {
				return []*Node{newEmptyNode()}
			}
			children := make([]*Node, 0, len(coros))
			for _, c := range coros {
				children = append(children, newCoroutineNode(n, c))
			}
			return children
		})
	})
	if err != nil {
		b.log.Debug("group expand not scheduled, key=%s err=%v", n.Key, err)
		n.load = LoadIdle
	}
}

// scheduleCoroutineChildren fetches one coroutine's frames on the channel
// executor and turns them into frame leaves plus the trailing creation
// subgroup.
func (b *Builder) scheduleCoroutineChildren(n *Node) {
	coroID := n.OwnerID
	err := b.channel.Schedule(b.stop, func(ctx context.Context) {
		frames, ferr := b.cache.Frames(ctx, coroID)
		b.scheduleCommit(n, func() []*Node {
			if ferr != nil {
				return []*Node{newErrorNode(n, ferr.Error())}
			}
			execution, creation := snapshot.Partition(frames)
			children := make([]*Node, 0, len(execution)+1)
			for _, f := range execution {
				children = append(children, newFrameNode(n, coroID, f))
			}
			// The creation subgroup is emitted even when childless.
			children = append(children, newCreationGroupNode(n, coroID, creation))
			return children
		})
	})
	if err != nil {
		b.log.Debug("coroutine expand not scheduled, key=%s err=%v", n.Key, err)
		n.load = LoadIdle
	}
}

// scheduleCommit hands a completed computation back to the display
// executor. The commit re-checks the stop so a completion that raced a
// resume mutates nothing.
func (b *Builder) scheduleCommit(n *Node, build func() []*Node) {
	err := b.display.Schedule(func() {
		if !b.stop.Valid() {
			b.log.Debug("commit discarded for stale stop, key=%s stop=%s", n.Key, b.stop.ID())
			return
		}
		b.commit(n, build())
	})
	if err != nil {
		b.log.Warn("commit not scheduled, key=%s err=%v", n.Key, err)
	}
}

// commit attaches children, indexes them, announces them to the sink, and
// reapplies any carried-over view state they satisfy. Runs on the display
// executor.
func (b *Builder) commit(n *Node, children []*Node) {
	for _, child := range children {
		child.parent = n
		b.index[child.Key] = child
	}
	n.children = children
	n.load = LoadDone
	b.sink.AddChildren(n, children)
	b.reapply(children)
}

// reapply restores expansion and selection for freshly committed nodes
// whose keys appear in the carried-over state. Keys that never resolve are
// simply never consumed.
func (b *Builder) reapply(children []*Node) {
	for _, child := range children {
		if b.restoreExpand[child.Key] {
			delete(b.restoreExpand, child.Key)
			b.sink.RestoreExpansion(child)
			b.RequestChildren(child)
		}
		if b.restoreSelect != "" && child.Key == b.restoreSelect {
			b.restoreSelect = ""
			b.sink.RestoreSelection(child)
		}
	}
}
