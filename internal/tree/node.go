package tree

import (
	"fmt"

	"github.com/coroview/coroview/internal/snapshot"
)

// Kind identifies the variant of a display node. Consumers switch
// exhaustively over Kind.
type Kind int

const (
	// KindRoot is the invisible container node.
	KindRoot Kind = iota

	// KindEmpty is the placeholder leaf shown while no stop is displayed.
	KindEmpty

	// KindGroup is a named group of coroutines.
	KindGroup

	// KindCoroutine is one coroutine with its state.
	KindCoroutine

	// KindFrame is a stack-frame leaf, execution or creation per the
	// frame's own kind.
	KindFrame

	// KindCreationGroup is the subgroup holding a coroutine's creation
	// frames. Emitted even when childless.
	KindCreationGroup

	// KindError is a leaf carrying a failed fetch's message.
	KindError
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindEmpty:
		return "empty"
	case KindGroup:
		return "group"
	case KindCoroutine:
		return "coroutine"
	case KindFrame:
		return "frame"
	case KindCreationGroup:
		return "creation-group"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// LoadState tracks a node's child computation. Transitions only happen on
// the display executor.
type LoadState int

const (
	// LoadIdle means children have not been requested.
	LoadIdle LoadState = iota

	// LoadPending means a child computation is scheduled or in flight.
	// Further requests coalesce into it.
	LoadPending

	// LoadDone means children are committed and cached for this stop.
	LoadDone
)

// String returns a human-readable load state name.
func (s LoadState) String() string {
	switch s {
	case LoadIdle:
		return "idle"
	case LoadPending:
		return "pending"
	case LoadDone:
		return "done"
	default:
		return "unknown"
	}
}

// Node is one display node. Kind selects which payload fields are
// meaningful. Nodes are created and mutated only on the display executor;
// everything a channel task needs is copied out before scheduling.
type Node struct {
	Kind Kind

	// Key is the structural identity path used to re-attach expansion and
	// selection across stops.
	Key string

	// Group is the group name for KindGroup.
	Group string

	// Coroutine is the dump entry for KindCoroutine.
	Coroutine snapshot.Coroutine

	// Frame is the frame payload for KindFrame.
	Frame snapshot.Frame

	// OwnerID is the owning coroutine's id for KindFrame and
	// KindCreationGroup.
	OwnerID int64

	// Err is the message for KindError.
	Err string

	// creationFrames carries the already-fetched creation frames of a
	// KindCreationGroup so expanding it needs no protocol query.
	creationFrames []snapshot.Frame

	parent   *Node
	children []*Node
	load     LoadState
}

// --- Constructors ---

func newRootNode() *Node {
	return &Node{Kind: KindRoot, Key: "", load: LoadDone}
}

func newEmptyNode() *Node {
	return &Node{Kind: KindEmpty, Key: "empty", load: LoadDone}
}

func newGroupNode(name string) *Node {
	return &Node{
		Kind:  KindGroup,
		Key:   "group/" + name,
		Group: name,
	}
}

func newCoroutineNode(parent *Node, c snapshot.Coroutine) *Node {
	return &Node{
		Kind:      KindCoroutine,
		Key:       fmt.Sprintf("%s/coro/%d", parent.Key, c.ID),
		Coroutine: c,
		OwnerID:   c.ID,
	}
}

func newFrameNode(parent *Node, ownerID int64, f snapshot.Frame) *Node {
	return &Node{
		Kind:    KindFrame,
		Key:     fmt.Sprintf("%s/frame/%d", parent.Key, f.Index),
		Frame:   f,
		OwnerID: ownerID,
		load:    LoadDone,
	}
}

func newCreationGroupNode(parent *Node, ownerID int64, frames []snapshot.Frame) *Node {
	return &Node{
		Kind:           KindCreationGroup,
		Key:            parent.Key + "/creation",
		OwnerID:        ownerID,
		creationFrames: frames,
	}
}

func newErrorNode(parent *Node, msg string) *Node {
	return &Node{
		Kind: KindError,
		Key:  parent.Key + "/error",
		Err:  msg,
		load: LoadDone,
	}
}

// --- Accessors ---

// Parent returns the node's parent, nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the committed children. Empty until LoadDone.
func (n *Node) Children() []*Node { return n.children }

// Load returns the node's load state.
func (n *Node) Load() LoadState { return n.load }

// Expandable reports whether the node can ever have children.
func (n *Node) Expandable() bool {
	switch n.Kind {
	case KindRoot, KindGroup, KindCoroutine, KindCreationGroup:
		return true
	default:
		return false
	}
}

// Label returns the default operator-facing text for the node. The widget
// may override it through a formatter hook.
func (n *Node) Label() string {
	switch n.Kind {
	case KindRoot:
		return ""
	case KindEmpty:
		return "no coroutine data"
	case KindGroup:
		return n.Group
	case KindCoroutine:
		return fmt.Sprintf("%s [%s]", n.Coroutine.DisplayName(), n.Coroutine.State)
	case KindFrame:
		return n.Frame.Location.String()
	case KindCreationGroup:
		return "creation"
	case KindError:
		return "error: " + n.Err
	default:
		return "?"
	}
}
