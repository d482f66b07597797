package tree

import "testing"

func TestState_IsZero(t *testing.T) {
	if !(State{}).IsZero() {
		t.Error("empty state should be zero")
	}
	if (State{Expanded: []string{"group/coroutines"}}).IsZero() {
		t.Error("state with expansion should not be zero")
	}
	if (State{Selected: "group/coroutines"}).IsZero() {
		t.Error("state with selection should not be zero")
	}
}

func TestState_ExpandedSet(t *testing.T) {
	st := State{Expanded: []string{"group/coroutines", "group/coroutines/coro/1", "group/coroutines"}}
	set := st.expandedSet()
	if len(set) != 2 {
		t.Fatalf("expandedSet() has %d entries, want 2", len(set))
	}
	if !set["group/coroutines"] || !set["group/coroutines/coro/1"] {
		t.Errorf("expandedSet() missing expected keys: %v", set)
	}
}

func TestState_ExpandedSetEmpty(t *testing.T) {
	var st State
	if set := st.expandedSet(); len(set) != 0 {
		t.Errorf("expandedSet() of zero state has %d entries, want 0", len(set))
	}
}
