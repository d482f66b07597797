package tree

// State is the carried-over view state of one populated period: which
// structural keys were expanded and which one was selected. It is captured
// before a period is torn down and progressively reapplied while the next
// period's nodes appear. Keys that no longer resolve are dropped silently.
type State struct {
	Expanded []string
	Selected string
}

// IsZero reports whether the state carries nothing to restore.
func (s State) IsZero() bool {
	return len(s.Expanded) == 0 && s.Selected == ""
}

// expandedSet converts the expansion list into a lookup set.
func (s State) expandedSet() map[string]bool {
	if len(s.Expanded) == 0 {
		return nil
	}
	set := make(map[string]bool, len(s.Expanded))
	for _, key := range s.Expanded {
		set[key] = true
	}
	return set
}
