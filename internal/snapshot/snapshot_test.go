package snapshot

import (
	"testing"

	"github.com/coroview/coroview/internal/wire"
)

func TestParseState(t *testing.T) {
	tests := []struct {
		in   string
		want State
	}{
		{"created", StateCreated},
		{"new", StateCreated},
		{"RUNNING", StateRunning},
		{"active", StateRunning},
		{"suspended", StateSuspended},
		{"waiting", StateSuspended},
		{"parked", StateSuspended},
		{"completed", StateCompleted},
		{"dead", StateCompleted},
		{" suspended ", StateSuspended},
		{"zombie", StateUnknown},
		{"", StateUnknown},
	}

	for _, tt := range tests {
		if got := ParseState(tt.in); got != tt.want {
			t.Errorf("ParseState(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateCreated, "created"},
		{StateRunning, "running"},
		{StateSuspended, "suspended"},
		{StateCompleted, "completed"},
		{StateUnknown, "unknown"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestFramesFromWire_TagsKinds(t *testing.T) {
	frames := FramesFromWire([]wire.Frame{
		{Function: "main.fetch", File: "main.go", Line: 20, ThreadID: 3},
		{Function: "main.run", File: "main.go", Line: 12, ThreadID: 3},
		{Function: "main.spawn", File: "main.go", Line: 4, Creation: true},
	})

	if len(frames) != 3 {
		t.Fatalf("len(frames) = %d, want 3", len(frames))
	}
	if frames[0].Kind != FrameExecution || frames[1].Kind != FrameExecution {
		t.Error("live frames should be tagged FrameExecution")
	}
	if frames[2].Kind != FrameCreation {
		t.Error("creation frames should be tagged FrameCreation")
	}
	for i, f := range frames {
		if f.Index != i {
			t.Errorf("frames[%d].Index = %d, want %d", i, f.Index, i)
		}
	}
	if frames[0].ThreadID != 3 {
		t.Errorf("frames[0].ThreadID = %d, want 3", frames[0].ThreadID)
	}
}

func TestPartition_OrderPreserved(t *testing.T) {
	// Creation frames interleaved with execution frames; the partition must
	// keep each side in its original relative order.
	in := []Frame{
		{Kind: FrameExecution, Index: 0, Location: Location{Function: "e0"}},
		{Kind: FrameCreation, Index: 1, Location: Location{Function: "c0"}},
		{Kind: FrameExecution, Index: 2, Location: Location{Function: "e1"}},
		{Kind: FrameCreation, Index: 3, Location: Location{Function: "c1"}},
		{Kind: FrameCreation, Index: 4, Location: Location{Function: "c2"}},
	}

	execution, creation := Partition(in)

	if len(execution) != 2 || len(creation) != 3 {
		t.Fatalf("partition sizes = %d/%d, want 2/3", len(execution), len(creation))
	}
	if execution[0].Location.Function != "e0" || execution[1].Location.Function != "e1" {
		t.Errorf("execution order = %v, want e0,e1", execution)
	}
	for i, want := range []string{"c0", "c1", "c2"} {
		if creation[i].Location.Function != want {
			t.Errorf("creation[%d] = %q, want %q", i, creation[i].Location.Function, want)
		}
	}
}

func TestPartition_Empty(t *testing.T) {
	execution, creation := Partition(nil)
	if len(execution) != 0 || len(creation) != 0 {
		t.Errorf("Partition(nil) = %v/%v, want empty/empty", execution, creation)
	}
}

func TestCoroutine_DisplayName(t *testing.T) {
	named := Coroutine{ID: 7, Name: "request-handler"}
	if got := named.DisplayName(); got != "request-handler" {
		t.Errorf("DisplayName() = %q, want %q", got, "request-handler")
	}

	unnamed := Coroutine{ID: 7}
	if got := unnamed.DisplayName(); got != "coroutine#7" {
		t.Errorf("DisplayName() = %q, want %q", got, "coroutine#7")
	}
}

func TestFromWire(t *testing.T) {
	c := FromWire(wire.Coroutine{ID: 12, Name: "pool-3", State: "waiting"})
	if c.ID != 12 || c.Name != "pool-3" || c.State != StateSuspended {
		t.Errorf("FromWire = %+v, want id=12 name=pool-3 state=suspended", c)
	}
}

func TestLocation_String(t *testing.T) {
	tests := []struct {
		loc  Location
		want string
	}{
		{Location{Function: "main.run", File: "main.go", Line: 12}, "main.run (main.go:12)"},
		{Location{File: "main.go", Line: 12}, "main.go:12"},
		{Location{Function: "main.run"}, "main.run"},
	}
	for _, tt := range tests {
		if got := tt.loc.String(); got != tt.want {
			t.Errorf("Location.String() = %q, want %q", got, tt.want)
		}
	}
}
