package snapshot

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

// countingSource counts queries and serves canned data.
type countingSource struct {
	dumpCalls   atomic.Int32
	framesCalls atomic.Int32

	coros    []Coroutine
	frames   map[int64][]Frame
	dumpErr  error
	frameErr error
}

func (s *countingSource) DumpCoroutines(ctx context.Context) ([]Coroutine, error) {
	s.dumpCalls.Add(1)
	if s.dumpErr != nil {
		return nil, s.dumpErr
	}
	return s.coros, nil
}

func (s *countingSource) CoroutineFrames(ctx context.Context, coroutineID int64) ([]Frame, error) {
	s.framesCalls.Add(1)
	if s.frameErr != nil {
		return nil, s.frameErr
	}
	return s.frames[coroutineID], nil
}

func TestCache_Dump_QueriesOnce(t *testing.T) {
	src := &countingSource{
		coros: []Coroutine{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}},
	}
	c := NewCache(src)

	first, err := c.Dump(context.Background())
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	second, err := c.Dump(context.Background())
	if err != nil {
		t.Fatalf("Dump() second error = %v", err)
	}

	if src.dumpCalls.Load() != 1 {
		t.Errorf("dump queries = %d, want 1", src.dumpCalls.Load())
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("dump sizes = %d/%d, want 2/2", len(first), len(second))
	}
	// The second call must observe the identical memoized snapshot.
	if &first[0] != &second[0] {
		t.Error("second Dump() did not return the memoized slice")
	}
}

func TestCache_Dump_MemoizesError(t *testing.T) {
	wantErr := errors.New("timeout")
	src := &countingSource{dumpErr: wantErr}
	c := NewCache(src)

	if _, err := c.Dump(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("Dump() error = %v, want %v", err, wantErr)
	}
	if _, err := c.Dump(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("Dump() second error = %v, want %v", err, wantErr)
	}
	if src.dumpCalls.Load() != 1 {
		t.Errorf("dump queries = %d, want 1 (failures are not retried)", src.dumpCalls.Load())
	}
}

func TestCache_Frames_QueriesOncePerCoroutine(t *testing.T) {
	src := &countingSource{
		frames: map[int64][]Frame{
			1: {{Kind: FrameExecution, Index: 0}},
			2: {{Kind: FrameCreation, Index: 0}},
		},
	}
	c := NewCache(src)

	ctx := context.Background()
	if _, err := c.Frames(ctx, 1); err != nil {
		t.Fatalf("Frames(1) error = %v", err)
	}
	if _, err := c.Frames(ctx, 2); err != nil {
		t.Fatalf("Frames(2) error = %v", err)
	}
	if _, err := c.Frames(ctx, 1); err != nil {
		t.Fatalf("Frames(1) again error = %v", err)
	}

	if src.framesCalls.Load() != 2 {
		t.Errorf("frame queries = %d, want 2", src.framesCalls.Load())
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestCache_Frames_MemoizesError(t *testing.T) {
	wantErr := errors.New("no such coroutine")
	src := &countingSource{frameErr: wantErr}
	c := NewCache(src)

	ctx := context.Background()
	if _, err := c.Frames(ctx, 9); !errors.Is(err, wantErr) {
		t.Fatalf("Frames() error = %v, want %v", err, wantErr)
	}
	if _, err := c.Frames(ctx, 9); !errors.Is(err, wantErr) {
		t.Fatalf("Frames() second error = %v, want %v", err, wantErr)
	}
	if src.framesCalls.Load() != 1 {
		t.Errorf("frame queries = %d, want 1 (failures are not retried)", src.framesCalls.Load())
	}
}
