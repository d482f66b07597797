package snapshot

import (
	"context"
	"sync"
)

// Source is the protocol slice the cache reads through. In the running
// program it is backed by the wire client; tests substitute fakes.
type Source interface {
	// DumpCoroutines returns all coroutines at the current stop.
	DumpCoroutines(ctx context.Context) ([]Coroutine, error)

	// CoroutineFrames returns the full frame list of one coroutine.
	CoroutineFrames(ctx context.Context, coroutineID int64) ([]Frame, error)
}

// Cache memoizes the coroutine dump and per-coroutine frame builds for one
// stop. Each underlying query runs at most once per key for the cache's
// lifetime; results are remembered whether they succeeded or failed, so a
// failing server is asked exactly once. A new cache is built for every stop
// and discarded with it, which is what keeps stale data from leaking across
// pauses.
//
// Thread-safety: all methods are safe for concurrent use. In practice every
// call arrives on the channel executor's worker.
type Cache struct {
	source Source

	mu     sync.Mutex
	dump   *dumpEntry
	frames map[int64]*framesEntry
}

type dumpEntry struct {
	coros []Coroutine
	err   error
}

type framesEntry struct {
	frames []Frame
	err    error
}

// NewCache creates an empty cache over the given source.
func NewCache(source Source) *Cache {
	return &Cache{
		source: source,
		frames: make(map[int64]*framesEntry),
	}
}

// Dump returns the coroutine dump, querying the source on first use only.
// The error of a failed first query is returned to every later caller
// without re-querying.
func (c *Cache) Dump(ctx context.Context) ([]Coroutine, error) {
	c.mu.Lock()
	if e := c.dump; e != nil {
		c.mu.Unlock()
		return e.coros, e.err
	}
	c.mu.Unlock()

	coros, err := c.source.DumpCoroutines(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	// A concurrent first caller may have filled the entry; keep the first.
	if c.dump == nil {
		c.dump = &dumpEntry{coros: coros, err: err}
	}
	return c.dump.coros, c.dump.err
}

// Frames returns the frame list for one coroutine, querying the source on
// first use per coroutine only.
func (c *Cache) Frames(ctx context.Context, coroutineID int64) ([]Frame, error) {
	c.mu.Lock()
	if e, ok := c.frames[coroutineID]; ok {
		c.mu.Unlock()
		return e.frames, e.err
	}
	c.mu.Unlock()

	frames, err := c.source.CoroutineFrames(ctx, coroutineID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.frames[coroutineID]; ok {
		return e.frames, e.err
	}
	c.frames[coroutineID] = &framesEntry{frames: frames, err: err}
	return frames, err
}

// Size returns the number of memoized frame entries plus one if the dump
// has been taken.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.frames)
	if c.dump != nil {
		n++
	}
	return n
}
