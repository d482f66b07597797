// Package snapshot holds the immutable picture of the coroutine world taken
// at one stop: coroutine descriptors, their tagged stack frames, and a
// per-stop cache that guarantees each protocol query runs at most once.
package snapshot
