// Package tree maps coroutine snapshots into the lazily built display
// hierarchy.
//
// # Shape
//
// The tree built for one stop always has this shape:
//
//	root (invisible)
//	└── group "coroutines"
//	    ├── coroutine 12 [suspended]
//	    │   ├── frame main.fetch (main.go:20)
//	    │   ├── frame main.run (main.go:12)
//	    │   └── creation
//	    │       └── frame main.spawn (main.go:4)
//	    └── coroutine 13 [running]
//	        └── ...
//
// Execution frames always precede the single trailing creation subgroup,
// each side in the exact order the runtime reported. The creation subgroup
// is present even when it has no frames.
//
// # Laziness
//
// Children are computed per node, on first expansion, at most once per
// stop. Group and coroutine children need protocol data and are fetched on
// the channel executor through the stop's snapshot cache; creation-subgroup
// children are derived from already-fetched frames and are computed
// synchronously on the display side. A failed fetch becomes a single error
// leaf under the requesting node and is not retried within the stop.
//
// # Affinity
//
// Node state (children, load state) and all Builder methods belong to the
// display executor. Scheduled channel tasks touch only the snapshot cache
// and hand completed child lists back to the display executor for commit.
// A commit whose stop has been invalidated is discarded without mutating
// anything.
//
// # Identity
//
// Every node carries a structural key ("group/coroutines/coro/12/frame/0").
// Keys, not pointers, are what expansion and selection state is captured
// against, which is how State survives the teardown and rebuild between
// stops.
package tree
