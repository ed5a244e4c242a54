// Package parallel provides the two shared-memory concurrency shapes the
// pipeline stages need: data-parallel static partitioning (Stages H, G's
// slab scan, and A), and recursive partition-based parallel sort (Stages S
// and U).
//
// The teacher (FlashLog) has no worker pool of its own; its WAL writer is a
// single goroutine fed by a channel. This package is enriched from the rest
// of the retrieval pack: golang.org/x/sync/errgroup, a direct dependency of
// rybkr-gitvista and an indirect dependency across most of the pack's
// larger repos, is the idiomatic Go fork-join primitive and is used here
// for exactly that purpose.
package parallel

import (
	"runtime"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Workers resolves a requested worker count to a usable one: 0 (or
// negative) means "use the machine's hardware parallelism," matching the
// default in §5 and the "ambient parallelism configuration" override
// language in §6.
func Workers(requested int) int {
	if requested > 0 {
		return requested
	}

	return runtime.GOMAXPROCS(0)
}

// For runs fn over disjoint, contiguous index ranges covering [0, n),
// split statically across workers goroutines. This is the data-parallel
// for-loop shape used by Stage H (hashing), Stage A's NULL_RANK fill, and
// Stage G's independent slab scan.
//
// fn must not touch indices outside its own [lo, hi) range; For provides no
// other synchronization.
func For(n, workers int, fn func(lo, hi int)) error {
	if n <= 0 {
		return nil
	}

	workers = Workers(workers)
	if workers > n {
		workers = n
	}

	chunk := (n + workers - 1) / workers

	var g errgroup.Group

	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}

		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}

	return g.Wait()
}

// Counter is a fetch-and-add reservation cursor: Stage G's workers use it
// to atomically reserve a contiguous range of the update log to write their
// records into, the one piece of required shared mutable state besides the
// sort orderings themselves (§5, §9).
type Counter struct {
	v atomic.Uint64
}

// Reserve atomically reserves n contiguous slots and returns the offset of
// the first one.
func (c *Counter) Reserve(n uint64) uint64 {
	if n == 0 {
		return c.v.Load()
	}

	return c.v.Add(n) - n
}

// Load returns the current value of the counter (the total number of slots
// reserved so far).
func (c *Counter) Load() uint64 {
	return c.v.Load()
}

// SortableRange is the minimal interface a parallel sort target must
// satisfy: compare-and-swap by index, like sort.Interface, without Len
// tied to the whole collection so sub-ranges can be addressed by [lo, hi).
type SortableRange interface {
	Len() int
	Less(i, j int) bool
	Swap(i, j int)
}

// rangeView presents [lo, hi) of an underlying SortableRange as a
// sort.Interface, so the serial base case can be handed to sort.Sort
// instead of a hand-rolled comparison sort.
type rangeView struct {
	data   SortableRange
	lo, hi int
}

func (r rangeView) Len() int           { return r.hi - r.lo }
func (r rangeView) Less(i, j int) bool { return r.data.Less(r.lo+i, r.lo+j) }
func (r rangeView) Swap(i, j int)      { r.data.Swap(r.lo+i, r.lo+j) }

// DefaultSerialThreshold is the partition size below which Sort falls
// through to a serial comparison sort, calibrated in §4.2 at 4096 entries.
const DefaultSerialThreshold = 4096

// Sort performs an in-place, partition-based parallel sort of data,
// matching §4.2/§4.4: partitions at or below threshold entries fall
// through to a serial comparison sort (sort.Sort over the partition's
// range); above threshold, a single goroutine partitions the range, one
// resulting half is offered to the pool as a new task (any idle worker may
// pick it up via errgroup's bounded concurrency), and the other is
// processed inline by the same goroutine. This bounds live task count and
// avoids pool starvation, per §9.
//
// The partition step itself is a median-of-three-pivoted Lomuto partition
// rather than Hoare's scheme: Hoare partitioning with an index-only
// comparator (no way to extract a pivot's value, only to compare by index)
// requires tracking where the pivot element moves to during the scan,
// which Lomuto sidesteps by fixing the pivot at the end of the range until
// the single final swap. Both give the same "every element left of the
// pivot sorts before the pivot" guarantee the recursion depends on; which
// one is used does not change the sort's logical order (§9's closing
// note).
func Sort(data SortableRange, threshold, workers int) error {
	if threshold <= 0 {
		threshold = DefaultSerialThreshold
	}

	workers = Workers(workers)

	var g errgroup.Group
	g.SetLimit(workers)

	var recurse func(lo, hi int)
	recurse = func(lo, hi int) {
		for hi-lo > threshold {
			p := partition(data, lo, hi)

			left := func() { recurse(lo, p) }

			if !g.TryGo(func() error { left(); return nil }) {
				left()
			}

			lo = p + 1
		}

		sort.Sort(rangeView{data: data, lo: lo, hi: hi})
	}

	recurse(0, data.Len())

	return g.Wait()
}

func partition(data SortableRange, lo, hi int) int {
	mid := lo + (hi-lo)/2
	last := hi - 1

	medianOfThree(data, lo, mid, last)
	data.Swap(mid, last)

	pivot := last
	store := lo

	for i := lo; i < last; i++ {
		if data.Less(i, pivot) {
			data.Swap(i, store)
			store++
		}
	}

	data.Swap(store, pivot)

	return store
}

// medianOfThree reorders data[a], data[b], data[c] in place so that
// data[b] holds the median of the three, which partition then moves to the
// end to use as the pivot.
func medianOfThree(data SortableRange, a, b, c int) {
	if data.Less(b, a) {
		data.Swap(a, b)
	}

	if data.Less(c, a) {
		data.Swap(a, c)
	}

	if data.Less(c, b) {
		data.Swap(b, c)
	}
}
