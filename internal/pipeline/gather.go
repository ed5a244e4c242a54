package pipeline

import "zirka/internal/parallel"

// runGather performs Stage G: walk the fingerprint-sorted index once, and
// for every maximal run of k >= 1 identical-fingerprint entries, emit k-1
// UpdateRecords pointing every non-first member of the run at the run's
// first member (the master offset).
//
// Workers scan independent, statically partitioned slabs of the sorted
// index (§4.3). A worker only *starts* processing a group at position i if
// i == 0 or index[i] and index[i-1] have different fingerprints — i.e. i is
// a genuine group start, not owned by whichever worker's slab contains the
// group's actual start. Once a worker identifies a group start, it scans
// forward to find the group's end even if that scan runs past its own
// slab's hi boundary; this is the "sparse, not known in advance" shape
// called out in §4.3, and the redundant re-scanning it causes across a slab
// boundary is bounded by one group's length, not by n.
//
// For each group it starts, a worker counts the group's duplicates,
// reserves a contiguous range of the update log with one fetch-and-add on
// the shared counter, then writes that group's records sequentially into
// the range. Reservation is per group, not one per worker slab, so a
// worker's records are not necessarily contiguous in the log. The
// resulting log is not position-sorted (Stage U's job), and is written
// with exactly one atomic operation per group, not per record.
func runGather(indexData []byte, updateData []byte, counter *parallel.Counter, workers int) error {
	index := newIndexView(indexData)
	updates := newUpdateView(updateData)

	n := index.Len()
	if n == 0 {
		return nil
	}

	return parallel.For(n, workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if i > 0 && sameHash(index.Get(i-1), index.Get(i)) {
				continue
			}

			start := index.Get(i)

			j := i + 1
			for j < n && sameHash(start, index.Get(j)) {
				j++
			}

			groupLen := j - i
			if groupLen > 1 {
				dupCount := uint64(groupLen - 1)
				base := counter.Reserve(dupCount)
				master := start.Offset

				for k := 1; k < groupLen; k++ {
					updates.Set(int(base)+k-1, UpdateRecord{
						Pos:    index.Get(i + k).Offset,
						Target: master,
					})
				}
			}
		}
	})
}
