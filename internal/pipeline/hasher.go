package pipeline

import (
	"zirka/internal/fingerprint"
	"zirka/internal/parallel"
)

// runHasher performs Stage H: for every position i in [0, n-w], computes
// IndexEntry[i] = (h_lo, h_hi, i) where (h_hi, h_lo) = F(source[i:i+w]).
//
// Positions are independent, so this is a plain data-parallel loop with
// static partitioning across workers and no synchronization (§4.1).
func runHasher(source []byte, w int, indexData []byte, workers int) error {
	n := len(source)
	count := IndexCount(int64(n), int64(w))
	if count == 0 {
		return nil
	}

	index := newIndexView(indexData)

	return parallel.For(int(count), workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			block := source[i : i+w]
			digest := fingerprint.Sum(block)

			index.Set(i, IndexEntry{
				HLo:    digest.Lo,
				HHi:    digest.Hi,
				Offset: uint64(i),
			})
		}
	})
}
