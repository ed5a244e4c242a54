package pipeline

import (
	"encoding/binary"

	"zirka/internal/parallel"
)

// rankMapView presents a memory-mapped region as a fixed-stride array of
// uint64 RankMap slots.
type rankMapView struct {
	data []byte
}

func newRankMapView(data []byte) rankMapView {
	return rankMapView{data: data}
}

func (v rankMapView) Len() int {
	return len(v.data) / 8
}

func (v rankMapView) Get(i int) uint64 {
	return binary.LittleEndian.Uint64(v.data[i*8 : i*8+8])
}

func (v rankMapView) Set(i int, val uint64) {
	binary.LittleEndian.PutUint64(v.data[i*8:i*8+8], val)
}

// initRankMap fills every slot with NullRank, a data-parallel loop across
// all N slots (§4.5).
func initRankMap(rankData []byte, workers int) error {
	rm := newRankMapView(rankData)

	return parallel.For(rm.Len(), workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			rm.Set(i, NullRank)
		}
	})
}

// runApply performs Stage A: stream the pos-sorted update log into the
// rank-map, writing RankMap[pos] = target for every record.
//
// This is the "Nuclear" scheme (§4.5): because updateData is already
// sorted by pos ascending (Stage U), partitioning it into contiguous
// static slices across workers makes every worker's writes land in its own
// forward-moving, monotonically increasing window of the rank-map. On a
// source far larger than RAM, this turns what would otherwise be random
// writes roughly N/W apart — the access pattern you'd get applying updates
// in fingerprint-sorted order — into a sequential sweep the OS can page in
// and write back in order.
func runApply(updateData []byte, rankData []byte, workers int) error {
	updates := newUpdateView(updateData)
	rm := newRankMapView(rankData)

	return parallel.For(updates.Len(), workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			r := updates.Get(i)
			rm.Set(int(r.Pos), r.Target)
		}
	})
}
