package pipeline

import "zirka/internal/parallel"

// indexView presents a memory-mapped region as a fixed-stride array of
// IndexEntry records, compared lexicographically on (h_hi, h_lo, offset)
// ascending — Stage S's contract (§4.2). Offset sorts last, which is what
// gives "the earliest source position comes first within a run of equal
// fingerprints" for free from a stable-tie-break sort, per §9.
type indexView struct {
	data []byte
}

func newIndexView(data []byte) indexView {
	return indexView{data: data}
}

func (v indexView) Len() int {
	return len(v.data) / indexRecordSize
}

func (v indexView) recordBytes(i int) []byte {
	off := i * indexRecordSize
	return v.data[off : off+indexRecordSize]
}

func (v indexView) Get(i int) IndexEntry {
	return getIndexEntry(v.recordBytes(i))
}

func (v indexView) Set(i int, e IndexEntry) {
	putIndexEntry(v.recordBytes(i), e)
}

func (v indexView) Less(i, j int) bool {
	a, b := v.recordBytes(i), v.recordBytes(j)

	// h_hi lives at byte offset 8, h_lo at 0, offset at 16; compare in
	// (h_hi, h_lo, offset) priority order.
	if c := compareUint64LE(a[8:16], b[8:16]); c != 0 {
		return c < 0
	}

	if c := compareUint64LE(a[0:8], b[0:8]); c != 0 {
		return c < 0
	}

	return compareUint64LE(a[16:24], b[16:24]) < 0
}

func (v indexView) Swap(i, j int) {
	a, b := v.recordBytes(i), v.recordBytes(j)

	var tmp [indexRecordSize]byte
	copy(tmp[:], a)
	copy(a, b)
	copy(b, tmp[:])
}

// sameHash reports whether two IndexEntry records share a fingerprint,
// i.e. belong to the same candidate duplicate group.
func sameHash(a, b IndexEntry) bool {
	return a.HHi == b.HHi && a.HLo == b.HLo
}

// compareUint64LE compares two 8-byte little-endian encoded uint64s
// without decoding them, returning -1, 0, or 1.
func compareUint64LE(a, b []byte) int {
	for i := 7; i >= 0; i-- {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}

			return 1
		}
	}

	return 0
}

// sortIndex performs Stage S: an in-place lexicographic sort of the index
// by (h_hi, h_lo, offset) ascending.
func sortIndex(data []byte, threshold, workers int) error {
	return parallel.Sort(newIndexView(data), threshold, workers)
}
