package pipeline

import "zirka/internal/parallel"

// updateView presents a memory-mapped region as a fixed-stride array of
// UpdateRecord, compared on pos ascending — Stage U's contract (§4.4). Ties
// on pos cannot occur: each source position is the start of at most one
// block, so it appears in at most one UpdateRecord.
type updateView struct {
	data []byte
}

func newUpdateView(data []byte) updateView {
	return updateView{data: data}
}

func (v updateView) Len() int {
	return len(v.data) / updateRecordSize
}

func (v updateView) recordBytes(i int) []byte {
	off := i * updateRecordSize
	return v.data[off : off+updateRecordSize]
}

func (v updateView) Get(i int) UpdateRecord {
	return getUpdateRecord(v.recordBytes(i))
}

func (v updateView) Set(i int, r UpdateRecord) {
	putUpdateRecord(v.recordBytes(i), r)
}

func (v updateView) Less(i, j int) bool {
	return compareUint64LE(v.recordBytes(i)[0:8], v.recordBytes(j)[0:8]) < 0
}

func (v updateView) Swap(i, j int) {
	a, b := v.recordBytes(i), v.recordBytes(j)

	var tmp [updateRecordSize]byte
	copy(tmp[:], a)
	copy(a, b)
	copy(b, tmp[:])
}

// sortUpdates performs Stage U: sort the update log by pos ascending,
// using the same parallel partition-based sort as Stage S with a
// single-field comparator.
func sortUpdates(data []byte, threshold, workers int) error {
	return parallel.Sort(newUpdateView(data), threshold, workers)
}
