package pipeline

import "zirka/internal/parallel"

// Exported-for-test shims: internal/pipeline's core stage functions are
// unexported because they're wired together by Encode/Restore, not meant as
// public API, but gather_test.go (external package pipeline_test) needs to
// drive Stage G and Stage S directly to build its coverage-oracle fixture.

type TestCounter = parallel.Counter

func RunGatherForTest(indexData, updateData []byte, counter *TestCounter, workers int) error {
	return runGather(indexData, updateData, counter, workers)
}

func SortIndexForTest(indexData []byte, threshold, workers int) error {
	return sortIndex(indexData, threshold, workers)
}
