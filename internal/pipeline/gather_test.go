package pipeline_test

import (
	"encoding/binary"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/require"

	"zirka/internal/fingerprint"
	"zirka/internal/pipeline"
)

// buildSortedIndex hashes every W-byte block of src in memory and returns the
// index already sorted, exactly as Stage S would leave it, using Stage S's own
// sort via SortIndexForTest.
func buildSortedIndex(t *testing.T, src []byte, w int) (indexData []byte, count int) {
	t.Helper()

	count = len(src) - w + 1
	if count < 0 {
		count = 0
	}

	indexData = make([]byte, count*24)

	for i := 0; i < count; i++ {
		d := fingerprint.Sum(src[i : i+w])
		off := i * 24
		binary.LittleEndian.PutUint64(indexData[off:off+8], d.Lo)
		binary.LittleEndian.PutUint64(indexData[off+8:off+16], d.Hi)
		binary.LittleEndian.PutUint64(indexData[off+16:off+24], uint64(i))
	}

	sortIndexForTest(t, indexData)

	return indexData, count
}

// TestGather_CoversEveryDuplicatePositionExactlyOnce builds a source with
// several duplicate-block groups of varying size, runs Stage G, and uses a
// bitset sized N-W+1 as a coverage oracle: every non-first member of every
// fingerprint-sorted duplicate run must receive exactly one UpdateRecord,
// and no position outside a duplicate run may receive one.
func TestGather_CoversEveryDuplicatePositionExactlyOnce(t *testing.T) {
	const w = 4

	// Four distinct aligned 4-byte blocks, with AAAA and CCCC repeated.
	src := []byte("AAAA" + "BBBB" + "CCCC" + "AAAA" + "CCCC" + "AAAA" + "DDDD")

	indexData, count := buildSortedIndex(t, src, w)
	require.Equal(t, len(src)-w+1, count)

	updateData := make([]byte, count*16)

	var counter pipeline.TestCounter

	require.NoError(t, pipeline.RunGatherForTest(indexData, updateData, &counter, 2))

	used := int(counter.Load())
	updateData = updateData[:used*16]

	covered := bitset.New(uint(count))

	for i := 0; i < used; i++ {
		off := i * 16
		pos := binary.LittleEndian.Uint64(updateData[off : off+8])

		require.False(t, covered.Test(uint(pos)), "position %d covered twice", pos)
		covered.Set(uint(pos))
	}

	// Expected duplicate groups by content, independent of hash layout
	// (every byte offset starts a window, not only multiples of w):
	// "AAAA" appears at source offsets 0, 12, 20 (3 occurrences -> 2 updates)
	// "CCCC" appears at source offsets 8, 16 (2 occurrences -> 1 update)
	// "CCCA", "CCAA", "CAAA" appear at 9/17, 10/18, 11/19 (-> 3 updates)
	// every other window, including "BBBB" and "DDDD", is unique -> no updates.
	wantDuplicates := 2 + 1 + 3
	require.Equal(t, wantDuplicates, used)

	// Every position whose block content recurs earlier must be covered;
	// every position that is a group's first occurrence, or unique, must
	// not be.
	firstSeen := map[string]int{}

	for i := 0; i+w <= len(src); i++ {
		block := string(src[i : i+w])
		if _, ok := firstSeen[block]; !ok {
			firstSeen[block] = i

			require.False(t, covered.Test(uint(i)), "first occurrence at %d should not be covered", i)

			continue
		}

		require.True(t, covered.Test(uint(i)), "duplicate occurrence at %d should be covered", i)
	}
}

func sortIndexForTest(t *testing.T, indexData []byte) {
	t.Helper()

	require.NoError(t, pipeline.SortIndexForTest(indexData, 4, 2))
}
