// Package pipeline implements the encoder's out-of-core deduplication
// pipeline (Stages H, S, G, U, A, E) and the restorer's inverse (Stage R).
//
// Pipeline stages lay out fixed-size binary records directly over
// memory-mapped files, the same "pack a struct straight into bytes with
// encoding/binary-style little-endian fields" idiom the teacher uses for
// WAL entries and SST blocks, just without the io.Writer indirection since
// the backing store here is a mapped array, not an append-only stream.
package pipeline

import "encoding/binary"

const (
	// DefaultBlockSize is the conventional W, the deduplication
	// granularity. Encode and Restore do not apply it themselves: they
	// reject a zero BlockSize. The spec's calibration runs used 256,
	// 384, and 4096; 4096 is the value the resource-budget math in §5 is
	// expressed against.
	DefaultBlockSize = 4096

	// Magic is the single byte value that introduces a backreference tag
	// in the encoded stream.
	Magic byte = 0xFF

	// NullRank is the RankMap sentinel meaning "no known earlier
	// identical block starts here": all-ones, so it can never collide
	// with a real, in-bounds source offset.
	NullRank uint64 = ^uint64(0)

	// indexRecordSize is sizeof(IndexEntry) on disk: h_lo, h_hi, offset,
	// each a little-endian uint64.
	indexRecordSize = 24

	// updateRecordSize is sizeof(UpdateRecord) on disk: pos, target, each
	// a little-endian uint64.
	updateRecordSize = 16

	// tagSize is sizeof(the 13-byte backreference tag): MAGIC + 8-byte
	// target + 4-byte check.
	tagSize = 1 + 8 + 4
)

// IndexEntry is one fingerprint record: (h_lo, h_hi, offset). One exists
// per source position in [0, N-W].
type IndexEntry struct {
	HLo    uint64
	HHi    uint64
	Offset uint64
}

func getIndexEntry(buf []byte) IndexEntry {
	return IndexEntry{
		HLo:    binary.LittleEndian.Uint64(buf[0:8]),
		HHi:    binary.LittleEndian.Uint64(buf[8:16]),
		Offset: binary.LittleEndian.Uint64(buf[16:24]),
	}
}

func putIndexEntry(buf []byte, e IndexEntry) {
	binary.LittleEndian.PutUint64(buf[0:8], e.HLo)
	binary.LittleEndian.PutUint64(buf[8:16], e.HHi)
	binary.LittleEndian.PutUint64(buf[16:24], e.Offset)
}

// UpdateRecord is a (pos, target) pair: "the block starting at pos is a
// duplicate of the block starting at target." Always target < pos.
type UpdateRecord struct {
	Pos    uint64
	Target uint64
}

func getUpdateRecord(buf []byte) UpdateRecord {
	return UpdateRecord{
		Pos:    binary.LittleEndian.Uint64(buf[0:8]),
		Target: binary.LittleEndian.Uint64(buf[8:16]),
	}
}

func putUpdateRecord(buf []byte, r UpdateRecord) {
	binary.LittleEndian.PutUint64(buf[0:8], r.Pos)
	binary.LittleEndian.PutUint64(buf[8:16], r.Target)
}

// IndexCount returns the number of IndexEntry records a source of length n
// produces for block size w: one per position in [0, n-w], or zero if the
// source is shorter than a single block.
func IndexCount(n, w int64) int64 {
	if n < w {
		return 0
	}

	return n - w + 1
}
