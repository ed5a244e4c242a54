// Package fingerprint implements the block fingerprint (F) and back-pointer
// verification (V) functions shared by the encoder and restorer.
//
// Both are built on github.com/zeebo/xxh3, a SIMD-accelerated, keyed,
// non-cryptographic 128-bit mixer. It plays the same role here that the
// AES-NI "Pippip" lane mixer plays in the original C implementation: fast
// enough to saturate memory bandwidth, with enough collision resistance
// that a 128-bit match plus a byte-level re-check is a safe duplicate
// oracle. Bit-for-bit parity with the C mixer is not a requirement (only
// determinism within a single build of encoder+restorer is), so no attempt
// is made to reproduce its AES rounds.
package fingerprint

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// Digest is a 128-bit fingerprint, split the way IndexEntry stores it.
type Digest struct {
	Hi uint64
	Lo uint64
}

// Sum computes F(block), keyed by the block's own length.
//
// Keying on length means two blocks of different sizes that happen to
// share a byte pattern never collide purely by coincidence of the keying
// material, and it costs nothing extra since the length is already known
// at the call site.
func Sum(block []byte) Digest {
	h := xxh3.Hash128Seed(block, uint64(len(block)))

	return Digest{Hi: h.Hi, Lo: h.Lo}
}

// Verify computes V(target): the low 32 bits of F applied to target's
// 8-byte little-endian encoding under a zero seed.
//
// V is deterministic given only target, so both the encoder (when emitting
// a tag) and the restorer (when deciding whether a MAGIC byte introduces a
// tag or is a literal) compute the same check value independently.
func Verify(target uint64) uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], target)

	h := xxh3.Hash128Seed(buf[:], 0)

	return uint32(h.Lo)
}
