package pipeline

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"

	"zirka/internal/fingerprint"
)

// runEncoder performs Stage E: read source sequentially; at each position,
// consult the rank-map and either emit a literal byte or a 13-byte
// backreference tag.
//
// The per-step protocol (§4.6):
//  1. If pos+w <= len(source) and RankMap[pos] != NullRank, let t be that
//     value. Verify t+w <= pos and that source[pos:pos+w] byte-for-byte
//     equals source[t:t+w]. On match, emit {Magic, t LE64, V(t) LE32} and
//     advance pos by w.
//  2. Otherwise, emit the single byte source[pos] and advance pos by 1.
//
// A byte-compare mismatch (astronomically rare 128-bit collision, or a
// corrupted rank-map entry) degrades gracefully to step 2: this is a
// correctness-preserving outcome by design (§7) and is never surfaced as an
// error.
func runEncoder(source []byte, w int, rankData []byte, out io.Writer) error {
	rm := newRankMapView(rankData)
	n := len(source)

	bw := bufio.NewWriterSize(out, 1<<20)

	var tag [tagSize]byte

	pos := 0
	for pos < n {
		if pos+w <= n {
			if t := rm.Get(pos); t != NullRank {
				if isValidBackref(source, w, t, pos) {
					tag[0] = Magic
					binary.LittleEndian.PutUint64(tag[1:9], t)
					binary.LittleEndian.PutUint32(tag[9:13], fingerprint.Verify(t))

					if _, err := bw.Write(tag[:]); err != nil {
						return err
					}

					pos += w

					continue
				}
			}
		}

		if err := bw.WriteByte(source[pos]); err != nil {
			return err
		}

		pos++
	}

	return bw.Flush()
}

// isValidBackref re-verifies a candidate back-pointer at encode time: no
// forward references, and the bytes genuinely match. This defends against
// the astronomically rare fingerprint collision and any transient rank-map
// corruption — "trust but verify" (§4.6).
func isValidBackref(source []byte, w int, t uint64, pos int) bool {
	if t+uint64(w) > uint64(pos) {
		return false
	}

	return bytes.Equal(source[pos:pos+w], source[int(t):int(t)+w])
}
