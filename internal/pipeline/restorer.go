package pipeline

import (
	"bufio"
	"encoding/binary"
	"io"

	"zirka/internal/fingerprint"
)

// GrowableOutput is the minimal surface runRestorer needs from its output
// mapping: read access to everything written so far (to satisfy a tag's
// copy), and the ability to grow before a write that would overflow
// capacity. mmapio.File satisfies it; it is an interface here only so
// tests can swap in an in-memory fake without touching a real file.
type GrowableOutput interface {
	Bytes() []byte
	Grow(newSize int64) error
}

// DefaultInitialCapacity is the output mapping's starting capacity before
// the first doubling, per §4.7's "e.g. 1 GiB" suggestion. Tests use a much
// smaller value to keep fixtures small.
const DefaultInitialCapacity = 1 << 30

// runRestorer performs Stage R: stream the encoded input and expand tags
// into copies from already-written output, reconstructing the source
// byte-for-byte.
//
// The per-step protocol (§4.7), reading input byte b:
//  1. If b == Magic, peek (without consuming) the next tagSize-1 bytes. If
//     enough bytes remain, and V(t) == check, and t+w <= opos, consume them,
//     copy w bytes from output[t:t+w] to output[opos:opos+w], and advance
//     opos by w.
//  2. Otherwise (short peek, or a failed V-check/bounds test), write only b
//     as a literal and advance opos by 1 — none of the peeked bytes are
//     consumed, so they are re-examined from scratch as the next bytes.
//
// A MAGIC byte whose trailing bytes fail verification — an astronomically
// rare false match in the literal stream, or truncated input — is treated
// as a single literal byte, not as 13: the bytes following it may
// themselves start a genuine tag, and consuming them unconditionally would
// desync the stream. This is a correctness-preserving outcome per §7,
// never reported as an error.
func runRestorer(in io.Reader, w int, out GrowableOutput, initialCapacity int64) (int64, error) {
	if initialCapacity <= 0 {
		initialCapacity = DefaultInitialCapacity
	}

	if err := out.Grow(initialCapacity); err != nil {
		return 0, err
	}

	var opos int64

	ensure := func(need int64) error {
		capacity := int64(len(out.Bytes()))
		if opos+need <= capacity {
			return nil
		}

		for capacity < opos+need {
			capacity *= 2
		}

		return out.Grow(capacity)
	}

	writeByte := func(b byte) error {
		if err := ensure(1); err != nil {
			return err
		}

		out.Bytes()[opos] = b
		opos++

		return nil
	}

	br := bufio.NewReaderSize(in, 1<<20)

	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			break
		}

		if err != nil {
			return opos, err
		}

		if b == Magic {
			rest, peekErr := br.Peek(tagSize - 1)
			if peekErr == nil {
				t := binary.LittleEndian.Uint64(rest[0:8])
				check := binary.LittleEndian.Uint32(rest[8:12])

				if fingerprint.Verify(t) == check && t+uint64(w) <= uint64(opos) {
					if _, err := br.Discard(tagSize - 1); err != nil {
						return opos, err
					}

					if err := ensure(int64(w)); err != nil {
						return opos, err
					}

					buf := out.Bytes()
					copy(buf[opos:opos+int64(w)], buf[t:t+uint64(w)])
					opos += int64(w)

					continue
				}
			}

			// Speculative tag rejected (or input ran out before a full
			// tag's worth of bytes): b alone was a literal. The peeked
			// bytes were never consumed, so they are re-examined as the
			// next input on the following iterations.
			if err := writeByte(b); err != nil {
				return opos, err
			}

			continue
		}

		if err := writeByte(b); err != nil {
			return opos, err
		}
	}

	if err := out.Grow(opos); err != nil {
		return opos, err
	}

	return opos, nil
}
