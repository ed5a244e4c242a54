// Command zirka-inspect is an optional debugging REPL over a retained
// rank-map artifact or an encoded .zirka stream. It never runs on the
// encode/decode critical path.
package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"zirka/internal/fingerprint"
	"zirka/internal/mmapio"
)

const (
	rankSlotSize = 8
	nullRank     = ^uint64(0)
	magic        = 0xFF
	tagSize      = 13
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: zirka-inspect <zirka_rank.tmp|path.zirka>")
		os.Exit(1)
	}

	if err := run(os.Args[1], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, stdout io.Writer) error {
	mf, err := mmapio.OpenReadOnly(path)
	if err != nil {
		return err
	}
	defer mf.Close()

	if strings.HasSuffix(path, "_rank.tmp") {
		return rankREPL(mf.Bytes(), stdout)
	}

	return streamREPL(mf.Bytes(), stdout)
}

// rankREPL offers "rank <pos>" and "stats" over a RankMap artifact.
func rankREPL(data []byte, stdout io.Writer) error {
	n := len(data) / rankSlotSize
	fmt.Fprintf(stdout, "rank-map: %d slots\n", n)

	line := liner.NewLiner()
	defer line.Close()

	for {
		input, err := line.Prompt("zirka-rank> ")
		if err == io.EOF || err == liner.ErrPromptAborted {
			return nil
		}

		if err != nil {
			return err
		}

		line.AppendHistory(input)
		fields := strings.Fields(input)

		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "rank":
			if len(fields) != 2 {
				fmt.Fprintln(stdout, "usage: rank <pos>")
				continue
			}

			pos, err := strconv.Atoi(fields[1])
			if err != nil || pos < 0 || pos >= n {
				fmt.Fprintf(stdout, "invalid pos %q\n", fields[1])
				continue
			}

			target := binary.LittleEndian.Uint64(data[pos*rankSlotSize : pos*rankSlotSize+rankSlotSize])
			if target == nullRank {
				fmt.Fprintf(stdout, "%d: NULL_RANK\n", pos)
			} else {
				fmt.Fprintf(stdout, "%d: %d\n", pos, target)
			}
		case "stats":
			var resolved int

			for i := 0; i < n; i++ {
				if binary.LittleEndian.Uint64(data[i*rankSlotSize:i*rankSlotSize+rankSlotSize]) != nullRank {
					resolved++
				}
			}

			fmt.Fprintf(stdout, "slots=%d resolved=%d null=%d\n", n, resolved, n-resolved)
		case "quit", "exit":
			return nil
		default:
			fmt.Fprintf(stdout, "unknown command %q (try: rank <pos>, stats, quit)\n", fields[0])
		}
	}
}

// streamREPL offers "tag <n>" (walk to the n'th tag, 0-indexed, and print
// its target/check) and "stats" (literal vs tag byte counts) over an
// encoded .zirka stream.
func streamREPL(data []byte, stdout io.Writer) error {
	fmt.Fprintf(stdout, "encoded stream: %d bytes\n", len(data))

	line := liner.NewLiner()
	defer line.Close()

	for {
		input, err := line.Prompt("zirka-stream> ")
		if err == io.EOF || err == liner.ErrPromptAborted {
			return nil
		}

		if err != nil {
			return err
		}

		line.AppendHistory(input)
		fields := strings.Fields(input)

		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "tag":
			if len(fields) != 2 {
				fmt.Fprintln(stdout, "usage: tag <n>")
				continue
			}

			want, err := strconv.Atoi(fields[1])
			if err != nil || want < 0 {
				fmt.Fprintf(stdout, "invalid n %q\n", fields[1])
				continue
			}

			printNthTag(data, want, stdout)
		case "stats":
			literals, tags := 0, 0

			for i := 0; i < len(data); {
				if _, _, ok := genuineTagAt(data, i); ok {
					tags++
					i += tagSize

					continue
				}

				literals++
				i++
			}

			fmt.Fprintf(stdout, "literal bytes=%d tags=%d\n", literals, tags)
		case "quit", "exit":
			return nil
		default:
			fmt.Fprintf(stdout, "unknown command %q (try: tag <n>, stats, quit)\n", fields[0])
		}
	}
}

func printNthTag(data []byte, want int, stdout io.Writer) {
	seen := 0

	for i := 0; i < len(data); {
		if target, check, ok := genuineTagAt(data, i); ok {
			if seen == want {
				fmt.Fprintf(stdout, "tag #%d at byte %d: target=%d check=%d\n", want, i, target, check)

				return
			}

			seen++
			i += tagSize

			continue
		}

		i++
	}

	fmt.Fprintf(stdout, "only %d tags in stream\n", seen)
}

// genuineTagAt reports whether data[i] starts a tag by the restorer's
// stream-local tests: a MAGIC byte, enough trailing bytes, and a passing
// V-check. A MAGIC byte that is merely a literal (no V-check pass) is not a
// tag and is not stepped over as one. The restorer's further bound
// (target+W must not exceed the output written so far) is not checked here,
// since neither W nor the output position is known to this tool.
func genuineTagAt(data []byte, i int) (target uint64, check uint32, ok bool) {
	if data[i] != magic || i+tagSize > len(data) {
		return 0, 0, false
	}

	target = binary.LittleEndian.Uint64(data[i+1 : i+9])
	check = binary.LittleEndian.Uint32(data[i+9 : i+13])

	return target, check, fingerprint.Verify(target) == check
}
