// Command unzirka restores a dedup-encoded file, writing <path>.restored.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	flag "github.com/spf13/pflag"

	"zirka/internal/pipeline"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout *os.File) error {
	fs := flag.NewFlagSet("unzirka", flag.ContinueOnError)

	workers := fs.Int("workers", 0, "worker pool size (0 = runtime.GOMAXPROCS(0))")
	blockSize := fs.IntP("block-size", "w", 4096, "block size the stream was encoded with")
	initialCapacity := fs.Int64("initial-capacity", pipeline.DefaultInitialCapacity,
		"output mapping's starting capacity in bytes, before doubling growth")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: unzirka [flags] <path.zirka>")
	}

	encodedPath := fs.Arg(0)
	outputPath := strings.TrimSuffix(encodedPath, ".zirka") + ".restored"

	fmt.Fprintf(stdout, "restoring %s -> %s\n", encodedPath, outputPath)

	start := time.Now()

	if err := pipeline.Restore(encodedPath, outputPath, pipeline.Options{
		BlockSize:              *blockSize,
		Workers:                *workers,
		InitialRestoreCapacity: *initialCapacity,
		Log:                    stdout,
	}); err != nil {
		return err
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("stat output: %w", err)
	}

	fmt.Fprintf(stdout, "wrote %s (%s) in %s\n",
		outputPath,
		humanize.IBytes(uint64(info.Size())),
		time.Since(start).Round(time.Millisecond),
	)

	return nil
}
