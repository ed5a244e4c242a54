// Command zirka dedup-encodes a file, writing <path>.zirka and leaving the
// source unchanged.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	flag "github.com/spf13/pflag"

	"zirka/internal/config"
	"zirka/internal/pipeline"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr *os.File) error {
	fs := flag.NewFlagSet("zirka", flag.ContinueOnError)

	blockSize := fs.IntP("block-size", "w", 0, "deduplication block size in bytes (0 = from config, default 4096)")
	workers := fs.Int("workers", 0, "worker pool size (0 = runtime.GOMAXPROCS(0))")
	configPath := fs.String("config", "", "path to a .hujson config file")
	keepIndex := fs.Bool("keep-index", false, "retain zirka_index.tmp after a successful run")
	keepRankMap := fs.Bool("keep-rankmap", false, "retain zirka_rank.tmp after a successful run")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: zirka [flags] <path>")
	}

	sourcePath := fs.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	if *blockSize > 0 {
		cfg.BlockSize = *blockSize
	}

	if *workers > 0 {
		cfg.Workers = *workers
	}

	cfg.RetainIndex = cfg.RetainIndex || *keepIndex
	cfg.RetainRankMap = cfg.RetainRankMap || *keepRankMap

	if err := cfg.Validate(); err != nil {
		return err
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", sourcePath, err)
	}

	fmt.Fprintf(stdout, "encoding %s (%s)\n", sourcePath, humanize.IBytes(uint64(info.Size())))

	start := time.Now()

	err = pipeline.Encode(sourcePath, pipeline.Options{
		BlockSize:     cfg.BlockSize,
		Workers:       cfg.ResolvedWorkers(),
		TempDir:       cfg.TempDir,
		RetainIndex:   cfg.RetainIndex,
		RetainRankMap: cfg.RetainRankMap,
		Log:           stdout,
	})
	if err != nil {
		return err
	}

	outInfo, err := os.Stat(sourcePath + ".zirka")
	if err != nil {
		return fmt.Errorf("stat output: %w", err)
	}

	fmt.Fprintf(stdout, "wrote %s.zirka (%s, %.1f%% of original) in %s\n",
		sourcePath,
		humanize.IBytes(uint64(outInfo.Size())),
		100*float64(outInfo.Size())/float64(info.Size()),
		time.Since(start).Round(time.Millisecond),
	)

	return nil
}
