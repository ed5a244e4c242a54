// Package pipeline implements the out-of-core deduplication and restoration
// pipeline: Hasher, Index Sorter, Gather, Update Sorter, Apply, Encoder, and
// Restorer, wired together over memory-mapped temp artifacts.
package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"zirka/internal/mmapio"
	"zirka/internal/parallel"
)

// Options controls a single Encode or Restore run. Callers typically build
// this from config.Options; it is kept separate so internal/pipeline does
// not depend on internal/config.
type Options struct {
	BlockSize              int
	Workers                int
	TempDir                string
	RetainIndex            bool
	RetainRankMap          bool
	InitialRestoreCapacity int64
	SortThreshold          int
	Log                    io.Writer
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}

	return parallel.Workers(0)
}

func (o Options) sortThreshold() int {
	if o.SortThreshold > 0 {
		return o.SortThreshold
	}

	return parallel.DefaultSerialThreshold
}

func (o Options) logf(format string, args ...any) {
	if o.Log == nil {
		return
	}

	fmt.Fprintf(o.Log, format, args...)
}

func (o Options) tempPath(sourcePath, name string) string {
	if o.TempDir != "" {
		return filepath.Join(o.TempDir, name)
	}

	return filepath.Join(filepath.Dir(sourcePath), name)
}

func stage(o Options, name string, fn func() error) error {
	start := time.Now()

	if err := fn(); err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}

	o.logf("stage %-14s done in %s\n", name, time.Since(start).Round(time.Millisecond))

	return nil
}

// Encode runs the full Hasher -> Index Sort -> Gather -> Update Sort ->
// Apply -> Encoder pipeline over the file at sourcePath, writing the
// dedup-encoded stream to sourcePath+".zirka".
func Encode(sourcePath string, opts Options) error {
	if opts.BlockSize <= 0 {
		return ErrInvalidBlockSize
	}

	src, err := mmapio.OpenReadOnly(sourcePath)
	if err != nil {
		return fmt.Errorf("pipeline: opening source: %w", err)
	}
	defer src.Close()

	source := src.Bytes()
	n := int64(len(source))
	w := int64(opts.BlockSize)
	workers := opts.workers()
	threshold := opts.sortThreshold()

	count := IndexCount(n, w)

	indexPath := opts.tempPath(sourcePath, "zirka_index.tmp")
	updatesPath := opts.tempPath(sourcePath, "zirka_updates.tmp")
	rankPath := opts.tempPath(sourcePath, "zirka_rank.tmp")

	indexFile, err := mmapio.Create(indexPath, count*indexRecordSize)
	if err != nil {
		return fmt.Errorf("pipeline: creating index artifact: %w", err)
	}
	defer cleanupTemp(indexFile, opts.RetainIndex)

	// Worst case every remaining block duplicates an earlier one.
	updatesFile, err := mmapio.Create(updatesPath, count*updateRecordSize)
	if err != nil {
		return fmt.Errorf("pipeline: creating update-log artifact: %w", err)
	}
	defer cleanupTemp(updatesFile, false)

	rankFile, err := mmapio.Create(rankPath, n*8)
	if err != nil {
		return fmt.Errorf("pipeline: creating rank-map artifact: %w", err)
	}
	defer cleanupTemp(rankFile, opts.RetainRankMap)
	rankFile.AdviseHugePage()

	if err := stage(opts, "hasher", func() error {
		return runHasher(source, int(w), indexFile.Bytes(), workers)
	}); err != nil {
		return err
	}

	if err := stage(opts, "index-sort", func() error {
		return sortIndex(indexFile.Bytes(), threshold, workers)
	}); err != nil {
		return err
	}

	var counter parallel.Counter

	if err := stage(opts, "gather", func() error {
		return runGather(indexFile.Bytes(), updatesFile.Bytes(), &counter, workers)
	}); err != nil {
		return err
	}

	usedUpdates := int64(counter.Load())
	if err := updatesFile.Grow(usedUpdates * updateRecordSize); err != nil {
		return fmt.Errorf("pipeline: resizing update-log artifact: %w", err)
	}

	if err := stage(opts, "update-sort", func() error {
		return sortUpdates(updatesFile.Bytes(), threshold, workers)
	}); err != nil {
		return err
	}

	if err := stage(opts, "rank-init", func() error {
		return initRankMap(rankFile.Bytes(), workers)
	}); err != nil {
		return err
	}

	if err := stage(opts, "apply", func() error {
		return runApply(updatesFile.Bytes(), rankFile.Bytes(), workers)
	}); err != nil {
		return err
	}

	out, err := os.Create(sourcePath + ".zirka")
	if err != nil {
		return fmt.Errorf("pipeline: creating output: %w", err)
	}
	defer out.Close()

	if err := stage(opts, "encoder", func() error {
		return runEncoder(source, int(w), rankFile.Bytes(), out)
	}); err != nil {
		return err
	}

	return nil
}

// Restore runs the Restorer stage over the dedup-encoded stream at
// encodedPath, writing the reconstructed bytes to outputPath.
func Restore(encodedPath, outputPath string, opts Options) error {
	if opts.BlockSize <= 0 {
		return ErrInvalidBlockSize
	}

	in, err := os.Open(encodedPath)
	if err != nil {
		return fmt.Errorf("pipeline: opening encoded stream: %w", err)
	}
	defer in.Close()

	// Map empty and let runRestorer's own Grow(initialCapacity) — which
	// applies DefaultInitialCapacity when unset — perform the initial
	// sizing, so the starting capacity is resolved in one place.
	out, err := mmapio.Create(outputPath, 0)
	if err != nil {
		return fmt.Errorf("pipeline: creating output: %w", err)
	}

	var finalSize int64

	err = stage(opts, "restorer", func() error {
		var rerr error

		finalSize, rerr = runRestorer(in, opts.BlockSize, out, opts.InitialRestoreCapacity)

		return rerr
	})
	if err != nil {
		out.Close()
		out.Unlink()

		return err
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("pipeline: closing output: %w", err)
	}

	return os.Truncate(outputPath, finalSize)
}

func cleanupTemp(f *mmapio.File, retain bool) {
	f.Close()

	if !retain {
		f.Unlink()
	}
}
