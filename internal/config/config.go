// Package config loads the optional on-disk settings file that pins block
// size, worker count, and temp-artifact retention policy for the zirka
// binaries, so a project can check in a commented .hujson file instead of
// repeating flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/tailscale/hujson"
)

// Options controls a single encode or restore run.
type Options struct {
	// BlockSize is the deduplication granularity in bytes (W in the wire
	// format). Zero is invalid and rejected by Validate; Load itself does
	// not check it.
	BlockSize int `json:"blockSize"`

	// Workers is the worker-pool size; zero means runtime.GOMAXPROCS(0).
	Workers int `json:"workers"`

	// TempDir overrides the directory used for the index, update, and
	// rank-map temp artifacts; empty means alongside the source file.
	TempDir string `json:"tempDir"`

	// RetainIndex keeps zirka_index.tmp after a successful encode instead
	// of unlinking it.
	RetainIndex bool `json:"retainIndex"`

	// RetainRankMap keeps zirka_rank.tmp after a successful encode instead
	// of unlinking it.
	RetainRankMap bool `json:"retainRankMap"`

	// InitialRestoreCapacity is the restorer's output mapping's starting
	// size in bytes, before the doubling-growth scheme kicks in. Zero
	// means pipeline.DefaultInitialCapacity.
	InitialRestoreCapacity int64 `json:"-"`
}

// Default returns the zero-config defaults: 4 KiB blocks, GOMAXPROCS
// workers, temp artifacts alongside the source file, nothing retained.
func Default() Options {
	return Options{
		BlockSize: 4096,
	}
}

// Load reads a hujson (JSON-with-comments) config file at path and merges
// it onto Default(). A missing file is not an error; Load returns the
// defaults unchanged, matching the "config file is optional" CLI contract.
func Load(path string) (Options, error) {
	opts := Default()

	if path == "" {
		return opts, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}

		return opts, fmt.Errorf("config: reading %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return opts, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := json.Unmarshal(standardized, &opts); err != nil {
		return opts, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	return opts, nil
}

// ResolvedWorkers returns o.Workers if set, else runtime.GOMAXPROCS(0).
func (o Options) ResolvedWorkers() int {
	if o.Workers > 0 {
		return o.Workers
	}

	return runtime.GOMAXPROCS(0)
}

// Validate checks the fields that must hold before a run starts.
func (o Options) Validate() error {
	if o.BlockSize <= 0 {
		return fmt.Errorf("config: blockSize must be positive, got %d", o.BlockSize)
	}

	return nil
}
