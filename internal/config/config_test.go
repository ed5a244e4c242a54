package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"zirka/internal/config"
)

func TestDefault_HasPositiveBlockSize(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}

func TestLoad_MissingFile_ReturnsDefaults(t *testing.T) {
	opts, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.hujson"))
	require.NoError(t, err)
	require.Equal(t, config.Default(), opts)
}

func TestLoad_EmptyPath_ReturnsDefaults(t *testing.T) {
	opts, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, config.Default(), opts)
}

func TestLoad_ParsesHujsonWithCommentsAndTrailingCommas(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zirka.hujson")

	content := `{
  // block size in bytes
  "blockSize": 8192,
  "workers": 4,
  "tempDir": "/tmp/zirka-work",
  "retainIndex": true,
  "retainRankMap": false,
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	opts, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, 8192, opts.BlockSize)
	require.Equal(t, 4, opts.Workers)
	require.Equal(t, "/tmp/zirka-work", opts.TempDir)
	require.True(t, opts.RetainIndex)
	require.False(t, opts.RetainRankMap)
}

func TestLoad_MalformedFile_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zirka.hujson")

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestResolvedWorkers_ZeroFallsBackToGOMAXPROCS(t *testing.T) {
	opts := config.Default()
	require.Greater(t, opts.ResolvedWorkers(), 0)
}

func TestValidate_RejectsNonPositiveBlockSize(t *testing.T) {
	opts := config.Default()
	opts.BlockSize = 0
	require.Error(t, opts.Validate())

	opts.BlockSize = -1
	require.Error(t, opts.Validate())
}
