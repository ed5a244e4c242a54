package pipeline_test

import (
	"bytes"
	"crypto/sha256"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"zirka/internal/pipeline"
)

func writeSource(t *testing.T, dir string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, "source.bin")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	return path
}

func encodeAndRestore(t *testing.T, content []byte, blockSize int) []byte {
	t.Helper()

	dir := t.TempDir()
	sourcePath := writeSource(t, dir, content)

	require.NoError(t, pipeline.Encode(sourcePath, pipeline.Options{
		BlockSize:     blockSize,
		Workers:       2,
		SortThreshold: 4,
	}))

	encodedPath := sourcePath + ".zirka"
	_, err := os.Stat(encodedPath)
	require.NoError(t, err)

	outputPath := filepath.Join(dir, "restored.bin")
	require.NoError(t, pipeline.Restore(encodedPath, outputPath, pipeline.Options{
		BlockSize:              blockSize,
		Workers:                2,
		InitialRestoreCapacity: 64,
	}))

	restored, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	return restored
}

// Property 1: round-trip identity.
func TestRoundTrip_Identity(t *testing.T) {
	cases := map[string][]byte{
		"empty":           {},
		"shorter_than_w":  []byte("ab"),
		"exactly_w":       []byte("ABCD"),
		"ABCDABCD":        []byte("ABCDABCD"),
		"ABCDEABCD":       []byte("ABCDEABCD"),
		"all_zero_8k":     bytes.Repeat([]byte{0}, 8192),
		"random_no_dups":  randomBytes(t, 5000, 1),
		"random_doubled":  doubled(randomBytes(t, 4096, 2)),
		"magic_then_rand": append(bytes.Repeat([]byte{0xFF}, 64), randomBytes(t, 4096, 3)...),
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			restored := encodeAndRestore(t, content, 4)

			require.Equal(t, sha256.Sum256(content), sha256.Sum256(restored))
			require.True(t, bytes.Equal(content, restored))
		})
	}
}

// S1 from the scenario table: "ABCDABCD", W=4, one tag pointing at offset 0.
func TestScenario_S1_RepeatedBlock(t *testing.T) {
	dir := t.TempDir()
	sourcePath := writeSource(t, dir, []byte("ABCDABCD"))

	require.NoError(t, pipeline.Encode(sourcePath, pipeline.Options{BlockSize: 4, Workers: 1}))

	encoded, err := os.ReadFile(sourcePath + ".zirka")
	require.NoError(t, err)

	require.Equal(t, []byte("ABCD"), encoded[:4])
	require.Equal(t, byte(0xFF), encoded[4])
	require.Len(t, encoded, 4+13)

	restored := encodeAndRestore(t, []byte("ABCDABCD"), 4)
	require.Equal(t, "ABCDABCD", string(restored))
}

// S2: "ABCDEABCD", W=4, block at position 5 matches position 0.
func TestScenario_S2_OffsetMatch(t *testing.T) {
	restored := encodeAndRestore(t, []byte("ABCDEABCD"), 4)
	require.Equal(t, "ABCDEABCD", string(restored))
}

// S3: two MiB of random bytes concatenated with itself.
func TestScenario_S3_LargeDuplicateHalf(t *testing.T) {
	if testing.Short() {
		t.Skip("large fixture, skipped in -short")
	}

	half := randomBytes(t, 2<<20, 7)
	content := append(append([]byte{}, half...), half...)

	restored := encodeAndRestore(t, content, 4096)
	require.True(t, bytes.Equal(content, restored))
}

// S4: single byte 0xFF, not enough trailing bytes for a tag.
func TestScenario_S4_SingleMagicByte(t *testing.T) {
	dir := t.TempDir()
	sourcePath := writeSource(t, dir, []byte{0xFF})

	require.NoError(t, pipeline.Encode(sourcePath, pipeline.Options{BlockSize: 4, Workers: 1}))

	encoded, err := os.ReadFile(sourcePath + ".zirka")
	require.NoError(t, err)
	require.Equal(t, []byte{0xFF}, encoded)

	restored := encodeAndRestore(t, []byte{0xFF}, 4)
	require.Equal(t, []byte{0xFF}, restored)
}

// S5: a MAGIC byte followed by a forged target/check that does not verify;
// treated as 13 literal bytes both ways.
func TestScenario_S5_ForgedTagFailsVerification(t *testing.T) {
	content := []byte{0xFF, 0, 0, 0, 0, 0, 0, 0, 0, 0xDE, 0xAD, 0xBE, 0xEF}
	restored := encodeAndRestore(t, content, 4)
	require.Equal(t, content, restored)
}

// S6: two 4 KiB zero blocks with W = 4096.
func TestScenario_S6_LargeBlockSize(t *testing.T) {
	content := append(bytes.Repeat([]byte{0}, 4096), bytes.Repeat([]byte{0}, 4096)...)

	dir := t.TempDir()
	sourcePath := writeSource(t, dir, content)

	require.NoError(t, pipeline.Encode(sourcePath, pipeline.Options{BlockSize: 4096, Workers: 1}))

	encoded, err := os.ReadFile(sourcePath + ".zirka")
	require.NoError(t, err)
	require.Len(t, encoded, 4096+13)

	restored := encodeAndRestore(t, content, 4096)
	require.True(t, bytes.Equal(content, restored))
}

// Property 6: MAGIC-safe literal on a mixed magic/random payload.
func TestProperty_MagicSafeLiteral(t *testing.T) {
	if testing.Short() {
		t.Skip("large fixture, skipped in -short")
	}

	content := append(bytes.Repeat([]byte{0xFF}, 10<<20), randomBytes(t, 10<<20, 11)...)

	restored := encodeAndRestore(t, content, 4096)
	require.True(t, bytes.Equal(content, restored))
}

// Property 2: on data with no duplicate blocks, the encoded stream is
// exactly the source with no tags emitted.
func TestProperty_EncoderIdempotentOnUniqueData(t *testing.T) {
	content := randomBytes(t, 10000, 42)

	dir := t.TempDir()
	sourcePath := writeSource(t, dir, content)

	require.NoError(t, pipeline.Encode(sourcePath, pipeline.Options{BlockSize: 4, Workers: 2}))

	encoded, err := os.ReadFile(sourcePath + ".zirka")
	require.NoError(t, err)
	require.Equal(t, content, encoded)
}

func randomBytes(t *testing.T, n int, seed int64) []byte {
	t.Helper()

	r := rand.New(rand.NewSource(seed))
	buf := make([]byte, n)
	_, err := r.Read(buf)
	require.NoError(t, err)

	return buf
}

func doubled(b []byte) []byte {
	return append(append([]byte{}, b...), b...)
}
