package fingerprint_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"zirka/internal/fingerprint"
)

func TestSum_Deterministic_Across_Calls(t *testing.T) {
	block := []byte("ABCDABCDABCDABCDABCDABCDABCDABCD")

	a := fingerprint.Sum(block)
	b := fingerprint.Sum(block)

	require.Equal(t, a, b)
}

func TestSum_Differs_For_Different_Blocks(t *testing.T) {
	a := fingerprint.Sum([]byte("ABCDABCD"))
	b := fingerprint.Sum([]byte("DCBADCBA"))

	require.NotEqual(t, a, b)
}

func TestSum_Differs_By_Length_Even_With_Same_Prefix(t *testing.T) {
	a := fingerprint.Sum([]byte("ABCD"))
	b := fingerprint.Sum([]byte("ABCDEFGH")[:4])

	require.Equal(t, a, b, "identical byte content and length must hash identically")

	c := fingerprint.Sum([]byte("ABCDEFGH"))
	require.NotEqual(t, a, c)
}

func TestVerify_Deterministic_And_Distinguishing(t *testing.T) {
	v0 := fingerprint.Verify(0)
	v1 := fingerprint.Verify(1)
	v0Again := fingerprint.Verify(0)

	require.Equal(t, v0, v0Again)
	require.NotEqual(t, v0, v1)
}
