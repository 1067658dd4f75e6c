package matching

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimilarity_Identical(t *testing.T) {
	require.Equal(t, 100, Similarity("john smith", "john smith"))
	require.Equal(t, 100, Similarity("", ""))
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"john smith", "jon smith"},
		{"owen glassburn", "owen glass burner"},
		{"maria", "mario"},
	}
	for _, p := range pairs {
		require.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]))
	}
}

func TestSimilarity_Scale(t *testing.T) {
	// one substitution over ten runes
	require.Equal(t, 90, Similarity("john smith", "joan smith"))

	// disjoint strings bottom out at zero
	require.Equal(t, 0, Similarity("abc", "xyz"))

	// one side empty: distance equals the other side's length
	require.Equal(t, 0, Similarity("john", ""))
}

func TestSimilarity_CloseVariants(t *testing.T) {
	require.Greater(t, Similarity("owen glassburn", "owen glass burner"), 80)
	require.Greater(t, Similarity("jon davis", "jon davies"), 80)
	require.Less(t, Similarity("jon davis", "pete alvarez"), 50)
}
