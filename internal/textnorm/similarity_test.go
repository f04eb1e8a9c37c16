package textnorm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiceSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"검색 결과를 정리하고 있습니다.", "검색 결과를 검토하고 있습니다."},
		{"night", "nacht"},
		{"a", "ab"},
		{"", "anything"},
		{"https://example.com hello", "hello"},
		{"aaaa", "aa"},
	}
	for _, pair := range pairs {
		require.InDelta(t, DiceSimilarity(pair[0], pair[1]), DiceSimilarity(pair[1], pair[0]), 1e-12, "%q vs %q", pair[0], pair[1])
	}
}

func TestDiceSimilarityIdentity(t *testing.T) {
	for _, s := range []string{"x", "Hello", "웹검색을 실행합니다", "!!!", "v1.2 release"} {
		require.Equal(t, 1.0, DiceSimilarity(s, s), s)
	}
	require.Equal(t, 0.0, DiceSimilarity("", ""))
}

func TestDiceSimilarityKnownValue(t *testing.T) {
	// night: ni ig gh ht, nacht: na ac ch ht -> 1 shared bigram
	require.InDelta(t, 0.25, DiceSimilarity("night", "nacht"), 1e-9)
}

func TestIsNearDuplicateUsesRecentWindow(t *testing.T) {
	history := []string{
		"웹검색을 실행하고 있습니다.",
		"one", "two", "three", "four", "five", "six",
	}

	require.False(t, IsNearDuplicate("웹검색을 실행하고 있습니다!", history), "line outside the window must not match")
	require.True(t, IsNearDuplicate("six", history))
	require.False(t, IsNearDuplicate("completely different", nil))
}
