package matching

import (
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Similarity scores two canonical names on a 0-100 scale using Levenshtein
// edit distance: 100 * (maxLen - distance) / maxLen. Symmetric, and 100 for
// identical inputs. It ranks candidates only; it is never the sole decision
// criterion.
func Similarity(a, b string) int {
	if a == b {
		return 100
	}

	maxLen := utf8.RuneCountInString(a)
	if l := utf8.RuneCountInString(b); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 100
	}

	distance := fuzzy.LevenshteinDistance(a, b)
	if distance > maxLen {
		distance = maxLen
	}
	return 100 * (maxLen - distance) / maxLen
}
