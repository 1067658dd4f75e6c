package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Honorifics and generational suffixes carry no identity signal in spoken
// transcripts, so they are dropped from the canonical key.
var affixes = map[string]struct{}{
	"mr":   {},
	"mrs":  {},
	"ms":   {},
	"dr":   {},
	"prof": {},
	"sir":  {},
	"jr":   {},
	"sr":   {},
	"ii":   {},
	"iii":  {},
	"iv":   {},
}

var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var titleCaser = cases.Title(language.Und)

// Normalize canonicalizes a raw name for comparison: diacritics folded,
// lower-cased, punctuation stripped, whitespace collapsed, honorifics
// removed. Returns "" for input with no usable characters; callers must
// reject an empty key rather than match on it.
func Normalize(raw string) string {
	folded, _, err := transform.String(foldMarks, raw)
	if err != nil {
		folded = raw
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '\'' || r == '.':
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, drop := affixes[tok]; drop {
			continue
		}
		kept = append(kept, tok)
	}

	return strings.Join(kept, " ")
}

// DisplayName renders a canonical key back into a presentable title-cased
// form ("john smith" -> "John Smith").
func DisplayName(canonical string) string {
	return titleCaser.String(canonical)
}

// HasSurname reports whether the canonical key carries more than one token.
// Single-token mentions ("Scott") are weaker identity evidence.
func HasSurname(canonical string) bool {
	return strings.ContainsRune(canonical, ' ')
}
