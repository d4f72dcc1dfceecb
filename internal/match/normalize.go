package match

import (
	"strings"
	"unicode"
)

// asciiFold maps the Latin diacritics that show up in serial-number and
// engraving transcriptions to their ASCII base. Anything not covered and not
// ASCII is dropped rather than guessed.
var asciiFold = map[rune]rune{
	'à': 'a', 'á': 'a', 'â': 'a', 'ã': 'a', 'ä': 'a', 'å': 'a',
	'ç': 'c', 'č': 'c', 'ć': 'c',
	'è': 'e', 'é': 'e', 'ê': 'e', 'ë': 'e', 'ę': 'e',
	'ì': 'i', 'í': 'i', 'î': 'i', 'ï': 'i',
	'ł': 'l',
	'ñ': 'n', 'ń': 'n',
	'ò': 'o', 'ó': 'o', 'ô': 'o', 'õ': 'o', 'ö': 'o', 'ø': 'o',
	'ś': 's', 'š': 's',
	'ù': 'u', 'ú': 'u', 'û': 'u', 'ü': 'u',
	'ý': 'y', 'ÿ': 'y',
	'ż': 'z', 'ź': 'z', 'ž': 'z',
}

// Normalize canonicalizes an identifying fingerprint: lower-cased,
// ASCII-folded, internal whitespace collapsed to nothing. An empty result
// means the item carries no usable identity signal and is skipped by the
// matcher.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		if unicode.IsSpace(r) {
			continue
		}
		if folded, ok := asciiFold[r]; ok {
			r = folded
		}
		if r > unicode.MaxASCII {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// withinDistanceOne reports whether two strings are within edit distance 1
// (insert, delete, or substitute). Linear scan; both inputs are normalized
// fingerprints so no case handling is needed here.
func withinDistanceOne(a, b string) bool {
	if a == b {
		return true
	}
	la, lb := len(a), len(b)
	if la > lb {
		a, b, la, lb = b, a, lb, la
	}
	if lb-la > 1 {
		return false
	}
	if la == lb {
		// Exactly one substitution allowed.
		diff := 0
		for i := 0; i < la; i++ {
			if a[i] != b[i] {
				diff++
				if diff > 1 {
					return false
				}
			}
		}
		return true
	}
	// One insertion into the shorter string.
	i, j := 0, 0
	skipped := false
	for i < la && j < lb {
		if a[i] == b[j] {
			i++
			j++
			continue
		}
		if skipped {
			return false
		}
		skipped = true
		j++
	}
	return true
}
