// Package textutil provides the string-similarity primitives shared by the
// clustering and form-mapping engines. All scores are in [0, 1].
package textutil

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// NormalizeLabel lowercases a label and collapses punctuation, underscores,
// camelCase boundaries, and runs of whitespace into single spaces, so that
// "firstName", "first_name", and "First Name" all normalize identically.
func NormalizeLabel(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)

	runes := []rune(s)
	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				b.WriteByte(' ')
			}
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Ratio returns the normalized Levenshtein similarity of two strings.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// PartialRatio returns the best Ratio of the shorter string against any
// equally sized window of the longer string.
func PartialRatio(a, b string) float64 {
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		return 1
	}

	best := 0.0
	for i := 0; i+len(shorter) <= len(longer); i++ {
		r := Ratio(string(shorter), string(longer[i:i+len(shorter)]))
		if r > best {
			best = r
		}
	}
	return best
}

// TokenSortRatio compares the two strings with their tokens sorted, so word
// order does not matter.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortTokens(a), sortTokens(b))
}

// Similarity is the label similarity used for fuzzy name and form label
// matching: the best of the full, partial, and token-sort Levenshtein
// ratios over normalized labels. Taking the best of the three lets each
// ratio cover the failure mode of the others: partial handles substring
// labels ("first name" vs "applicant first name") and token-sort handles
// reordered ones ("Doe Jane" vs "Jane Doe").
func Similarity(a, b string) float64 {
	na, nb := NormalizeLabel(a), NormalizeLabel(b)
	if na == nb {
		return 1
	}
	return max(Ratio(na, nb), PartialRatio(na, nb), TokenSortRatio(na, nb))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
