package fields

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// dateLayouts are tried in order when normalizing date values. The first
// layout that parses wins, so the unambiguous ISO form is always first.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"01-02-2006",
	"02.01.2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// stripMarks removes combining marks after NFD decomposition, so accented
// letters compare equal to their base form ("José" vs "Jose").
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var (
	nonAlnum  = regexp.MustCompile(`[^A-Z0-9]+`)
	nonDigit  = regexp.MustCompile(`\D`)
	numberFmt = regexp.MustCompile(`[$,\s]`)
)

// Normalize converts a raw extracted value into the canonical comparison
// form for the field's semantic kind. Two observations agree exactly when
// their normalized forms are equal; the raw value is preserved elsewhere
// for display.
func Normalize(id ID, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	switch KindOf(id) {
	case KindDate:
		return normalizeDate(value)
	case KindName:
		return normalizeName(value)
	case KindIdentifier:
		return nonAlnum.ReplaceAllString(strings.ToUpper(value), "")
	case KindPhone:
		return nonDigit.ReplaceAllString(value, "")
	case KindEmail:
		return strings.ToLower(value)
	case KindNumber, KindCurrency:
		return numberFmt.ReplaceAllString(value, "")
	case KindBoolean:
		return normalizeBool(value)
	default:
		return collapseSpace(strings.ToLower(value))
	}
}

// Equivalent reports whether two raw values agree for the given field,
// comparing by the field's semantic type (dates by calendar date, names
// case- and accent-insensitively, and so on).
func Equivalent(id ID, a, b string) bool {
	return Normalize(id, a) == Normalize(id, b)
}

func normalizeDate(value string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02")
		}
	}
	// Unparseable dates fall back to text comparison rather than failing:
	// uncertainty is data, not an error.
	return collapseSpace(strings.ToLower(value))
}

func normalizeName(value string) string {
	if stripped, _, err := transform.String(stripMarks, value); err == nil {
		value = stripped
	}
	return collapseSpace(strings.ToLower(value))
}

func normalizeBool(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "y", "1", "checked":
		return "true"
	case "false", "no", "n", "0", "unchecked":
		return "false"
	default:
		return strings.ToLower(value)
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Value-shape validators, used by the fill report and the CLI to sanity
// check reconciled values against a target field's declared kind.

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	currencyPattern = regexp.MustCompile(`^\$?[\d,]+\.?\d{0,2}$`)
	numberPattern   = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// ValidForKind reports whether a raw value is shaped like the given kind.
// Text-like kinds accept anything non-empty.
func ValidForKind(k Kind, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}

	switch k {
	case KindEmail:
		return emailPattern.MatchString(value)
	case KindPhone:
		digits := nonDigit.ReplaceAllString(value, "")
		return len(digits) >= 7 && len(digits) <= 15
	case KindDate:
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, value); err == nil {
				return true
			}
		}
		return false
	case KindNumber:
		return numberPattern.MatchString(numberFmt.ReplaceAllString(value, ""))
	case KindCurrency:
		return currencyPattern.MatchString(strings.ReplaceAll(value, " ", ""))
	case KindBoolean:
		n := normalizeBool(value)
		return n == "true" || n == "false"
	default:
		return true
	}
}
