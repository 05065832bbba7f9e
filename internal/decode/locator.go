package decode

import (
	"regexp"
	"strings"

	"github.com/statwatch-io/statwatch/internal/domain"
)

// A Maidenhead square is two letters, two digits and an optional two-letter
// subsquare. Matching is deliberately unanchored: embedded candidates such
// as the tail of a longer token still count, which mirrors how operators
// actually pack grids into comments.
var (
	locatorRe      = regexp.MustCompile(`[A-Za-z]{2}[0-9]{2}(?:[A-Za-z]{2})?`)
	locatorExactRe = regexp.MustCompile(`^[A-Za-z]{2}[0-9]{2}(?:[A-Za-z]{2})?$`)
)

// FindLocator scans text for the first grid square and returns it
// uppercased.
func FindLocator(text string) (domain.Locator, bool) {
	m := locatorRe.FindString(text)
	if m == "" {
		return "", false
	}
	return domain.Locator(strings.ToUpper(m)), true
}

// ExtractLocator resolves a locator with a fallback chain: first match in
// the text, then the caller-supplied fallback, then the explicit unknown
// marker. Absence is a normal outcome, never an error.
func ExtractLocator(text string, fallback domain.Locator) domain.Locator {
	if loc, ok := FindLocator(text); ok {
		return loc
	}
	if fallback.Known() {
		return NormalizeLocator(string(fallback))
	}
	return domain.UnknownLocator
}

// NormalizeLocator uppercases and trims a grid square.
func NormalizeLocator(s string) domain.Locator {
	return domain.Locator(strings.ToUpper(strings.TrimSpace(s)))
}

// ValidLocator reports whether s is exactly a 4- or 6-character grid square.
func ValidLocator(s string) bool {
	return locatorExactRe.MatchString(s)
}
