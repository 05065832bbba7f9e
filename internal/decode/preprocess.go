// Package decode implements the wire-format decoding pipeline for directed
// JS8Call traffic: frame preprocessing, variant classification and per-variant
// field extraction. Everything in this package is a pure function; the only
// state is a set of compiled patterns.
package decode

import (
	"regexp"
	"strings"

	"github.com/statwatch-io/statwatch/internal/domain"
)

var (
	dupPrefixRe = regexp.MustCompile(`^([A-Za-z0-9/]+):\s*([A-Za-z0-9/]+):\s+(.*)$`)
	routingRe   = regexp.MustCompile(`^([A-Za-z0-9/]+):\s+(@?[A-Za-z0-9/]+)\s*(.*)$`)
)

// Preprocess applies the duplicate-prefix repair and ASCII sanitization to a
// raw frame. The sender callsign is taken from the transport metadata when
// present, otherwise from the line's routing prefix. Pure and idempotent.
func Preprocess(raw domain.RawFrame) domain.PreprocessedFrame {
	text := StripDuplicateCallsign(strings.TrimSpace(raw.Text), raw.From)
	text = Sanitize(text)

	from := BaseCallsign(raw.From)
	if from == "" {
		if f, _, _, ok := ParseRouting(text); ok {
			from = BaseCallsign(f)
		}
	}
	return domain.PreprocessedFrame{Raw: raw, Text: text, From: from}
}

// StripDuplicateCallsign collapses the doubled sender prefix the upstream
// client sometimes emits ("W8APP: W8APP: ..." becomes "W8APP: ..."). The
// repair only fires when both leading tokens resolve to the same base
// callsign (operator suffixes ignored), and, when the transport supplied a
// sender, when they match it too. Distinct tokens are never collapsed.
func StripDuplicateCallsign(line, from string) string {
	m := dupPrefixRe.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	first, second := BaseCallsign(m[1]), BaseCallsign(m[2])
	if first == "" || !strings.EqualFold(first, second) {
		return line
	}
	if from != "" && !strings.EqualFold(first, BaseCallsign(from)) {
		return line
	}
	return m[1] + ": " + m[3]
}

// Sanitize removes every code point outside the printable ASCII range.
// Dropped characters are not replaced, so sanitizing twice equals
// sanitizing once.
func Sanitize(s string) string {
	if !strings.ContainsFunc(s, isNonPrintable) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !isNonPrintable(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isNonPrintable(r rune) bool {
	return r < 0x20 || r > 0x7E
}

// BaseCallsign strips an operator suffix ("/P", "/M", "/QRP") from a
// callsign token.
func BaseCallsign(call string) string {
	call = strings.TrimSpace(call)
	if i := strings.IndexByte(call, '/'); i >= 0 {
		return call[:i]
	}
	return call
}

// ParseRouting splits a "SENDER: TARGET rest" line into its parts. The
// target keeps its leading '@' when present.
func ParseRouting(text string) (from, target, rest string, ok bool) {
	m := routingRe.FindStringSubmatch(text)
	if m == nil {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}
