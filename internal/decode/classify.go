package decode

import (
	"strings"

	"github.com/statwatch-io/statwatch/internal/domain"
)

// Wire markers are fixed legacy literals and must be matched exactly as
// transmitted. The brace markers are case-sensitive; the compact tokens are
// not, because operators key them by hand.
const (
	markerStatusReport    = "{&%}"
	markerForwardedReport = "{F%}"
	markerAlert           = "{%%}"
	markerBulletin        = "{^%}"
	tokenCompact8         = "F!304"
	tokenCompact9         = "F!301"
)

// Classify determines the message variant of a preprocessed line. Dispatch
// is an explicit ordered chain and the final arm is a catch-all, so every
// input classifies to exactly one variant. Order matters: a forwarded
// report quotes the standard marker's fields, and the compact tokens can
// appear inside ordinary chatter that also carries a brace marker.
func Classify(text string) domain.VariantKind {
	upper := strings.ToUpper(text)
	switch {
	case strings.Contains(text, markerStatusReport):
		return domain.KindStatusReport
	case strings.Contains(text, markerForwardedReport):
		return domain.KindForwardedReport
	case strings.Contains(upper, tokenCompact8):
		return domain.KindCompactReport8
	case strings.Contains(upper, tokenCompact9):
		return domain.KindCompactReport9
	case strings.Contains(text, markerAlert):
		return domain.KindAlert
	case strings.Contains(text, markerBulletin):
		return domain.KindBulletin
	default:
		return domain.KindPlainMessage
	}
}
