package decode

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/statwatch-io/statwatch/internal/domain"
)

// The feed writes an ISO date and a 24-hour time separated by a variable
// run of spaces; both single and triple spacing occur in the wild.
var timestampRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+(\d{2}:\d{2}:\d{2})$`)

const timestampLayout = "2006-01-02 15:04:05"

// ParseTimestamp parses a payload timestamp. Values are always UTC; the feed
// carries no zone information. The returned identifier is derived from the
// parsed hour and minute, so the pair can never disagree.
func ParseTimestamp(s string) (time.Time, string, error) {
	m := timestampRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, "", fmt.Errorf("timestamp %q: %w", s, domain.ErrUnparseableTimestamp)
	}
	t, err := time.ParseInLocation(timestampLayout, m[1]+" "+m[2], time.UTC)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("timestamp %q: %w", s, domain.ErrUnparseableTimestamp)
	}
	return t, Ident(t.Hour(), t.Minute()), nil
}
