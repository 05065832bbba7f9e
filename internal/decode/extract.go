package decode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/statwatch-io/statwatch/internal/domain"
)

var (
	statrepRe  = regexp.MustCompile(`,(.+?)\{&%\}`)
	forwardRe  = regexp.MustCompile(`,(.+?)\{F%\}`)
	compact8Re = regexp.MustCompile(`(?i)F!304\s+(\d{8})(?:\s+(.*))?$`)
	compact9Re = regexp.MustCompile(`(?i)F!301\s+(\d{9})(?:\s+(.*))?$`)
	alertRe    = regexp.MustCompile(`(@[A-Za-z0-9]+)\s*,(.+?)\{%%\}`)
	messageRe  = regexp.MustCompile(`(?i)^([A-Za-z0-9/]+):\s+(@?[A-Za-z0-9/]+)\s+MSG\s+(.+)$`)

	bulletinSeqRe = regexp.MustCompile(`^\s*,(\d{3}),\s*`)
)

// Decode classifies a preprocessed frame and extracts its variant fields
// into a partially assembled record. Kind, From, Group and the variant
// payload are filled here; envelope identity, timestamps, locator fallback
// and status finalization are the coordinator's job. A frame whose
// recognized marker does not carry the fields the variant requires is a
// decode failure, never a silent reclassification.
func Decode(f domain.PreprocessedFrame) (*domain.Record, error) {
	rec := &domain.Record{Kind: Classify(f.Text), From: f.From}

	var err error
	switch rec.Kind {
	case domain.KindStatusReport:
		err = extractStatusReport(f, rec)
	case domain.KindForwardedReport:
		err = extractForwardedReport(f, rec)
	case domain.KindCompactReport8:
		err = extractCompact(f, rec, compact8Re, 8)
	case domain.KindCompactReport9:
		err = extractCompact(f, rec, compact9Re, 9)
	case domain.KindAlert:
		err = extractAlert(f, rec)
	case domain.KindBulletin:
		err = extractBulletin(f, rec)
	default:
		extractPlainMessage(f, rec)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// FinalizeStatus derives the status color once the locator outcome is
// settled. Compact codes are classified by digit sum, the scope digit
// excluded, and the result doubles as the overall condition. Full reports
// carry the sender's own overall digit and keep it.
func FinalizeStatus(rec *domain.Record) {
	sr := rec.StatusReport
	if sr == nil {
		return
	}
	switch rec.Kind {
	case domain.KindCompactReport8:
		sr.Status = ClassifyStatus(sr.Code, sr.Grid.Known())
		sr.Conditions.Overall = sr.Status.Digit()
	case domain.KindCompactReport9:
		sr.Status = ClassifyStatus(sr.Code[1:], sr.Grid.Known())
		sr.Conditions.Overall = sr.Status.Digit()
	default:
		sr.Status = domain.StatusColorFromDigit(sr.Conditions.Overall)
	}
}

// ExpandShorthand expands the '+' tail shorthand on a condition code: the
// unstated positions are padded with '1' up to the full 12 digits. Codes
// without the suffix pass through untouched; length validation belongs to
// the condition parser.
func ExpandShorthand(code string) string {
	code = strings.TrimSpace(code)
	if !strings.HasSuffix(code, "+") {
		return code
	}
	base := strings.TrimSuffix(code, "+")
	for len(base) < 12 {
		base += "1"
	}
	return base
}

func extractStatusReport(f domain.PreprocessedFrame, rec *domain.Record) error {
	fillRouting(f, rec)
	m := statrepRe.FindStringSubmatch(f.Text)
	if m == nil {
		return fmt.Errorf("status report without field block: %w", domain.ErrMalformedFrame)
	}
	sr, err := statusReportFields(splitFields(m[1]))
	if err != nil {
		return err
	}
	rec.StatusReport = sr
	return nil
}

func extractForwardedReport(f domain.PreprocessedFrame, rec *domain.Record) error {
	fillRouting(f, rec)
	m := forwardRe.FindStringSubmatch(f.Text)
	if m == nil {
		return fmt.Errorf("forwarded report without field block: %w", domain.ErrMalformedFrame)
	}
	fields := splitFields(m[1])
	if len(fields) < 5 {
		return fmt.Errorf("forwarded report carries %d of 5 required fields: %w", len(fields), domain.ErrMalformedFrame)
	}
	// The trailing field names the station whose status this is; the line's
	// sender is only the relay.
	origin := fields[len(fields)-1]
	sr, err := statusReportFields(fields[:len(fields)-1])
	if err != nil {
		return err
	}
	sr.ReportedBy = BaseCallsign(origin)
	rec.StatusReport = sr
	return nil
}

// statusReportFields assembles a StatusReport from the comma-separated
// block of a full report: grid, precedence, report id, 12-digit condition
// code, then an optional free-text comment that may itself contain commas.
func statusReportFields(fields []string) (*domain.StatusReport, error) {
	if len(fields) < 4 {
		return nil, fmt.Errorf("status report carries %d of 4 required fields: %w", len(fields), domain.ErrMalformedFrame)
	}
	code := ExpandShorthand(fields[3])
	cond, err := domain.ConditionsFromCode(code)
	if err != nil {
		return nil, fmt.Errorf("status report: %v: %w", err, domain.ErrMalformedFrame)
	}
	sr := &domain.StatusReport{
		Precedence: fields[1],
		ReportID:   fields[2],
		Code:       code,
		Conditions: cond,
		Comment:    strings.Join(fields[4:], ", "),
	}
	if grid := strings.TrimSpace(fields[0]); grid != "" {
		sr.Grid = NormalizeLocator(grid)
		sr.GridSource = domain.GridFromPayload
	}
	return sr, nil
}

func extractCompact(f domain.PreprocessedFrame, rec *domain.Record, re *regexp.Regexp, width int) error {
	fillRouting(f, rec)
	m := re.FindStringSubmatch(f.Text)
	if m == nil {
		return fmt.Errorf("compact report code is not exactly %d digits: %w", width, domain.ErrMalformedFrame)
	}
	digits, remainder := m[1], strings.TrimSpace(m[2])

	sr := &domain.StatusReport{Code: digits}
	scored := digits
	if width == 9 {
		// The leading digit is the scope: 1 for the operator's own
		// location, 2 for the surrounding community.
		sr.Precedence = digits[:1]
		scored = digits[1:]
	} else {
		sr.Precedence = "1"
	}
	sr.Conditions = compactConditions(scored)

	if idx := locatorRe.FindStringIndex(remainder); idx != nil {
		sr.Grid = domain.Locator(strings.ToUpper(remainder[idx[0]:idx[1]]))
		sr.GridSource = domain.GridFromPayload
		sr.Comment = strings.TrimSpace(remainder[:idx[0]] + remainder[idx[1]:])
	} else {
		sr.Comment = remainder
	}
	rec.StatusReport = sr
	return nil
}

// compactConditions spreads the 8 scored digits of a compact code onto the
// full condition set: four category scores (comms, medical, security,
// travel), then dedicated power, water, food and fuel digits. Categories
// the compact form cannot carry are marked not-reported. Overall is filled
// once the status color is final.
func compactConditions(d string) domain.Conditions {
	return domain.Conditions{
		Overall:   domain.NotReported,
		Comms:     d[0:1],
		Medical:   d[1:2],
		Crime:     d[2:3],
		Travel:    d[3:4],
		Power:     d[4:5],
		Water:     d[5:6],
		Food:      d[6:7],
		Fuel:      d[7:8],
		Internet:  domain.NotReported,
		Civil:     domain.NotReported,
		Political: domain.NotReported,
	}
}

func extractAlert(f domain.PreprocessedFrame, rec *domain.Record) error {
	fillRouting(f, rec)
	m := alertRe.FindStringSubmatch(f.Text)
	if m == nil {
		return fmt.Errorf("alert without target block: %w", domain.ErrMalformedFrame)
	}
	parts := strings.SplitN(m[2], ",", 3)
	if len(parts) < 3 {
		return fmt.Errorf("alert carries %d of 3 required fields: %w", len(parts), domain.ErrMalformedFrame)
	}
	sev, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || sev < 1 || sev > 3 {
		return fmt.Errorf("alert severity %q outside 1..3: %w", strings.TrimSpace(parts[0]), domain.ErrMalformedFrame)
	}
	target := strings.TrimSpace(m[1])
	rec.Group = domain.NormalizeGroup(target)
	rec.Alert = &domain.Alert{
		Target:   target,
		Severity: sev,
		Title:    strings.TrimSpace(parts[1]),
		Body:     strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(parts[2]), ",")),
	}
	return nil
}

func extractBulletin(f domain.PreprocessedFrame, rec *domain.Record) error {
	m := messageRe.FindStringSubmatch(f.Text)
	if m == nil {
		return fmt.Errorf("bulletin without routing prefix: %w", domain.ErrMalformedFrame)
	}
	if rec.From == "" {
		rec.From = BaseCallsign(m[1])
	}
	if strings.HasPrefix(m[2], "@") {
		rec.Group = domain.NormalizeGroup(m[2])
	}

	body := strings.TrimSpace(m[3])
	seq := 0
	if sm := bulletinSeqRe.FindStringSubmatch(body); sm != nil {
		seq, _ = strconv.Atoi(sm[1])
		body = body[len(sm[0]):]
	}
	body = strings.ReplaceAll(body, ","+markerBulletin, "")
	body = strings.ReplaceAll(body, markerBulletin, "")
	rec.Message = &domain.Message{Body: strings.TrimSpace(body), BulletinSeq: seq}
	return nil
}

// extractPlainMessage is the catch-all: a well-formed directed message
// yields its text after the MSG keyword, anything else is archived as
// free-form text so no traffic is dropped on shape alone.
func extractPlainMessage(f domain.PreprocessedFrame, rec *domain.Record) {
	if m := messageRe.FindStringSubmatch(f.Text); m != nil {
		if rec.From == "" {
			rec.From = BaseCallsign(m[1])
		}
		if strings.HasPrefix(m[2], "@") {
			rec.Group = domain.NormalizeGroup(m[2])
		}
		rec.Message = &domain.Message{Body: strings.TrimSpace(m[3])}
		return
	}
	if from, target, rest, ok := ParseRouting(f.Text); ok {
		if rec.From == "" {
			rec.From = BaseCallsign(from)
		}
		if strings.HasPrefix(target, "@") {
			rec.Group = domain.NormalizeGroup(target)
		}
		rec.Message = &domain.Message{Body: strings.TrimSpace(rest)}
		return
	}
	rec.Message = &domain.Message{Body: strings.TrimSpace(f.Text)}
}

func fillRouting(f domain.PreprocessedFrame, rec *domain.Record) {
	from, target, _, ok := ParseRouting(f.Text)
	if !ok {
		return
	}
	if rec.From == "" {
		rec.From = BaseCallsign(from)
	}
	if strings.HasPrefix(target, "@") {
		rec.Group = domain.NormalizeGroup(target)
	}
}

// splitFields splits a marker's inner block on commas, trims each field and
// drops trailing empties left by the closing separator.
func splitFields(inner string) []string {
	fields := strings.Split(inner, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}
