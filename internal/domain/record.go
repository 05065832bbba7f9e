package domain

import (
	"fmt"
	"strings"
	"time"
)

// VariantKind identifies which of the seven wire-format shapes a frame
// decoded into. Exactly one kind is assigned per frame.
type VariantKind string

const (
	KindStatusReport    VariantKind = "statrep"
	KindForwardedReport VariantKind = "statrep_forwarded"
	KindCompactReport8  VariantKind = "statrep_f304"
	KindCompactReport9  VariantKind = "statrep_f301"
	KindAlert           VariantKind = "alert"
	KindBulletin        VariantKind = "bulletin"
	KindPlainMessage    VariantKind = "message"
)

// StatusColor is the tri-state severity classification plus the unknown
// state used when a report carries no usable locator.
type StatusColor string

const (
	StatusGreen   StatusColor = "green"
	StatusYellow  StatusColor = "yellow"
	StatusRed     StatusColor = "red"
	StatusUnknown StatusColor = "unknown"
)

// Digit returns the legacy single-digit encoding stored in the archive's
// status column: green=1, yellow=2, red=3, unknown=4.
func (s StatusColor) Digit() string {
	switch s {
	case StatusGreen:
		return "1"
	case StatusYellow:
		return "2"
	case StatusRed:
		return "3"
	default:
		return "4"
	}
}

// StatusColorFromDigit is the inverse of Digit. Any digit outside 1..3 maps
// to unknown.
func StatusColorFromDigit(d string) StatusColor {
	switch d {
	case "1":
		return StatusGreen
	case "2":
		return StatusYellow
	case "3":
		return StatusRed
	default:
		return StatusUnknown
	}
}

// Locator is a Maidenhead grid square (4 or 6 characters, uppercase), or the
// explicit unknown marker. An empty Locator means "not yet resolved".
type Locator string

// UnknownLocator marks a record whose position could not be determined from
// either the payload or the lookup collaborator.
const UnknownLocator Locator = "unknown"

// Known reports whether l carries an actual grid square.
func (l Locator) Known() bool {
	return l != "" && l != UnknownLocator
}

// Grid source values for StatusReport.GridSource.
const (
	GridFromPayload = "payload"
	GridFromLookup  = "lookup"
	GridUnknown     = "unknown"
)

// Conditions holds the twelve per-category severity digits of a full status
// report, in the archive's column order. Digits 0-3 are severities; anything
// above 3 means the category was not reported.
type Conditions struct {
	Overall   string `json:"status"`
	Power     string `json:"commpwr"`
	Water     string `json:"pubwtr"`
	Medical   string `json:"med"`
	Comms     string `json:"ota"`
	Travel    string `json:"trav"`
	Internet  string `json:"net"`
	Fuel      string `json:"fuel"`
	Food      string `json:"food"`
	Crime     string `json:"crime"`
	Civil     string `json:"civil"`
	Political string `json:"political"`
}

// NotReported is the digit stored for categories a compact report does not
// carry.
const NotReported = "4"

// ConditionsFromCode maps a 12-digit condition code onto its named
// categories, positionally.
func ConditionsFromCode(code string) (Conditions, error) {
	if len(code) != 12 {
		return Conditions{}, fmt.Errorf("condition code must be 12 digits, got %d", len(code))
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return Conditions{}, fmt.Errorf("condition code contains non-digit %q", r)
		}
	}
	return Conditions{
		Overall:   code[0:1],
		Power:     code[1:2],
		Water:     code[2:3],
		Medical:   code[3:4],
		Comms:     code[4:5],
		Travel:    code[5:6],
		Internet:  code[6:7],
		Fuel:      code[7:8],
		Food:      code[8:9],
		Crime:     code[9:10],
		Civil:     code[10:11],
		Political: code[11:12],
	}, nil
}

// Code reassembles the 12-digit positional form.
func (c Conditions) Code() string {
	return c.Overall + c.Power + c.Water + c.Medical + c.Comms + c.Travel +
		c.Internet + c.Fuel + c.Food + c.Crime + c.Civil + c.Political
}

// StatusReport is the payload shared by the standard, forwarded and compact
// status-report variants.
type StatusReport struct {
	Grid       Locator `json:"grid"`
	GridSource string  `json:"grid_source,omitempty"`

	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
	MGRS       string   `json:"mgrs,omitempty"`
	DistanceKM *float64 `json:"distance_km,omitempty"`

	// Precedence is the scope digit as transmitted: 1 = station's own
	// location, 2 = community-wide.
	Precedence string `json:"precedence,omitempty"`

	// ReportID is the sender-assigned report serial from the wire.
	ReportID string `json:"report_id,omitempty"`

	// Code is the digit string exactly as transmitted (12 digits for full
	// reports, 8 or 9 for compact ones, after shorthand expansion).
	Code string `json:"code"`

	Conditions Conditions  `json:"conditions"`
	Status     StatusColor `json:"status"`
	Comment    string      `json:"comment,omitempty"`

	// ReportedBy is the origin station for forwarded reports; empty when the
	// sender reported its own status.
	ReportedBy string `json:"reported_by,omitempty"`
}

// ScopeLabel renders the precedence digit for display.
func (s *StatusReport) ScopeLabel() string {
	switch s.Precedence {
	case "1":
		return "My Location"
	case "2":
		return "Community"
	default:
		return ""
	}
}

// Alert is the payload of the `{%%}` variant.
type Alert struct {
	Target   string `json:"target"`
	Severity int    `json:"severity"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

// Color maps the 1..3 severity onto a status color.
func (a *Alert) Color() StatusColor {
	return StatusColorFromDigit(fmt.Sprintf("%d", a.Severity))
}

// Message is the payload of plain messages and bulletins. BulletinSeq is the
// three-digit bulletin sequence, 0 for plain messages.
type Message struct {
	Body        string `json:"body"`
	BulletinSeq int    `json:"bulletin_seq,omitempty"`
}

// Record is the pipeline's output: a common envelope plus exactly one
// variant payload (the pointer matching Kind is non-nil).
type Record struct {
	ID           string      `json:"id"`
	FrameID      string      `json:"frame_id,omitempty"`
	Kind         VariantKind `json:"kind"`
	Timestamp    time.Time   `json:"timestamp"`
	TimeFallback bool        `json:"time_fallback,omitempty"`
	From         string      `json:"from"`
	Group        string      `json:"group,omitempty"`
	Frequency    int64       `json:"frequency,omitempty"`
	SNR          int         `json:"snr,omitempty"`
	Source       string      `json:"source,omitempty"`

	StatusReport *StatusReport `json:"status_report,omitempty"`
	Alert        *Alert        `json:"alert,omitempty"`
	Message      *Message      `json:"message,omitempty"`
}

// Callsign returns the station the record should be archived under: the
// origin station for forwarded reports, otherwise the sender.
func (r *Record) Callsign() string {
	if r.StatusReport != nil && r.StatusReport.ReportedBy != "" {
		return r.StatusReport.ReportedBy
	}
	return r.From
}

// NormalizeGroup strips the routing '@' from a group target.
func NormalizeGroup(target string) string {
	return strings.TrimPrefix(strings.TrimSpace(target), "@")
}
