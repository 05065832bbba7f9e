package decode

import (
	"errors"
	"testing"

	"github.com/statwatch-io/statwatch/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.VariantKind
	}{
		{
			name: "standard status report",
			text: "W8APP: @AMRRON ,EN82,1,174,111111111111,MI BEAUTIFUL SUNNY MORNING,{&%}",
			want: domain.KindStatusReport,
		},
		{
			name: "forwarded status report",
			text: "W1FWD: @AMRRON ,FN42,2,175,222222222222,RELAYED MESSAGE,W8APP,{F%}",
			want: domain.KindForwardedReport,
		},
		{
			name: "compact eight digit code",
			text: "KB8UVN: @AMRRON MSG F!304 11114444 EN82",
			want: domain.KindCompactReport8,
		},
		{
			name: "compact nine digit code",
			text: "KB8UVN: @AMRRON MSG F!301 111114444 FN42",
			want: domain.KindCompactReport9,
		},
		{
			name: "compact token matched case insensitively",
			text: "KB8UVN: @AMRRON MSG f!304 11114444 EN82",
			want: domain.KindCompactReport8,
		},
		{
			name: "alert",
			text: "W1ABC: @ALL ,1,Test Alert,This is a test alert message,{%%}",
			want: domain.KindAlert,
		},
		{
			name: "bulletin",
			text: "KD9DSS: @AMRRON MSG ,223,Test bulletin content,{^%}",
			want: domain.KindBulletin,
		},
		{
			name: "plain directed message",
			text: "W8APP: @AMRRON MSG Testing duplicate callsign handling",
			want: domain.KindPlainMessage,
		},
		{
			name: "catch-all for unmarked traffic",
			text: "W8APP: KB8UVN SNR?",
			want: domain.KindPlainMessage,
		},
		{
			name: "standard marker beats forwarded marker in comment",
			text: "W8APP: @AMRRON ,EN82,1,174,111111111111,SAW A {F%} EARLIER,{&%}",
			want: domain.KindStatusReport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeStatusReport(t *testing.T) {
	f := Preprocess(domain.RawFrame{Text: "W8APP: @AMRRON ,EN82,1,174,111111111111,MI BEAUTIFUL SUNNY MORNING,{&%}"})
	rec, err := Decode(f)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if rec.Kind != domain.KindStatusReport {
		t.Fatalf("Decode() kind = %v, want %v", rec.Kind, domain.KindStatusReport)
	}
	if rec.From != "W8APP" || rec.Group != "AMRRON" {
		t.Errorf("Decode() from = %q group = %q", rec.From, rec.Group)
	}

	sr := rec.StatusReport
	if sr == nil {
		t.Fatal("Decode() StatusReport = nil")
	}
	if sr.Grid != "EN82" || sr.GridSource != domain.GridFromPayload {
		t.Errorf("grid = %q source = %q", sr.Grid, sr.GridSource)
	}
	if sr.Precedence != "1" || sr.ReportID != "174" {
		t.Errorf("precedence = %q reportID = %q", sr.Precedence, sr.ReportID)
	}
	if sr.Code != "111111111111" {
		t.Errorf("code = %q", sr.Code)
	}
	if sr.Conditions.Overall != "1" || sr.Conditions.Power != "1" || sr.Conditions.Political != "1" {
		t.Errorf("conditions = %+v", sr.Conditions)
	}
	if sr.Comment != "MI BEAUTIFUL SUNNY MORNING" {
		t.Errorf("comment = %q", sr.Comment)
	}

	FinalizeStatus(rec)
	if sr.Status != domain.StatusGreen {
		t.Errorf("status = %v, want green", sr.Status)
	}
}

func TestDecodeForwardedReport(t *testing.T) {
	f := Preprocess(domain.RawFrame{Text: "W1FWD: @AMRRON ,FN42,2,175,222222222222,RELAYED MESSAGE,W8APP,{F%}"})
	rec, err := Decode(f)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if rec.Kind != domain.KindForwardedReport {
		t.Fatalf("Decode() kind = %v, want %v", rec.Kind, domain.KindForwardedReport)
	}
	if rec.From != "W1FWD" {
		t.Errorf("from = %q, want relay W1FWD", rec.From)
	}

	sr := rec.StatusReport
	if sr == nil {
		t.Fatal("Decode() StatusReport = nil")
	}
	if sr.ReportedBy != "W8APP" {
		t.Errorf("reportedBy = %q, want origin W8APP", sr.ReportedBy)
	}
	if rec.Callsign() != "W8APP" {
		t.Errorf("Callsign() = %q, want origin W8APP", rec.Callsign())
	}
	if sr.Grid != "FN42" || sr.Precedence != "2" || sr.ReportID != "175" {
		t.Errorf("grid = %q precedence = %q reportID = %q", sr.Grid, sr.Precedence, sr.ReportID)
	}
	if sr.Comment != "RELAYED MESSAGE" {
		t.Errorf("comment = %q", sr.Comment)
	}

	FinalizeStatus(rec)
	if sr.Status != domain.StatusYellow {
		t.Errorf("status = %v, want yellow", sr.Status)
	}
}

func TestDecodeCompact8(t *testing.T) {
	f := Preprocess(domain.RawFrame{Text: "KB8UVN: @AMRRON MSG F!304 11114444 EN82"})
	rec, err := Decode(f)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	sr := rec.StatusReport
	if sr == nil {
		t.Fatal("Decode() StatusReport = nil")
	}
	if sr.Code != "11114444" {
		t.Errorf("code = %q", sr.Code)
	}
	if sr.Grid != "EN82" || sr.GridSource != domain.GridFromPayload {
		t.Errorf("grid = %q source = %q", sr.Grid, sr.GridSource)
	}
	if sr.Precedence != "1" {
		t.Errorf("precedence = %q, want default 1", sr.Precedence)
	}
	if sr.Conditions.Comms != "1" || sr.Conditions.Power != "4" || sr.Conditions.Water != "4" {
		t.Errorf("conditions = %+v", sr.Conditions)
	}
	if sr.Conditions.Internet != domain.NotReported || sr.Conditions.Civil != domain.NotReported {
		t.Errorf("uncarried categories should be not-reported: %+v", sr.Conditions)
	}

	FinalizeStatus(rec)
	if sr.Status != domain.StatusGreen {
		t.Errorf("status = %v, want green", sr.Status)
	}
	if sr.Conditions.Overall != "1" {
		t.Errorf("overall = %q, want classifier digit 1", sr.Conditions.Overall)
	}
}

func TestDecodeCompact9(t *testing.T) {
	f := Preprocess(domain.RawFrame{Text: "KB8UVN: @AMRRON MSG F!301 111114444 FN42"})
	rec, err := Decode(f)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	sr := rec.StatusReport
	if sr == nil {
		t.Fatal("Decode() StatusReport = nil")
	}
	if sr.Code != "111114444" {
		t.Errorf("code = %q", sr.Code)
	}
	if sr.Precedence != "1" {
		t.Errorf("precedence = %q, want scope digit 1", sr.Precedence)
	}
	if sr.Grid != "FN42" {
		t.Errorf("grid = %q", sr.Grid)
	}
	if sr.ScopeLabel() != "My Location" {
		t.Errorf("scope = %q", sr.ScopeLabel())
	}

	FinalizeStatus(rec)
	if sr.Status != domain.StatusGreen {
		t.Errorf("status = %v, want green over the scored digits", sr.Status)
	}
}

func TestDecodeCompact9CommunityScope(t *testing.T) {
	f := Preprocess(domain.RawFrame{Text: "KB8UVN: @AMRRON MSG F!301 233334444 EN82"})
	rec, err := Decode(f)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	sr := rec.StatusReport
	if sr.Precedence != "2" || sr.ScopeLabel() != "Community" {
		t.Errorf("precedence = %q scope = %q", sr.Precedence, sr.ScopeLabel())
	}

	FinalizeStatus(rec)
	// Scored digits 33334444 sum to 16.
	if sr.Status != domain.StatusRed {
		t.Errorf("status = %v, want red", sr.Status)
	}
	if sr.Conditions.Overall != "3" {
		t.Errorf("overall = %q, want 3", sr.Conditions.Overall)
	}
}

func TestDecodeCompactWithoutGrid(t *testing.T) {
	f := Preprocess(domain.RawFrame{Text: "KB8UVN: @AMRRON MSG F!304 11114444"})
	rec, err := Decode(f)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	sr := rec.StatusReport
	if sr.Grid.Known() {
		t.Errorf("grid = %q, want unresolved", sr.Grid)
	}

	FinalizeStatus(rec)
	if sr.Status != domain.StatusUnknown {
		t.Errorf("status = %v, want unknown without locator", sr.Status)
	}
}

func TestDecodeAlert(t *testing.T) {
	f := Preprocess(domain.RawFrame{Text: "W1ABC: @ALL ,1,Test Alert,This is a test alert message,{%%}"})
	rec, err := Decode(f)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if rec.Kind != domain.KindAlert {
		t.Fatalf("Decode() kind = %v, want %v", rec.Kind, domain.KindAlert)
	}
	if rec.Group != "ALL" {
		t.Errorf("group = %q, want ALL", rec.Group)
	}

	a := rec.Alert
	if a == nil {
		t.Fatal("Decode() Alert = nil")
	}
	if a.Target != "@ALL" || a.Severity != 1 {
		t.Errorf("target = %q severity = %d", a.Target, a.Severity)
	}
	if a.Title != "Test Alert" {
		t.Errorf("title = %q", a.Title)
	}
	if a.Body != "This is a test alert message" {
		t.Errorf("body = %q", a.Body)
	}
	if a.Color() != domain.StatusGreen {
		t.Errorf("severity 1 color = %v, want green", a.Color())
	}
}

func TestDecodeBulletin(t *testing.T) {
	f := Preprocess(domain.RawFrame{Text: "KD9DSS: @AMRRON MSG ,223,Test bulletin content,{^%}"})
	rec, err := Decode(f)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if rec.Kind != domain.KindBulletin {
		t.Fatalf("Decode() kind = %v, want %v", rec.Kind, domain.KindBulletin)
	}
	msg := rec.Message
	if msg == nil {
		t.Fatal("Decode() Message = nil")
	}
	if msg.BulletinSeq != 223 {
		t.Errorf("seq = %d, want 223", msg.BulletinSeq)
	}
	if msg.Body != "Test bulletin content" {
		t.Errorf("body = %q", msg.Body)
	}
}

func TestDecodePlainMessage(t *testing.T) {
	t.Run("directed message", func(t *testing.T) {
		f := Preprocess(domain.RawFrame{Text: "W8APP: W8APP: @AMRRON MSG Testing duplicate callsign handling", From: "W8APP"})
		rec, err := Decode(f)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if rec.Kind != domain.KindPlainMessage {
			t.Fatalf("kind = %v", rec.Kind)
		}
		if rec.Message == nil || rec.Message.Body != "Testing duplicate callsign handling" {
			t.Errorf("message = %+v", rec.Message)
		}
		if rec.Group != "AMRRON" {
			t.Errorf("group = %q", rec.Group)
		}
	})

	t.Run("unmarked traffic falls through whole", func(t *testing.T) {
		f := Preprocess(domain.RawFrame{Text: "W8APP: KB8UVN SNR?"})
		rec, err := Decode(f)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if rec.Message == nil || rec.Message.Body != "SNR?" {
			t.Errorf("message = %+v", rec.Message)
		}
	})
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "status report with too few fields", text: "W8APP: @AMRRON ,EN82,1,{&%}"},
		{name: "status report with short code", text: "W8APP: @AMRRON ,EN82,1,174,11111,{&%}"},
		{name: "status report with non-digit code", text: "W8APP: @AMRRON ,EN82,1,174,11111111111x,{&%}"},
		{name: "forwarded report with too few fields", text: "W1FWD: @AMRRON ,FN42,2,175,{F%}"},
		{name: "compact code with nine digits under F!304", text: "KB8UVN: @AMRRON MSG F!304 111144445 EN82"},
		{name: "compact code with eight digits under F!301", text: "KB8UVN: @AMRRON MSG F!301 11114444 EN82"},
		{name: "compact code with no digits", text: "KB8UVN: @AMRRON MSG F!304"},
		{name: "alert with missing fields", text: "W1ABC: @ALL ,1,OnlyTitle{%%}"},
		{name: "alert with severity out of range", text: "W1ABC: @ALL ,7,Title,Body,{%%}"},
		{name: "alert with non-numeric severity", text: "W1ABC: @ALL ,x,Title,Body,{%%}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(Preprocess(domain.RawFrame{Text: tt.text}))
			if !errors.Is(err, domain.ErrMalformedFrame) {
				t.Errorf("Decode() error = %v, want ErrMalformedFrame", err)
			}
		})
	}
}

func TestExpandShorthand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "111+", want: "111111111111"},
		{in: "2+", want: "211111111111"},
		{in: "+", want: "111111111111"},
		{in: "111111111111", want: "111111111111"},
		{in: "123", want: "123"},
	}

	for _, tt := range tests {
		if got := ExpandShorthand(tt.in); got != tt.want {
			t.Errorf("ExpandShorthand(%q) got = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeShorthandCode(t *testing.T) {
	f := Preprocess(domain.RawFrame{Text: "W8APP: @AMRRON ,EN82,1,176,31+,{&%}"})
	rec, err := Decode(f)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	sr := rec.StatusReport
	if sr.Code != "311111111111" {
		t.Errorf("code = %q, want expanded 311111111111", sr.Code)
	}
	if sr.Conditions.Overall != "3" || sr.Conditions.Power != "1" {
		t.Errorf("conditions = %+v", sr.Conditions)
	}

	FinalizeStatus(rec)
	if sr.Status != domain.StatusRed {
		t.Errorf("status = %v, want red from overall digit", sr.Status)
	}
}
