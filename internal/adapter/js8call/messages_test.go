package js8call

import (
	"encoding/json"
	"testing"

	"github.com/statwatch-io/statwatch/internal/domain"
)

func TestMessageUnmarshal(t *testing.T) {
	t.Run("text UTC param", func(t *testing.T) {
		raw := `{"type":"RX.DIRECTED","value":"W8APP: @AMRRON MSG hello","params":{"FROM":"W8APP","TO":"@AMRRON","FREQ":14118000,"SNR":-3,"UTC":"2026-02-08   10:30:00"}}`
		var msg Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if msg.Type != TypeRxDirected {
			t.Errorf("type = %q", msg.Type)
		}
		if msg.Params.UTC.Text != "2026-02-08   10:30:00" {
			t.Errorf("utc text = %q", msg.Params.UTC.Text)
		}
		if msg.Params.Freq != 14118000 || msg.Params.SNR != -3 {
			t.Errorf("freq = %d snr = %d", msg.Params.Freq, msg.Params.SNR)
		}
	})

	t.Run("numeric UTC param", func(t *testing.T) {
		raw := `{"type":"RX.DIRECTED","value":"x","params":{"UTC":1770546600000}}`
		var msg Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if msg.Params.UTC.Millis != 1770546600000 {
			t.Errorf("utc millis = %d", msg.Params.UTC.Millis)
		}
	})
}

func TestFrameFromMessage(t *testing.T) {
	t.Run("text timestamp carried through", func(t *testing.T) {
		frame := FrameFromMessage(Message{
			Type:  TypeRxDirected,
			Value: "W8APP: @AMRRON MSG hello",
			Params: Params{
				From: "W8APP",
				To:   "@AMRRON",
				Freq: 14118000,
				SNR:  -3,
				UTC:  UTCTime{Text: "2026-02-08   10:30:00"},
			},
		})
		if frame.Text != "W8APP: @AMRRON MSG hello" || frame.From != "W8APP" || frame.To != "@AMRRON" {
			t.Errorf("frame = %+v", frame)
		}
		if frame.TimestampText != "2026-02-08   10:30:00" {
			t.Errorf("timestamp text = %q", frame.TimestampText)
		}
		if frame.Source != domain.SourceJS8Call {
			t.Errorf("source = %q", frame.Source)
		}
	})

	t.Run("epoch millis rendered as text timestamp", func(t *testing.T) {
		// 2026-02-08 10:30:00 UTC.
		frame := FrameFromMessage(Message{Params: Params{UTC: UTCTime{Millis: 1770546600000}}})
		if frame.TimestampText != "2026-02-08 10:30:00" {
			t.Errorf("timestamp text = %q", frame.TimestampText)
		}
	})

	t.Run("absent timestamp stays absent", func(t *testing.T) {
		frame := FrameFromMessage(Message{Value: "x"})
		if frame.TimestampText != "" {
			t.Errorf("timestamp text = %q, want empty", frame.TimestampText)
		}
	})
}
