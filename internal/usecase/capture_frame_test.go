package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/statwatch-io/statwatch/internal/domain"
	"github.com/statwatch-io/statwatch/internal/domain/mocks"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestCaptureFrame(t *testing.T) {
	ctx := context.Background()

	t.Run("successful capture enriches the frame", func(t *testing.T) {
		buffer := &mocks.MockFrameBuffer{}
		uc := NewCaptureFrameUseCase(buffer, []string{"@AMRRON"}, newTestLogger())

		frame := domain.RawFrame{Text: "W8APP: @AMRRON MSG hello", Source: domain.SourceJS8Call}
		if err := uc.Capture(ctx, &frame); err != nil {
			t.Fatalf("Capture() error = %v", err)
		}

		if frame.ID == "" {
			t.Error("Capture() did not assign a frame ID")
		}
		if frame.ReceivedAt.IsZero() {
			t.Error("Capture() did not stamp ReceivedAt")
		}
		if len(buffer.Appended) != 1 {
			t.Fatalf("buffered frames = %d, want 1", len(buffer.Appended))
		}
		if buffer.Appended[0].Text != frame.Text {
			t.Errorf("buffered text = %q", buffer.Appended[0].Text)
		}
	})

	t.Run("empty text is malformed", func(t *testing.T) {
		buffer := &mocks.MockFrameBuffer{}
		uc := NewCaptureFrameUseCase(buffer, nil, newTestLogger())

		err := uc.Capture(ctx, &domain.RawFrame{Text: "   "})
		if !errors.Is(err, domain.ErrMalformedFrame) {
			t.Errorf("Capture() error = %v, want ErrMalformedFrame", err)
		}
		if len(buffer.Appended) != 0 {
			t.Errorf("buffered frames = %d, want 0", len(buffer.Appended))
		}
	})

	t.Run("unmonitored group is filtered", func(t *testing.T) {
		buffer := &mocks.MockFrameBuffer{}
		uc := NewCaptureFrameUseCase(buffer, []string{"@AMRRON"}, newTestLogger())

		err := uc.Capture(ctx, &domain.RawFrame{Text: "W8APP: @OTHERNET MSG hello"})
		if !errors.Is(err, domain.ErrFrameFiltered) {
			t.Errorf("Capture() error = %v, want ErrFrameFiltered", err)
		}
		if len(buffer.Appended) != 0 {
			t.Errorf("buffered frames = %d, want 0", len(buffer.Appended))
		}
	})

	t.Run("broadcast and station traffic pass the filter", func(t *testing.T) {
		buffer := &mocks.MockFrameBuffer{}
		uc := NewCaptureFrameUseCase(buffer, []string{"@AMRRON"}, newTestLogger())

		for _, text := range []string{
			"W1ABC: @ALL ,1,Test Alert,Take cover,{%%}",
			"W8APP: KB8UVN SNR?",
		} {
			if err := uc.Capture(ctx, &domain.RawFrame{Text: text}); err != nil {
				t.Errorf("Capture(%q) error = %v", text, err)
			}
		}
		if len(buffer.Appended) != 2 {
			t.Errorf("buffered frames = %d, want 2", len(buffer.Appended))
		}
	})

	t.Run("buffer failure propagates", func(t *testing.T) {
		buffer := &mocks.MockFrameBuffer{AppendErr: domain.ErrBufferUnavailable}
		uc := NewCaptureFrameUseCase(buffer, nil, newTestLogger())

		err := uc.Capture(ctx, &domain.RawFrame{Text: "W8APP: @AMRRON MSG hello"})
		if !errors.Is(err, domain.ErrBufferUnavailable) {
			t.Errorf("Capture() error = %v, want ErrBufferUnavailable", err)
		}
	})
}
