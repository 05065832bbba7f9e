package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/statwatch-io/statwatch/internal/decode"
	"github.com/statwatch-io/statwatch/internal/domain"
)

// CaptureFrameUseCase handles the business logic for capturing one raw
// frame off the radio feed and handing it to the durable buffer.
type CaptureFrameUseCase struct {
	buffer domain.FrameBuffer
	groups map[string]struct{}
	logger *slog.Logger
}

// NewCaptureFrameUseCase creates a new CaptureFrameUseCase. monitoredGroups
// lists the @group targets worth archiving; an empty list monitors
// everything.
func NewCaptureFrameUseCase(buffer domain.FrameBuffer, monitoredGroups []string, logger *slog.Logger) *CaptureFrameUseCase {
	groups := make(map[string]struct{}, len(monitoredGroups))
	for _, g := range monitoredGroups {
		g = strings.ToUpper(domain.NormalizeGroup(g))
		if g != "" {
			groups[g] = struct{}{}
		}
	}
	return &CaptureFrameUseCase{
		buffer: buffer,
		groups: groups,
		logger: logger,
	}
}

// Capture validates, enriches and buffers a frame. Frames directed at an
// unmonitored @group come back as ErrFrameFiltered, which callers treat as
// a drop, not a failure.
func (uc *CaptureFrameUseCase) Capture(ctx context.Context, frame *domain.RawFrame) error {
	frame.ReceivedAt = time.Now().UTC()
	if frame.ID == "" {
		frame.ID = uuid.NewString()
	}

	if strings.TrimSpace(frame.Text) == "" {
		return fmt.Errorf("empty frame text: %w", domain.ErrMalformedFrame)
	}

	if !uc.monitored(frame.Text) {
		uc.logger.Debug("dropping frame for unmonitored group", "frame_id", frame.ID)
		return domain.ErrFrameFiltered
	}

	if err := uc.buffer.Append(ctx, *frame); err != nil {
		uc.logger.Error("failed to buffer frame", "error", err, "frame_id", frame.ID)
		return err
	}

	return nil
}

// monitored applies the group filter. Only traffic explicitly directed at
// an unmonitored @group is dropped; station-to-station traffic and @ALL
// broadcasts always pass.
func (uc *CaptureFrameUseCase) monitored(text string) bool {
	if len(uc.groups) == 0 {
		return true
	}
	_, target, _, ok := decode.ParseRouting(decode.Sanitize(strings.TrimSpace(text)))
	if !ok || !strings.HasPrefix(target, "@") {
		return true
	}
	group := strings.ToUpper(domain.NormalizeGroup(target))
	if group == "ALL" {
		return true
	}
	_, ok = uc.groups[group]
	return ok
}
