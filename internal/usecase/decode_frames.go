package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/statwatch-io/statwatch/internal/adapter/metrics"
	"github.com/statwatch-io/statwatch/internal/decode"
	"github.com/statwatch-io/statwatch/internal/domain"
	"github.com/statwatch-io/statwatch/internal/grid"
)

// archiveSaveRetries is the number of additional attempts after the first
// failed archive write.
const archiveSaveRetries = 2

// DecodeFramesUseCase orchestrates the decoding pipeline: it drains the
// frame buffer in arrival order, decodes each frame into a record, resolves
// missing locators within a bounded budget, archives the record and fans
// out notifications. Frames are acknowledged one by one once their outcome
// is settled, so a crash never skips traffic.
type DecodeFramesUseCase struct {
	buffer   domain.FrameBuffer
	archive  domain.ArchiveRepository
	locators domain.LocatorSource
	notifier domain.Notifier
	metrics  *metrics.ArchiverMetrics
	logger   *slog.Logger

	group         string
	consumer      string
	batchSize     int
	lookupTimeout time.Duration

	homeLat *float64
	homeLon *float64
}

// NewDecodeFramesUseCase creates a new use case for decoding frames.
// homeGrid is the station's own square; when valid, archived reports are
// annotated with their distance from it.
func NewDecodeFramesUseCase(
	buffer domain.FrameBuffer,
	archive domain.ArchiveRepository,
	locators domain.LocatorSource,
	notifier domain.Notifier,
	m *metrics.ArchiverMetrics,
	logger *slog.Logger,
	group, consumer string,
	batchSize int,
	lookupTimeout time.Duration,
	homeGrid string,
) *DecodeFramesUseCase {
	uc := &DecodeFramesUseCase{
		buffer:        buffer,
		archive:       archive,
		locators:      locators,
		notifier:      notifier,
		metrics:       m,
		logger:        logger,
		group:         group,
		consumer:      consumer,
		batchSize:     batchSize,
		lookupTimeout: lookupTimeout,
	}
	if homeGrid != "" {
		if lat, lon, err := grid.Center(homeGrid); err == nil {
			uc.homeLat, uc.homeLon = &lat, &lon
		} else {
			logger.Warn("station grid is not a valid locator, distances disabled", "grid", homeGrid)
		}
	}
	return uc
}

// ProcessBatch reads one batch of frames and processes them sequentially in
// arrival order. It returns the number of frames whose outcome was settled.
// A buffer or archive failure stops the batch; unacknowledged frames are
// redelivered on the next cycle.
func (uc *DecodeFramesUseCase) ProcessBatch(ctx context.Context) (int, error) {
	frames, err := uc.buffer.ReadBatch(ctx, uc.group, uc.consumer, uc.batchSize)
	if err != nil {
		uc.logger.Error("failed to read frame batch from buffer", "error", err)
		return 0, err
	}
	if len(frames) == 0 {
		return 0, nil
	}

	uc.logger.Debug("read batch of frames from buffer", "count", len(frames))
	start := time.Now()

	processed := 0
	for _, frame := range frames {
		if err := uc.processOne(ctx, frame); err != nil {
			return processed, err
		}
		processed++
	}

	uc.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	return processed, nil
}

func (uc *DecodeFramesUseCase) processOne(ctx context.Context, frame domain.RawFrame) error {
	rec, err := uc.decodeFrame(ctx, frame)
	if err != nil {
		// Undecodable frames keep their payload in the dead-letter stream
		// for inspection; the pipeline moves on.
		uc.metrics.DecodeFailures.WithLabelValues("malformed").Inc()
		uc.logger.Warn("dropping malformed frame", "error", err, "frame_id", frame.ID)
		if dlqErr := uc.buffer.DeadLetter(ctx, frame, err.Error()); dlqErr != nil {
			uc.logger.Error("failed to dead-letter frame", "error", dlqErr, "frame_id", frame.ID)
			return dlqErr
		}
		return uc.ack(ctx, frame)
	}

	duplicate, err := uc.saveWithRetry(ctx, rec)
	if err != nil {
		// The frame stays unacknowledged and will be redelivered; the
		// archive's duplicate probe copes with the eventual re-insert.
		uc.metrics.DecodeFailures.WithLabelValues("persist").Inc()
		uc.logger.Error("failed to archive record after retries", "error", err, "record_id", rec.ID)
		return err
	}
	if duplicate {
		uc.metrics.DuplicatesTotal.Inc()
		uc.logger.Warn("record identity already archived, stored alongside",
			"record_id", rec.ID, "callsign", rec.Callsign(), "kind", rec.Kind)
	}
	uc.metrics.RecordsTotal.WithLabelValues(string(rec.Kind)).Inc()

	if uc.notifier != nil {
		if err := uc.notifier.RecordArchived(ctx, rec); err != nil {
			uc.logger.Warn("notifier delivery failed", "error", err, "record_id", rec.ID)
		}
	}

	return uc.ack(ctx, frame)
}

// decodeFrame runs the pure decoding stages and the locator resolution for
// one frame.
func (uc *DecodeFramesUseCase) decodeFrame(ctx context.Context, frame domain.RawFrame) (*domain.Record, error) {
	rec, err := decode.Decode(decode.Preprocess(frame))
	if err != nil {
		return nil, err
	}

	rec.FrameID = frame.ID
	rec.Frequency = frame.Frequency
	rec.SNR = frame.SNR
	rec.Source = frame.Source

	uc.resolveTimestamp(frame, rec)

	if sr := rec.StatusReport; sr != nil {
		uc.resolveGrid(ctx, rec, sr)
		decode.FinalizeStatus(rec)
		uc.annotatePosition(sr)
	}

	return rec, nil
}

// resolveTimestamp prefers the payload timestamp; a payload value that does
// not parse falls back to arrival time and flags the record. The record id
// is the time-letter identifier of whichever timestamp won.
func (uc *DecodeFramesUseCase) resolveTimestamp(frame domain.RawFrame, rec *domain.Record) {
	if frame.TimestampText == "" {
		rec.Timestamp = arrivalTime(frame)
		rec.ID = decode.Ident(rec.Timestamp.Hour(), rec.Timestamp.Minute())
		return
	}
	ts, id, err := decode.ParseTimestamp(frame.TimestampText)
	if err != nil {
		uc.metrics.TimeFallbacks.Inc()
		uc.logger.Warn("payload timestamp did not parse, using arrival time",
			"timestamp_text", frame.TimestampText, "frame_id", frame.ID)
		rec.Timestamp = arrivalTime(frame)
		rec.ID = decode.Ident(rec.Timestamp.Hour(), rec.Timestamp.Minute())
		rec.TimeFallback = true
		return
	}
	rec.Timestamp = ts
	rec.ID = id
}

// resolveGrid fills a missing locator from the last-known-grid source under
// a bounded budget. Every failure mode degrades to the unknown marker.
func (uc *DecodeFramesUseCase) resolveGrid(ctx context.Context, rec *domain.Record, sr *domain.StatusReport) {
	if !sr.Grid.Known() {
		lookupCtx, cancel := context.WithTimeout(ctx, uc.lookupTimeout)
		defer cancel()

		loc, err := uc.locators.Lookup(lookupCtx, rec.Callsign())
		switch {
		case err == nil && loc.Known():
			sr.Grid = loc
			sr.GridSource = domain.GridFromLookup
			uc.metrics.LookupOutcomes.WithLabelValues("hit").Inc()
		case errors.Is(err, context.DeadlineExceeded):
			uc.metrics.LookupOutcomes.WithLabelValues("timeout").Inc()
			uc.logger.Warn("locator lookup timed out", "callsign", rec.Callsign())
		case err == nil || errors.Is(err, domain.ErrLookupUnavailable):
			uc.metrics.LookupOutcomes.WithLabelValues("miss").Inc()
		default:
			uc.metrics.LookupOutcomes.WithLabelValues("error").Inc()
			uc.logger.Warn("locator lookup failed", "error", err, "callsign", rec.Callsign())
		}
	}

	if !sr.Grid.Known() {
		sr.Grid = domain.UnknownLocator
		sr.GridSource = domain.GridUnknown
	}
}

// annotatePosition derives latitude, longitude, the MGRS rendering and the
// distance from the station's own grid. A grid field that is not actually a
// locator is left unannotated.
func (uc *DecodeFramesUseCase) annotatePosition(sr *domain.StatusReport) {
	if !sr.Grid.Known() || !decode.ValidLocator(string(sr.Grid)) {
		return
	}
	lat, lon, err := grid.Center(string(sr.Grid))
	if err != nil {
		return
	}
	sr.Lat, sr.Lon = &lat, &lon
	if mgrs, err := grid.MGRS(lat, lon); err == nil {
		sr.MGRS = mgrs
	}
	if uc.homeLat != nil && uc.homeLon != nil {
		d := grid.Distance(*uc.homeLat, *uc.homeLon, lat, lon)
		sr.DistanceKM = &d
	}
}

func (uc *DecodeFramesUseCase) saveWithRetry(ctx context.Context, rec *domain.Record) (bool, error) {
	var duplicate bool
	save := func() error {
		var err error
		duplicate, err = uc.archive.Save(ctx, rec)
		if err != nil {
			uc.logger.Warn("failed to archive record, retrying...", "error", err, "record_id", rec.ID)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 2 * time.Second

	if err := backoff.Retry(save, backoff.WithContext(backoff.WithMaxRetries(bo, archiveSaveRetries), ctx)); err != nil {
		return false, err
	}
	return duplicate, nil
}

func (uc *DecodeFramesUseCase) ack(ctx context.Context, frame domain.RawFrame) error {
	if frame.StreamMessageID == "" {
		return nil
	}
	if err := uc.buffer.Acknowledge(ctx, uc.group, frame.StreamMessageID); err != nil {
		uc.logger.Error("failed to acknowledge frame", "error", err, "frame_id", frame.ID)
		return err
	}
	return nil
}

func arrivalTime(frame domain.RawFrame) time.Time {
	if frame.ReceivedAt.IsZero() {
		return time.Now().UTC()
	}
	return frame.ReceivedAt.UTC()
}
