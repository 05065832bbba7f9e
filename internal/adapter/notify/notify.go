// Package notify delivers archived-record notifications to their sinks:
// the log, an optional MQTT broker, and the SSE event stream served by the
// API layer. Delivery is best-effort; a failing sink never blocks the
// pipeline.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/statwatch-io/statwatch/internal/adapter/metrics"
	"github.com/statwatch-io/statwatch/internal/domain"
)

// LogNotifier writes a structured line per archived record. It is always
// configured, so the operator sees traffic even with no other sink wired.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// RecordArchived logs the record's headline fields.
func (n *LogNotifier) RecordArchived(ctx context.Context, rec *domain.Record) error {
	attrs := []any{
		"id", rec.ID,
		"kind", rec.Kind,
		"callsign", rec.Callsign(),
		"group", rec.Group,
	}
	if sr := rec.StatusReport; sr != nil {
		attrs = append(attrs, "grid", sr.Grid, "status", sr.Status)
	}
	if rec.Alert != nil {
		attrs = append(attrs, "severity", rec.Alert.Severity, "title", rec.Alert.Title)
	}
	n.logger.Info("record archived", attrs...)
	return nil
}

type sinkEntry struct {
	name     string
	notifier domain.Notifier
}

// Fanout delivers each notification to every registered sink. Per-sink
// failures are counted and joined into the returned error; the remaining
// sinks are still served.
type Fanout struct {
	sinks   []sinkEntry
	metrics *metrics.ArchiverMetrics
	logger  *slog.Logger
}

// NewFanout creates an empty fanout.
func NewFanout(m *metrics.ArchiverMetrics, logger *slog.Logger) *Fanout {
	return &Fanout{metrics: m, logger: logger}
}

// Add registers a sink under a stable name used for metrics and logs.
func (f *Fanout) Add(name string, n domain.Notifier) {
	f.sinks = append(f.sinks, sinkEntry{name: name, notifier: n})
}

// RecordArchived fans the record out to every sink in registration order.
func (f *Fanout) RecordArchived(ctx context.Context, rec *domain.Record) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.notifier.RecordArchived(ctx, rec); err != nil {
			if f.metrics != nil {
				f.metrics.NotifyFailures.WithLabelValues(sink.name).Inc()
			}
			errs = append(errs, fmt.Errorf("%s: %w", sink.name, err))
		}
	}
	return errors.Join(errs...)
}
