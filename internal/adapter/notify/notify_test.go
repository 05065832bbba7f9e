package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/statwatch-io/statwatch/internal/adapter/metrics"
	"github.com/statwatch-io/statwatch/internal/domain"
	"github.com/statwatch-io/statwatch/internal/domain/mocks"
)

// Prometheus collectors register globally, so the package's tests share one
// instance.
var testMetrics = metrics.NewArchiverMetrics()

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRecord() *domain.Record {
	return &domain.Record{
		ID:   "N30",
		Kind: domain.KindAlert,
		From: "W8APP",
		Alert: &domain.Alert{
			Target: "@ALL", Severity: 2, Title: "TORNADO WARNING", Body: "TAKE SHELTER",
		},
	}
}

func TestFanoutDeliversToAllSinks(t *testing.T) {
	first := &mocks.MockNotifier{}
	second := &mocks.MockNotifier{}

	fanout := NewFanout(testMetrics, newTestLogger())
	fanout.Add("first", first)
	fanout.Add("second", second)

	if err := fanout.RecordArchived(context.Background(), testRecord()); err != nil {
		t.Fatalf("RecordArchived() error = %v", err)
	}
	if first.NotifiedCount() != 1 || second.NotifiedCount() != 1 {
		t.Errorf("sink deliveries = %d/%d, want 1/1", first.NotifiedCount(), second.NotifiedCount())
	}
}

func TestFanoutContinuesPastFailingSink(t *testing.T) {
	failing := &mocks.MockNotifier{Err: errors.New("broker down")}
	healthy := &mocks.MockNotifier{}

	fanout := NewFanout(testMetrics, newTestLogger())
	fanout.Add("mqtt", failing)
	fanout.Add("sse", healthy)

	err := fanout.RecordArchived(context.Background(), testRecord())
	if err == nil {
		t.Fatal("RecordArchived() expected an error from the failing sink")
	}
	if !strings.Contains(err.Error(), "mqtt") {
		t.Errorf("error = %v, want the failing sink named", err)
	}
	if healthy.NotifiedCount() != 1 {
		t.Errorf("healthy sink deliveries = %d, want 1 despite the earlier failure", healthy.NotifiedCount())
	}
}

func TestLogNotifier(t *testing.T) {
	notifier := NewLogNotifier(newTestLogger())

	records := []*domain.Record{
		testRecord(),
		{
			ID: "K30", Kind: domain.KindStatusReport, From: "W8APP",
			StatusReport: &domain.StatusReport{Grid: "EN82", Status: domain.StatusGreen},
		},
		{
			ID: "K31", Kind: domain.KindPlainMessage, From: "KB8UVN",
			Message: &domain.Message{Body: "SNR?"},
		},
	}
	for _, rec := range records {
		if err := notifier.RecordArchived(context.Background(), rec); err != nil {
			t.Errorf("RecordArchived(%s) error = %v", rec.Kind, err)
		}
	}
}
