package wal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/statwatch-io/statwatch/internal/domain"
)

func setupTestJournal(t *testing.T, maxSegmentSize, maxTotalSize int64) (*Journal, func()) {
	t.Helper()
	dir, err := os.MkdirTemp("", "journal_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	journal, err := NewJournal(dir, maxSegmentSize, maxTotalSize, logger)
	if err != nil {
		t.Fatalf("failed to create Journal: %v", err)
	}

	cleanup := func() {
		journal.Close()
		os.RemoveAll(dir)
	}

	return journal, cleanup
}

func TestJournal_AppendAndReplay(t *testing.T) {
	journal, cleanup := setupTestJournal(t, 1024, 10*1024)
	defer cleanup()

	frames := []domain.RawFrame{
		{ID: uuid.NewString(), Text: "W8APP: @AMRRON MSG frame 1"},
		{ID: uuid.NewString(), Text: "KB8UVN: @AMRRON MSG frame 2"},
		{ID: uuid.NewString(), Text: "N0DDK: @AMRRON MSG frame 3"},
	}

	for _, frame := range frames {
		if err := journal.Append(context.Background(), frame); err != nil {
			t.Fatalf("failed to append frame: %v", err)
		}
	}
	journal.Close() // Close to ensure data is flushed

	// Re-open the journal to simulate a restart
	var err error
	journal, err = NewJournal(journal.dir, 1024, 10*1024, journal.logger)
	if err != nil {
		t.Fatalf("failed to re-open journal: %v", err)
	}

	var replayed []domain.RawFrame
	replayHandler := func(frame domain.RawFrame) error {
		replayed = append(replayed, frame)
		return nil
	}

	if err := journal.Replay(context.Background(), replayHandler); err != nil {
		t.Fatalf("failed to replay frames: %v", err)
	}

	if len(replayed) != len(frames) {
		t.Fatalf("expected %d replayed frames, got %d", len(frames), len(replayed))
	}

	for i, frame := range frames {
		if replayed[i].ID != frame.ID || replayed[i].Text != frame.Text {
			t.Errorf("replayed frame mismatch at index %d: got %+v, want %+v", i, replayed[i], frame)
		}
	}
}

func TestJournal_SegmentRotation(t *testing.T) {
	// Set a very small segment size to force rotation
	journal, cleanup := setupTestJournal(t, 100, 1024)
	defer cleanup()

	frame := domain.RawFrame{ID: uuid.NewString(), Text: "a frame long enough to cause a segment rotation"}
	frameBytes, _ := json.Marshal(frame)
	frameSize := len(frameBytes)

	// Write enough frames to create at least 2 segments
	numWrites := (100 / frameSize) + 2
	for i := 0; i < numWrites; i++ {
		if err := journal.Append(context.Background(), frame); err != nil {
			t.Fatalf("failed to append frame: %v", err)
		}
	}

	segments, err := journal.getSortedSegments()
	if err != nil {
		t.Fatalf("failed to get segments: %v", err)
	}

	if len(segments) < 2 {
		t.Errorf("expected at least 2 segments, got %d", len(segments))
	}
}

func TestJournal_Truncate(t *testing.T) {
	journal, cleanup := setupTestJournal(t, 1024, 1024)
	defer cleanup()

	frame := domain.RawFrame{ID: uuid.NewString(), Text: "some frame"}
	if err := journal.Append(context.Background(), frame); err != nil {
		t.Fatalf("failed to append frame: %v", err)
	}

	segments, _ := journal.getSortedSegments()
	if len(segments) == 0 {
		t.Fatal("expected at least one segment before truncate")
	}

	if err := journal.Truncate(context.Background()); err != nil {
		t.Fatalf("failed to truncate journal: %v", err)
	}

	segments, _ = journal.getSortedSegments()
	if len(segments) != 1 { // Truncate creates a new empty segment
		t.Errorf("expected 1 segment after truncate, got %d", len(segments))
	}
	info, _ := os.Stat(segments[0])
	if info.Size() != 0 {
		t.Errorf("expected new segment to be empty, size is %d", info.Size())
	}
}

func TestJournal_MaxDiskSize(t *testing.T) {
	journal, cleanup := setupTestJournal(t, 100, 150) // Max total size is very small
	defer cleanup()

	frame := domain.RawFrame{ID: uuid.NewString(), Text: "some frame text that will fill up the journal"}
	var err error
	for i := 0; i < 5; i++ { // Write until we expect an error
		err = journal.Append(context.Background(), frame)
		if err != nil {
			break
		}
	}

	if err == nil {
		t.Fatal("expected an error when writing beyond max disk size, but got nil")
	}
}
