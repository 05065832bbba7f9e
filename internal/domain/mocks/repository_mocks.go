package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/statwatch-io/statwatch/internal/domain"
)

// MockFrameBuffer is a mock implementation of domain.FrameBuffer for testing.
type MockFrameBuffer struct {
	mu                sync.Mutex
	Appended          []domain.RawFrame
	ReadBatchResult   []domain.RawFrame
	AckedMessageIDs   []string
	DeadLettered      []domain.RawFrame
	DeadLetterReasons []string
	AppendErr         error
	ReadErr           error
	AckErr            error
	DeadLetterErr     error
}

func (m *MockFrameBuffer) Append(ctx context.Context, frame domain.RawFrame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.Appended = append(m.Appended, frame)
	return nil
}

func (m *MockFrameBuffer) ReadBatch(ctx context.Context, group, consumer string, count int) ([]domain.RawFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	return m.ReadBatchResult, nil
}

func (m *MockFrameBuffer) Acknowledge(ctx context.Context, group string, messageIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AckErr != nil {
		return m.AckErr
	}
	m.AckedMessageIDs = append(m.AckedMessageIDs, messageIDs...)
	return nil
}

func (m *MockFrameBuffer) DeadLetter(ctx context.Context, frame domain.RawFrame, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeadLetterErr != nil {
		return m.DeadLetterErr
	}
	m.DeadLettered = append(m.DeadLettered, frame)
	m.DeadLetterReasons = append(m.DeadLetterReasons, reason)
	return nil
}

// MockJournal is a mock implementation of domain.Journal for testing.
type MockJournal struct {
	mu           sync.Mutex
	Appended     []domain.RawFrame
	ReplayFrames []domain.RawFrame
	Truncations  int
	AppendErr    error
	ReplayErr    error
	TruncateErr  error
}

func (m *MockJournal) Append(ctx context.Context, frame domain.RawFrame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.Appended = append(m.Appended, frame)
	return nil
}

func (m *MockJournal) Replay(ctx context.Context, handler func(frame domain.RawFrame) error) error {
	m.mu.Lock()
	frames := append([]domain.RawFrame(nil), m.ReplayFrames...)
	err := m.ReplayErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := handler(f); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockJournal) Truncate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TruncateErr != nil {
		return m.TruncateErr
	}
	m.Truncations++
	return nil
}

// MockArchiveRepository is a mock implementation of domain.ArchiveRepository
// for testing.
type MockArchiveRepository struct {
	mu            sync.Mutex
	Saved         []*domain.Record
	SaveDuplicate bool
	SaveErr       error
	SaveErrOnce   bool
	Grids         map[string]domain.Locator
	GridCalls     []string
	GridErr       error
	RecentResult  []domain.ArchiveEntry
	RecentFilters []domain.RecordFilter
	RecentErr     error
}

func (m *MockArchiveRepository) Save(ctx context.Context, rec *domain.Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		err := m.SaveErr
		if m.SaveErrOnce {
			m.SaveErr = nil
		}
		return false, err
	}
	m.Saved = append(m.Saved, rec)
	return m.SaveDuplicate, nil
}

func (m *MockArchiveRepository) LastKnownGrid(ctx context.Context, callsign string) (domain.Locator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GridCalls = append(m.GridCalls, callsign)
	if m.GridErr != nil {
		return "", m.GridErr
	}
	if grid, ok := m.Grids[callsign]; ok {
		return grid, nil
	}
	return "", domain.ErrLookupUnavailable
}

func (m *MockArchiveRepository) Recent(ctx context.Context, filter domain.RecordFilter) ([]domain.ArchiveEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecentFilters = append(m.RecentFilters, filter)
	if m.RecentErr != nil {
		return nil, m.RecentErr
	}
	return m.RecentResult, nil
}

// MockLocatorSource is a mock implementation of domain.LocatorSource for
// testing. A non-zero Delay makes Lookup block until the delay elapses or
// the context expires, to exercise timeout handling.
type MockLocatorSource struct {
	mu    sync.Mutex
	Grids map[string]domain.Locator
	Calls []string
	Err   error
	Delay time.Duration
}

func (m *MockLocatorSource) Lookup(ctx context.Context, callsign string) (domain.Locator, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, callsign)
	delay := m.Delay
	err := m.Err
	grid, ok := m.Grids[callsign]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrLookupUnavailable
	}
	return grid, nil
}

// MockNotifier is a mock implementation of domain.Notifier for testing.
type MockNotifier struct {
	mu       sync.Mutex
	Notified []*domain.Record
	Err      error
}

func (m *MockNotifier) RecordArchived(ctx context.Context, rec *domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Notified = append(m.Notified, rec)
	return nil
}

// NotifiedCount returns the number of delivered notifications.
func (m *MockNotifier) NotifiedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Notified)
}
