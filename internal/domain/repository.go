package domain

import (
	"context"
	"time"
)

// FrameBuffer is the durable queue between capture and decoding. Frames are
// delivered in append order; the archiver acknowledges each frame after the
// decode outcome is settled.
type FrameBuffer interface {
	// Append adds a frame to the buffer.
	Append(ctx context.Context, frame RawFrame) error

	// ReadBatch reads up to count frames for the given consumer, preserving
	// append order. StreamMessageID is set on each returned frame.
	ReadBatch(ctx context.Context, group, consumer string, count int) ([]RawFrame, error)

	// Acknowledge marks delivered frames as fully processed.
	Acknowledge(ctx context.Context, group string, messageIDs ...string) error

	// DeadLetter moves an undecodable frame to the dead-letter stream with a
	// reason, for later inspection.
	DeadLetter(ctx context.Context, frame RawFrame, reason string) error
}

// Journal is the local append-only fallback used when the frame buffer is
// unreachable. Replayed frames re-enter the buffer once it recovers.
type Journal interface {
	// Append writes a frame to the current journal segment.
	Append(ctx context.Context, frame RawFrame) error

	// Replay streams journaled frames to the handler in write order. The
	// handler re-buffers each frame; a handler error stops the replay.
	Replay(ctx context.Context, handler func(frame RawFrame) error) error

	// Truncate removes segments that have been fully replayed.
	Truncate(ctx context.Context) error
}

// RecordFilter narrows Recent queries. Zero values mean "any".
type RecordFilter struct {
	Kind     VariantKind
	Group    string
	Callsign string
	Limit    int
}

// ArchiveEntry is a flattened row from the traffic archive, shaped for the
// records API. Datetime keeps the archive's legacy text format.
type ArchiveEntry struct {
	Kind      VariantKind `json:"kind"`
	Datetime  string      `json:"datetime"`
	Callsign  string      `json:"callsign"`
	Group     string      `json:"group,omitempty"`
	Grid      string      `json:"grid,omitempty"`
	Status    string      `json:"status,omitempty"`
	Text      string      `json:"text,omitempty"`
	Frequency int64       `json:"frequency,omitempty"`
}

// ArchiveRepository is the persistence boundary. Save routes the record to
// the table matching its kind and reports (but does not resolve) duplicate
// identities: duplicate=true with a nil error means the record was stored
// alongside an existing one.
type ArchiveRepository interface {
	Save(ctx context.Context, rec *Record) (duplicate bool, err error)

	// LastKnownGrid returns the most recent known grid archived for a
	// callsign, or ErrLookupUnavailable.
	LastKnownGrid(ctx context.Context, callsign string) (Locator, error)

	// Recent returns archived records, newest first.
	Recent(ctx context.Context, filter RecordFilter) ([]ArchiveEntry, error)
}

// LocatorSource resolves a callsign to a grid square. Implementations may be
// slow or unreachable; callers bound every call with a timeout and treat any
// error as "no fallback available".
type LocatorSource interface {
	Lookup(ctx context.Context, callsign string) (Locator, error)
}

// Notifier receives a notification after a record was successfully archived.
// Implementations key delivery on the record's kind. Errors are logged by
// the caller and never fail the pipeline.
type Notifier interface {
	RecordArchived(ctx context.Context, rec *Record) error
}

// StreamAdminRepository exposes read/repair operations on the frame buffer's
// consumer groups for the admin API.
type StreamAdminRepository interface {
	GetGroupInfo(ctx context.Context, stream string) ([]ConsumerGroupInfo, error)
	GetConsumerInfo(ctx context.Context, stream, group string) ([]ConsumerInfo, error)
	GetPendingSummary(ctx context.Context, stream, group string) (*PendingMessageSummary, error)
	GetPendingMessages(ctx context.Context, stream, group, consumer, startID string, count int64) ([]PendingMessageDetail, error)
	ClaimFrames(ctx context.Context, stream, group, consumer string, minIdle time.Duration, messageIDs []string) ([]RawFrame, error)
	AcknowledgeFrames(ctx context.Context, stream, group string, messageIDs ...string) (int64, error)
	TrimStream(ctx context.Context, stream string, maxLen int64) (int64, error)
}
