package domain

import "errors"

// Decode and persistence outcomes callers branch on with errors.Is.
var (
	// ErrMalformedFrame marks a frame whose recognized marker carried the
	// wrong field count or shape. The frame is dropped, never retried.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnparseableTimestamp marks a payload timestamp that matched none of
	// the known separator patterns. Callers fall back to arrival time.
	ErrUnparseableTimestamp = errors.New("unparseable timestamp")

	// ErrDuplicateRecord is reported by the archive when an insert matches an
	// existing record's identity. The record is still stored; the conflict is
	// surfaced, not resolved.
	ErrDuplicateRecord = errors.New("duplicate record")

	// ErrLookupUnavailable is returned by locator sources when no grid could
	// be resolved for a callsign. It degrades to the unknown locator, never
	// to a pipeline failure.
	ErrLookupUnavailable = errors.New("locator lookup unavailable")

	// ErrBufferUnavailable is returned when the frame buffer cannot accept
	// writes and the journal fallback also failed.
	ErrBufferUnavailable = errors.New("frame buffer unavailable")

	// ErrFrameFiltered marks a frame directed at a group the station does
	// not monitor. Dropping it is policy, not failure.
	ErrFrameFiltered = errors.New("frame filtered")
)
