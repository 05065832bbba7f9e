package domain

import "time"

// RawFrame is one logical line received from the radio feed, together with
// the transport metadata known at capture time. Text may still contain
// non-ASCII noise; TimestampText is the payload timestamp as transmitted and
// is authoritative over ReceivedAt when it parses.
type RawFrame struct {
	ID            string    `json:"frame_id"`
	Text          string    `json:"text"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to,omitempty"`
	ReceivedAt    time.Time `json:"received_at"`
	TimestampText string    `json:"timestamp_text,omitempty"`
	Frequency     int64     `json:"frequency,omitempty"`
	SNR           int       `json:"snr,omitempty"`
	Source        string    `json:"source,omitempty"`

	// StreamMessageID is the buffer's delivery id, used for acknowledgement.
	// It is not part of the frame itself.
	StreamMessageID string `json:"-"`
}

// PreprocessedFrame is a RawFrame after duplicate-prefix repair and ASCII
// sanitization. From is the sender's base callsign (suffixes like /P
// stripped) when it could be determined.
type PreprocessedFrame struct {
	Raw  RawFrame
	Text string
	From string
}

// Frame sources.
const (
	SourceJS8Call   = "js8call"
	SourceHTTP      = "http"
	SourceSimulator = "sim"
)
