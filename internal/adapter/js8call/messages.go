// Package js8call maintains the TCP API session with a local JS8Call
// instance and converts its directed-traffic events into raw frames.
package js8call

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/statwatch-io/statwatch/internal/domain"
)

// JS8Call API message types this client sends or reacts to. Everything else
// on the socket is ignored.
const (
	TypeRxDirected         = "RX.DIRECTED"
	TypeRxSpot             = "RX.SPOT"
	TypePing               = "PING"
	TypeStationCallsign    = "STATION.CALLSIGN"
	TypeStationGetCallsign = "STATION.GET_CALLSIGN"
)

// Message is one JSON event on the JS8Call TCP socket, newline-delimited.
type Message struct {
	Type   string `json:"type"`
	Value  string `json:"value"`
	Params Params `json:"params"`
}

// Params carries the metadata JS8Call attaches to an event. Field names are
// the API's own upper-case keys.
type Params struct {
	ID     int64   `json:"_ID,omitempty"`
	From   string  `json:"FROM,omitempty"`
	To     string  `json:"TO,omitempty"`
	Grid   string  `json:"GRID,omitempty"`
	SNR    int     `json:"SNR,omitempty"`
	Freq   int64   `json:"FREQ,omitempty"`
	Dial   int64   `json:"DIAL,omitempty"`
	Offset int64   `json:"OFFSET,omitempty"`
	UTC    UTCTime `json:"UTC,omitempty"`
}

// UTCTime tolerates both encodings seen for the UTC param across JS8Call
// builds: epoch milliseconds and a preformatted text timestamp.
type UTCTime struct {
	Text   string
	Millis int64
}

func (u *UTCTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &u.Text)
	}
	return json.Unmarshal(data, &u.Millis)
}

func (u UTCTime) MarshalJSON() ([]byte, error) {
	if u.Text != "" {
		return json.Marshal(u.Text)
	}
	return json.Marshal(u.Millis)
}

const wireTimeLayout = "2006-01-02 15:04:05"

// FrameFromMessage converts an RX.DIRECTED event into a raw frame. A
// numeric UTC param is rendered into the text timestamp format the decoder
// parses, so both encodings end up on the same path.
func FrameFromMessage(msg Message) domain.RawFrame {
	frame := domain.RawFrame{
		Text:      msg.Value,
		From:      msg.Params.From,
		To:        msg.Params.To,
		Frequency: msg.Params.Freq,
		SNR:       msg.Params.SNR,
		Source:    domain.SourceJS8Call,
	}
	switch {
	case msg.Params.UTC.Text != "":
		frame.TimestampText = msg.Params.UTC.Text
	case msg.Params.UTC.Millis > 0:
		frame.TimestampText = time.UnixMilli(msg.Params.UTC.Millis).UTC().Format(wireTimeLayout)
	}
	return frame
}
