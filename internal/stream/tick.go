package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Tick is one parsed ticker frame off the inbound WebSocket. Bid/Ask/Last
// and Volume are all optional fields of the venue's frame; Has* flags
// record which were present (Go's zero float64 can't stand in for
// "absent").
type Tick struct {
	Symbol    string
	Bid       float64
	HasBid    bool
	Ask       float64
	HasAsk    bool
	Last      float64
	HasLast   bool
	Volume    float64
	HasVolume bool
	Timestamp time.Time
}

// Price derives the tradable price: mid of bid/ask when both are present,
// else last, else whichever single side is available.
func (t Tick) Price() float64 {
	switch {
	case t.HasBid && t.HasAsk:
		return (t.Bid + t.Ask) / 2
	case t.HasLast:
		return t.Last
	case t.HasBid:
		return t.Bid
	case t.HasAsk:
		return t.Ask
	default:
		return 0
	}
}

// Spread returns ask-bid when both sides are present.
func (t Tick) Spread() (float64, bool) {
	if t.HasBid && t.HasAsk {
		return t.Ask - t.Bid, true
	}
	return 0, false
}

// flexNumber unmarshals a JSON field that may arrive as either a number or
// a numeric string, matching the inbound ticker feed's loose typing.
type flexNumber struct {
	value float64
	set   bool
}

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid numeric field %q: %w", data, err)
	}
	f.value = v
	f.set = true
	return nil
}

type rawTick struct {
	Symbol    string     `json:"symbol"`
	Timestamp string     `json:"timestamp"`
	Bid       flexNumber `json:"bid"`
	Ask       flexNumber `json:"ask"`
	Last      flexNumber `json:"last"`
	Price     flexNumber `json:"price"`
	Volume    flexNumber `json:"volume"`
}

// parseTick decodes one inbound frame. Frames without a symbol are not
// ticks (e.g. subscription acknowledgements) and are rejected.
func parseTick(data []byte) (Tick, bool) {
	var raw rawTick
	if err := json.Unmarshal(data, &raw); err != nil || raw.Symbol == "" {
		return Tick{}, false
	}
	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return Tick{}, false
	}
	t := Tick{Symbol: raw.Symbol, Timestamp: ts}
	if raw.Bid.set {
		t.Bid, t.HasBid = raw.Bid.value, true
	}
	if raw.Ask.set {
		t.Ask, t.HasAsk = raw.Ask.value, true
	}
	if raw.Last.set {
		t.Last, t.HasLast = raw.Last.value, true
	} else if raw.Price.set {
		t.Last, t.HasLast = raw.Price.value, true
	}
	if raw.Volume.set {
		t.Volume, t.HasVolume = raw.Volume.value, true
	}
	return t, true
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts.UTC(), nil
	}
	return time.Parse(time.RFC3339, value)
}
