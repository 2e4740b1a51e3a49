package contracts

import "time"

// Segment classifies where an instrument trades.
type Segment string

const (
	// SegmentPrimary is the TWSE main board (上市)
	SegmentPrimary Segment = "PRIMARY"
	// SegmentSecondary is the TPEx board (上櫃)
	SegmentSecondary Segment = "SECONDARY"
	// SegmentFund covers exchange-traded funds on either board
	SegmentFund Segment = "FUND"
)

// Label returns the segment's report header label
func (s Segment) Label() string {
	switch s {
	case SegmentPrimary:
		return "上市"
	case SegmentSecondary:
		return "上櫃"
	case SegmentFund:
		return "ETF"
	default:
		return string(s)
	}
}

// SegmentOrder lists segments in report order
var SegmentOrder = []Segment{SegmentPrimary, SegmentSecondary, SegmentFund}

// Instrument identifies one tradable security for a scan cycle.
// Immutable once resolved; discarded at end of cycle.
type Instrument struct {
	Code    string  `json:"code"`    // exchange code, e.g. "2330"
	Name    string  `json:"name"`    // optional display name
	Segment Segment `json:"segment"` // board classification
	Suffix  string  `json:"suffix"`  // explicit quote-symbol suffix (".TW"/".TWO"), may be empty
}

// Bar is one trading session's OHLCV record.
// Sequences are ordered oldest first; non-trading days are simply absent.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}
