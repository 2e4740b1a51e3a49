package contracts

// Snapshot is the current price/volume view derived from a bar series.
// The zero value is the designated "no data" sentinel: change percent 0.0
// and volume 0. A sentinel must never be reported as a pick.
type Snapshot struct {
	LastPrice     float64 `json:"last_price"`
	LastVolume    int64   `json:"last_volume"`
	PriorClose    float64 `json:"prior_close"`
	ChangePercent float64 `json:"change_percent"` // rounded to 2 decimals
}

// IsSentinel reports whether this snapshot carries no usable data
func (s Snapshot) IsSentinel() bool {
	return s.LastPrice == 0 || s.PriorClose == 0
}

// QuoteStatus classifies the outcome of one instrument's fetch
type QuoteStatus string

const (
	// QuoteOK means a usable last-price/prior-close pair was found
	QuoteOK QuoteStatus = "ok"
	// QuoteNoData means the source responded but no usable pair exists
	QuoteNoData QuoteStatus = "no_data"
	// QuoteFetchFailed means a network or parse failure occurred
	QuoteFetchFailed QuoteStatus = "fetch_failed"
)

// QuoteResult is the explicit per-instrument fetch outcome.
// Failures are values here, never errors that cross the batch boundary.
type QuoteResult struct {
	Instrument Instrument
	Status     QuoteStatus
	Snapshot   Snapshot
	Bars       []Bar  // trailing daily bars, oldest first; may be empty
	Reason     string // human-readable failure detail for logs
}

// OK reports whether the fetch produced a usable snapshot
func (r QuoteResult) OK() bool {
	return r.Status == QuoteOK && !r.Snapshot.IsSentinel()
}
