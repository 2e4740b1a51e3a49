package contracts

import "time"

// Pick is one instrument accepted by the screening engine in one cycle.
// Ephemeral; produced fresh each cycle.
type Pick struct {
	Instrument    Instrument `json:"instrument"`
	ChangePercent float64    `json:"change_percent"`
	Volume        int64      `json:"volume"`
}

// Report is the ordered page sequence rendered from one cycle's picks
type Report struct {
	Pages       []string  `json:"pages"`
	GeneratedAt time.Time `json:"generated_at"`
	Profile     string    `json:"profile"`
	PickCount   int       `json:"pick_count"`
}

// CycleOutcome classifies how a poll cycle ended
type CycleOutcome string

const (
	// CycleSkipped means the scheduler guard decided not to run
	CycleSkipped CycleOutcome = "skipped"
	// CycleDelivered means a report was rendered and handed to delivery
	CycleDelivered CycleOutcome = "delivered"
	// CycleSuppressed means the dedup gate dropped an identical report
	CycleSuppressed CycleOutcome = "suppressed"
	// CycleNoMatches means the scan ran and legitimately found nothing
	CycleNoMatches CycleOutcome = "no_matches"
)

// CycleResult summarizes one poll cycle.
// A configuration failure is returned as an error instead, so a failed cycle
// is never confused with a legitimately empty one.
type CycleResult struct {
	Outcome      CycleOutcome `json:"outcome"`
	Profile      string       `json:"profile"`
	UniverseSize int          `json:"universe_size"`
	Fallback     bool         `json:"fallback"` // universe came from the safety list
	Truncated    int          `json:"truncated"` // instruments skipped at the soft deadline
	Picks        []Pick       `json:"picks"`
	Report       *Report      `json:"report,omitempty"`
	SkipReason   string       `json:"skip_reason,omitempty"`
	Duration     time.Duration `json:"duration"`
}
