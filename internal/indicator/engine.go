package indicator

import (
	"github.com/yucheng-lin/twscan/internal/contracts"
	"github.com/yucheng-lin/twscan/pkg/logger"
)

// Requirements lists the indicator series the active profile reads, with
// their parameters. A zero period means the series is not needed.
type Requirements struct {
	SMAPeriod int

	RSIPeriod int

	MACDFast   int
	MACDSlow   int
	MACDSignal int

	StochK int
	StochD int

	BollPeriod int
	BollMult   float64

	ATRPeriod int

	DonchianPeriod int

	AvgVolPeriod      int
	PriorAvgVolPeriod int
}

// Any reports whether at least one series is required
func (r Requirements) Any() bool {
	return r.SMAPeriod > 0 || r.RSIPeriod > 0 || r.MACDFast > 0 ||
		r.StochK > 0 || r.BollPeriod > 0 || r.ATRPeriod > 0 ||
		r.DonchianPeriod > 0 || r.AvgVolPeriod > 0 || r.PriorAvgVolPeriod > 0
}

// Bundle holds the computed series for one instrument, each aligned 1:1
// with Bars. Series that were not required stay nil; reading them through
// At() yields undefined values.
type Bundle struct {
	Bars []contracts.Bar

	SMA []Value

	RSI []Value

	MACD       []Value
	MACDSignal []Value
	MACDHist   []Value

	StochK []Value
	StochD []Value

	BollUpper []Value

	ATR []Value

	DonchianUpper []Value

	AvgVolume      []Value
	PriorAvgVolume []Value
}

// LastIndex returns the index of the most recent bar, -1 when empty
func (b *Bundle) LastIndex() int {
	return len(b.Bars) - 1
}

// Engine computes indicator bundles for the screening stage
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a new indicator engine
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{
		logger: log.WithField("module", "indicator"),
	}
}

// Compute builds the bundle the requirements ask for.
// Pure computation, no I/O.
func (e *Engine) Compute(bars []contracts.Bar, req Requirements) *Bundle {
	bundle := &Bundle{Bars: bars}
	if len(bars) == 0 {
		return bundle
	}

	closes := Closes(bars)

	if req.SMAPeriod > 0 {
		bundle.SMA = SMA(closes, req.SMAPeriod)
	}

	if req.RSIPeriod > 0 {
		bundle.RSI = RSI(closes, req.RSIPeriod)
	}

	if req.MACDFast > 0 && req.MACDSlow > 0 && req.MACDSignal > 0 {
		bundle.MACD, bundle.MACDSignal, bundle.MACDHist = MACD(closes, req.MACDFast, req.MACDSlow, req.MACDSignal)
	}

	if req.StochK > 0 && req.StochD > 0 {
		bundle.StochK, bundle.StochD = Stochastic(bars, req.StochK, req.StochD)
	}

	if req.BollPeriod > 0 {
		_, bundle.BollUpper, _ = Bollinger(closes, req.BollPeriod, req.BollMult)
	}

	if req.ATRPeriod > 0 {
		bundle.ATR = ATR(bars, req.ATRPeriod)
	}

	if req.DonchianPeriod > 0 {
		bundle.DonchianUpper, _ = Donchian(bars, req.DonchianPeriod)
	}

	if req.AvgVolPeriod > 0 {
		bundle.AvgVolume = AvgVolume(bars, req.AvgVolPeriod)
	}

	if req.PriorAvgVolPeriod > 0 {
		if req.PriorAvgVolPeriod == req.AvgVolPeriod {
			bundle.PriorAvgVolume = bundle.AvgVolume
		} else {
			bundle.PriorAvgVolume = AvgVolume(bars, req.PriorAvgVolPeriod)
		}
	}

	return bundle
}
