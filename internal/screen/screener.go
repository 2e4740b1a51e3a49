package screen

import (
	"github.com/yucheng-lin/twscan/internal/contracts"
	"github.com/yucheng-lin/twscan/internal/indicator"
	"github.com/yucheng-lin/twscan/pkg/logger"
)

// Screener applies the active profile's gates to one fetched instrument.
// All gates are conjunctive except the volume-spike / prior-day-breakout
// pair, whose conjunction is the profile's breakout_mode.
type Screener struct {
	logger *logger.Logger
}

// NewScreener creates a new screener
func NewScreener(log *logger.Logger) *Screener {
	return &Screener{
		logger: log.WithField("module", "screen"),
	}
}

// Requirements derives the indicator series the profile's gates read
func (s *Screener) Requirements(p Profile) indicator.Requirements {
	var req indicator.Requirements

	if p.VolumeSpike != nil {
		req.AvgVolPeriod = p.VolumeSpike.Period
	}
	if p.PriorBreakout != nil {
		req.PriorAvgVolPeriod = p.PriorBreakout.Period
	}
	if p.PriceAboveMA != nil {
		req.SMAPeriod = p.PriceAboveMA.Period
	}
	if p.RSIBand != nil {
		req.RSIPeriod = p.RSIBand.Period
	}
	if p.MACD != nil {
		req.MACDFast = p.MACD.Fast
		req.MACDSlow = p.MACD.Slow
		req.MACDSignal = p.MACD.Signal
	}
	if p.Stochastic != nil {
		req.StochK = p.Stochastic.K
		req.StochD = p.Stochastic.D
	}
	if p.BollingerUpper != nil {
		req.BollPeriod = p.BollingerUpper.Period
		req.BollMult = p.BollingerUpper.Mult
	}
	if p.ATRPercent != nil {
		req.ATRPeriod = p.ATRPercent.Period
	}
	if p.ChannelBreakout != nil {
		req.DonchianPeriod = p.ChannelBreakout.Period
	}

	return req
}

// Evaluate decides accept/reject for one instrument.
// Returns empty string on accept, otherwise the name of the gate that
// rejected it. A sentinel snapshot always rejects; an indicator gate whose
// input is undefined rejects (fail-closed).
func (s *Screener) Evaluate(res contracts.QuoteResult, bundle *indicator.Bundle, p Profile) string {
	if !res.OK() {
		return "no_data"
	}

	snap := res.Snapshot
	if snap.ChangePercent < p.MinChangePercent {
		return "min_change"
	}
	if snap.LastVolume < p.MinVolume {
		return "min_volume"
	}

	if reason := s.checkBreakoutPair(snap, bundle, p); reason != "" {
		return reason
	}

	return s.checkIndicatorGates(snap, bundle, p)
}

// checkBreakoutPair evaluates the volume-spike and prior-day-breakout gates
// under the profile's conjunction mode
func (s *Screener) checkBreakoutPair(snap contracts.Snapshot, bundle *indicator.Bundle, p Profile) string {
	if p.VolumeSpike == nil && p.PriorBreakout == nil {
		return ""
	}

	spikeOK := p.VolumeSpike != nil && s.volumeSpikePasses(bundle, p.VolumeSpike)
	priorOK := p.PriorBreakout != nil && s.priorBreakoutPasses(bundle, p.PriorBreakout)

	// With a single gate enabled it joins the conjunctive chain as-is
	if p.VolumeSpike == nil {
		if !priorOK {
			return "prior_breakout"
		}
		return ""
	}
	if p.PriorBreakout == nil {
		if !spikeOK {
			return "volume_spike"
		}
		return ""
	}

	mode := p.BreakoutMode
	if mode == "" {
		mode = BreakoutAny
	}

	if mode == BreakoutAll {
		if !spikeOK {
			return "volume_spike"
		}
		if !priorOK {
			return "prior_breakout"
		}
		return ""
	}

	if !spikeOK && !priorOK {
		return "breakout"
	}
	return ""
}

// volumeSpikePasses: today's volume ≥ ratio × trailing average excluding today
func (s *Screener) volumeSpikePasses(bundle *indicator.Bundle, g *VolumeSpikeGate) bool {
	i := bundle.LastIndex()
	if i < 0 {
		return false
	}
	avg := indicator.At(bundle.AvgVolume, i)
	if !avg.Defined || avg.V <= 0 {
		return false
	}
	return float64(bundle.Bars[i].Volume) >= g.Ratio*avg.V
}

// priorBreakoutPasses: prior day's volume spiked against its own trailing
// average, or today's high exceeds prior day's high
func (s *Screener) priorBreakoutPasses(bundle *indicator.Bundle, g *PriorBreakoutGate) bool {
	i := bundle.LastIndex()
	if i < 1 {
		return false
	}

	prior := bundle.Bars[i-1]
	avg := indicator.At(bundle.PriorAvgVolume, i-1)
	if avg.Defined && avg.V > 0 && float64(prior.Volume) >= g.Ratio*avg.V {
		return true
	}

	return bundle.Bars[i].High > prior.High
}

// checkIndicatorGates runs every enabled indicator predicate in order
func (s *Screener) checkIndicatorGates(snap contracts.Snapshot, bundle *indicator.Bundle, p Profile) string {
	i := bundle.LastIndex()
	price := snap.LastPrice

	if p.PriceAboveMA != nil {
		ma := indicator.At(bundle.SMA, i)
		if !ma.Defined || price <= ma.V {
			return "price_above_ma"
		}
	}

	if p.RSIBand != nil {
		rsi := indicator.At(bundle.RSI, i)
		if !rsi.Defined || rsi.V < p.RSIBand.Min || rsi.V > p.RSIBand.Max {
			return "rsi_band"
		}
	}

	if p.MACD != nil {
		line := indicator.At(bundle.MACD, i)
		sig := indicator.At(bundle.MACDSignal, i)
		if !line.Defined || !sig.Defined {
			return "macd"
		}
		if p.MACD.RequirePositive && line.V <= 0 {
			return "macd"
		}
		if p.MACD.RequireGolden {
			prevLine := indicator.At(bundle.MACD, i-1)
			prevSig := indicator.At(bundle.MACDSignal, i-1)
			if !prevLine.Defined || !prevSig.Defined {
				return "macd"
			}
			if !(line.V > sig.V && prevLine.V <= prevSig.V) {
				return "macd"
			}
		}
	}

	if p.Stochastic != nil {
		k := indicator.At(bundle.StochK, i)
		d := indicator.At(bundle.StochD, i)
		if !k.Defined || !d.Defined || k.V <= d.V || k.V <= 50 {
			return "stochastic"
		}
	}

	if p.BollingerUpper != nil {
		upper := indicator.At(bundle.BollUpper, i)
		if !upper.Defined || price < upper.V {
			return "bollinger_upper"
		}
	}

	if p.ATRPercent != nil {
		atr := indicator.At(bundle.ATR, i)
		if !atr.Defined || price <= 0 || atr.V/price*100 < p.ATRPercent.MinPercent {
			return "atr_percent"
		}
	}

	if p.ChannelBreakout != nil {
		upper := indicator.At(bundle.DonchianUpper, i)
		if !upper.Defined || price < upper.V {
			return "channel_breakout"
		}
	}

	return ""
}
