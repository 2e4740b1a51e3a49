package screen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yucheng-lin/twscan/internal/contracts"
	"github.com/yucheng-lin/twscan/internal/indicator"
	"github.com/yucheng-lin/twscan/pkg/logger"
)

func okResult(change float64, volume int64) contracts.QuoteResult {
	return contracts.QuoteResult{
		Status: contracts.QuoteOK,
		Snapshot: contracts.Snapshot{
			LastPrice:     105,
			LastVolume:    volume,
			PriorClose:    100,
			ChangePercent: change,
		},
	}
}

func flatBars(n int, volume int64) []contracts.Bar {
	bars := make([]contracts.Bar, n)
	for i := range bars {
		bars[i] = contracts.Bar{Open: 100, High: 100, Low: 100, Close: 100, Volume: volume}
	}
	return bars
}

func computeBundle(t *testing.T, s *Screener, bars []contracts.Bar, p Profile) *indicator.Bundle {
	t.Helper()
	engine := indicator.NewEngine(logger.NewNop())
	return engine.Compute(bars, s.Requirements(p))
}

func TestEvaluateThresholds(t *testing.T) {
	s := NewScreener(logger.NewNop())
	p := Profile{MinChangePercent: 2.0, MinVolume: 2000}
	bundle := &indicator.Bundle{}

	assert.Equal(t, "", s.Evaluate(okResult(3.96, 3000), bundle, p))
	assert.Equal(t, "min_change", s.Evaluate(okResult(1.5, 3000), bundle, p))
	assert.Equal(t, "min_volume", s.Evaluate(okResult(3.96, 1500), bundle, p))
}

func TestEvaluateRejectsNonOKResult(t *testing.T) {
	s := NewScreener(logger.NewNop())
	p := Profile{}

	for _, status := range []contracts.QuoteStatus{contracts.QuoteNoData, contracts.QuoteFetchFailed} {
		res := contracts.QuoteResult{Status: status}
		assert.Equal(t, "no_data", s.Evaluate(res, &indicator.Bundle{}, p))
	}
}

func TestEvaluateFailClosedOnShortHistory(t *testing.T) {
	s := NewScreener(logger.NewNop())
	p := Profile{
		PriceAboveMA: &PriceAboveMAGate{Period: 20},
	}
	// Only 5 bars: the 20-day average is undefined everywhere
	bundle := computeBundle(t, s, flatBars(5, 1000), p)

	assert.Equal(t, "price_above_ma", s.Evaluate(okResult(5, 5000), bundle, p))
}

func TestVolumeSpikeGate(t *testing.T) {
	s := NewScreener(logger.NewNop())
	p := Profile{VolumeSpike: &VolumeSpikeGate{Period: 3, Ratio: 2.0}}

	bars := flatBars(5, 1000)
	bars[4].Volume = 2500 // ≥ 2 × 1000 trailing average
	bundle := computeBundle(t, s, bars, p)
	assert.Equal(t, "", s.Evaluate(okResult(5, 2500), bundle, p))

	bars[4].Volume = 1500
	bundle = computeBundle(t, s, bars, p)
	assert.Equal(t, "volume_spike", s.Evaluate(okResult(5, 1500), bundle, p))
}

func TestPriorBreakoutGate(t *testing.T) {
	s := NewScreener(logger.NewNop())
	p := Profile{PriorBreakout: &PriorBreakoutGate{Period: 3, Ratio: 2.0}}

	// Prior day's volume spiked against its own trailing average
	bars := flatBars(6, 1000)
	bars[4].Volume = 3000
	bundle := computeBundle(t, s, bars, p)
	assert.Equal(t, "", s.Evaluate(okResult(5, 1000), bundle, p))

	// No volume spike, but today's high exceeds the prior high
	bars = flatBars(6, 1000)
	bars[5].High = 110
	bundle = computeBundle(t, s, bars, p)
	assert.Equal(t, "", s.Evaluate(okResult(5, 1000), bundle, p))

	// Neither condition
	bars = flatBars(6, 1000)
	bundle = computeBundle(t, s, bars, p)
	assert.Equal(t, "prior_breakout", s.Evaluate(okResult(5, 1000), bundle, p))
}

func TestBreakoutPairModes(t *testing.T) {
	s := NewScreener(logger.NewNop())

	base := Profile{
		VolumeSpike:   &VolumeSpikeGate{Period: 3, Ratio: 2.0},
		PriorBreakout: &PriorBreakoutGate{Period: 3, Ratio: 2.0},
	}

	// Spike passes, prior fails
	bars := flatBars(6, 1000)
	bars[5].Volume = 3000

	anyMode := base
	anyMode.BreakoutMode = BreakoutAny
	bundle := computeBundle(t, s, bars, anyMode)
	assert.Equal(t, "", s.Evaluate(okResult(5, 3000), bundle, anyMode))

	allMode := base
	allMode.BreakoutMode = BreakoutAll
	bundle = computeBundle(t, s, bars, allMode)
	assert.Equal(t, "prior_breakout", s.Evaluate(okResult(5, 3000), bundle, allMode))

	// Default mode is any
	defaultMode := base
	bundle = computeBundle(t, s, bars, defaultMode)
	assert.Equal(t, "", s.Evaluate(okResult(5, 3000), bundle, defaultMode))

	// Both fail: the pair reports the combined reason under any
	bars = flatBars(6, 1000)
	bundle = computeBundle(t, s, bars, anyMode)
	assert.Equal(t, "breakout", s.Evaluate(okResult(5, 1000), bundle, anyMode))
}

func TestRSIBandGate(t *testing.T) {
	s := NewScreener(logger.NewNop())
	p := Profile{RSIBand: &RSIBandGate{Period: 5, Min: 50, Max: 85}}

	// Steady rise pins RSI at 100, above the band ceiling
	bars := make([]contracts.Bar, 10)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = contracts.Bar{Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	bundle := computeBundle(t, s, bars, p)
	assert.Equal(t, "rsi_band", s.Evaluate(okResult(5, 1000), bundle, p))
}

func TestChannelBreakoutGate(t *testing.T) {
	s := NewScreener(logger.NewNop())
	p := Profile{ChannelBreakout: &ChannelBreakoutGate{Period: 3}}

	bars := flatBars(5, 1000)
	bundle := computeBundle(t, s, bars, p)

	// Price at the channel upper bound passes (inclusive)
	res := okResult(5, 1000)
	res.Snapshot.LastPrice = 100
	assert.Equal(t, "", s.Evaluate(res, bundle, p))

	res.Snapshot.LastPrice = 99
	assert.Equal(t, "channel_breakout", s.Evaluate(res, bundle, p))
}

func TestMACDGate(t *testing.T) {
	s := NewScreener(logger.NewNop())
	p := Profile{MACD: &MACDGate{Fast: 3, Slow: 6, Signal: 2, RequirePositive: true}}

	// Uptrend: fast EMA above slow, MACD line positive
	bars := make([]contracts.Bar, 20)
	for i := range bars {
		c := 100 + float64(i)*2
		bars[i] = contracts.Bar{Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	bundle := computeBundle(t, s, bars, p)
	assert.Equal(t, "", s.Evaluate(okResult(5, 1000), bundle, p))

	// Downtrend: line negative
	for i := range bars {
		c := 200 - float64(i)*2
		bars[i] = contracts.Bar{Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	bundle = computeBundle(t, s, bars, p)
	assert.Equal(t, "macd", s.Evaluate(okResult(5, 1000), bundle, p))
}

func TestRequirementsDerivation(t *testing.T) {
	s := NewScreener(logger.NewNop())

	req := s.Requirements(Profile{})
	assert.False(t, req.Any())

	req = s.Requirements(Profile{
		VolumeSpike:  &VolumeSpikeGate{Period: 5},
		PriceAboveMA: &PriceAboveMAGate{Period: 20},
		RSIBand:      &RSIBandGate{Period: 14},
	})
	assert.Equal(t, 5, req.AvgVolPeriod)
	assert.Equal(t, 20, req.SMAPeriod)
	assert.Equal(t, 14, req.RSIPeriod)
	assert.Equal(t, 0, req.MACDFast)
}
