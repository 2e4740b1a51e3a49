package quote

import (
	"context"
	"math"

	"github.com/yucheng-lin/twscan/internal/contracts"
	"github.com/yucheng-lin/twscan/internal/external/yahoo"
	"github.com/yucheng-lin/twscan/pkg/config"
	"github.com/yucheng-lin/twscan/pkg/logger"
)

// Fetcher retrieves one instrument's snapshot and trailing bars.
// Every failure mode degrades to a QuoteResult value; a fetch never aborts
// the surrounding batch.
type Fetcher struct {
	chart  *yahoo.Client
	cfg    config.QuoteConfig
	logger *logger.Logger
}

// NewFetcher creates a new quote fetcher
func NewFetcher(chart *yahoo.Client, cfg config.QuoteConfig, log *logger.Logger) *Fetcher {
	return &Fetcher{
		chart:  chart,
		cfg:    cfg,
		logger: log.WithField("module", "quote"),
	}
}

// Fetch returns the quote result for one instrument.
// needBars requests the trailing daily series for indicator gates; the daily
// request also serves as the fallback when the session query yields no
// usable last-price/prior-close pair.
func (f *Fetcher) Fetch(ctx context.Context, inst contracts.Instrument, needBars bool) contracts.QuoteResult {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.FetchTimeout)
	defer cancel()

	for _, symbol := range yahoo.SymbolCandidates(inst) {
		if res, ok := f.trySymbol(ctx, inst, symbol, needBars); ok {
			return res
		}
		if ctx.Err() != nil {
			return contracts.QuoteResult{
				Instrument: inst,
				Status:     contracts.QuoteFetchFailed,
				Reason:     ctx.Err().Error(),
			}
		}
	}

	return contracts.QuoteResult{
		Instrument: inst,
		Status:     contracts.QuoteNoData,
		Reason:     "no usable close data",
	}
}

// trySymbol attempts one quote symbol, with the daily window as fallback
func (f *Fetcher) trySymbol(ctx context.Context, inst contracts.Instrument, symbol string, needBars bool) (contracts.QuoteResult, bool) {
	var snap contracts.Snapshot
	var got bool

	session, err := f.chart.FetchSession(ctx, symbol)
	if err != nil {
		f.logger.WithError(err).WithField("symbol", symbol).Debug("Session fetch failed")
	} else {
		snap, got = snapshotFromSeries(session)
	}

	var bars []contracts.Bar
	if needBars || !got {
		daily, derr := f.chart.FetchDaily(ctx, symbol, f.cfg.WindowDays)
		if derr != nil {
			f.logger.WithError(derr).WithField("symbol", symbol).Debug("Daily fetch failed")
		} else {
			bars = daily.Bars()
			if !got {
				snap, got = snapshotFromSeries(daily)
			}
		}
	}

	if !got {
		return contracts.QuoteResult{}, false
	}

	return contracts.QuoteResult{
		Instrument: inst,
		Status:     contracts.QuoteOK,
		Snapshot:   snap,
		Bars:       bars,
	}, true
}

// snapshotFromSeries derives the snapshot from an index-aligned series.
// The last price is the last non-nil close scanning backward; the prior
// close is the first non-nil close strictly before it. Nil entries are
// skipped, never read as zero.
func snapshotFromSeries(s *yahoo.Series) (contracts.Snapshot, bool) {
	lastIdx := -1
	for i := len(s.Close) - 1; i >= 0; i-- {
		if s.Close[i] != nil {
			lastIdx = i
			break
		}
	}
	if lastIdx < 0 {
		return contracts.Snapshot{}, false
	}

	priorIdx := -1
	for i := lastIdx - 1; i >= 0; i-- {
		if s.Close[i] != nil {
			priorIdx = i
			break
		}
	}
	if priorIdx < 0 {
		return contracts.Snapshot{}, false
	}

	last := *s.Close[lastIdx]
	prior := *s.Close[priorIdx]
	if last == 0 || prior == 0 {
		return contracts.Snapshot{}, false
	}

	var volume int64
	if lastIdx < len(s.Volume) && s.Volume[lastIdx] != nil {
		volume = *s.Volume[lastIdx]
	}

	return contracts.Snapshot{
		LastPrice:     last,
		LastVolume:    volume,
		PriorClose:    prior,
		ChangePercent: round2((last - prior) / prior * 100),
	}, true
}

// round2 rounds to 2 decimal places
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
