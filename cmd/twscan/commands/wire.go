package commands

import (
	"fmt"
	"time"

	"github.com/yucheng-lin/twscan/internal/calendar"
	"github.com/yucheng-lin/twscan/internal/external/isin"
	"github.com/yucheng-lin/twscan/internal/external/yahoo"
	"github.com/yucheng-lin/twscan/internal/indicator"
	"github.com/yucheng-lin/twscan/internal/notify"
	"github.com/yucheng-lin/twscan/internal/quote"
	"github.com/yucheng-lin/twscan/internal/report"
	"github.com/yucheng-lin/twscan/internal/scan"
	"github.com/yucheng-lin/twscan/internal/screen"
	"github.com/yucheng-lin/twscan/internal/store"
	"github.com/yucheng-lin/twscan/internal/universe"
	"github.com/yucheng-lin/twscan/pkg/config"
	"github.com/yucheng-lin/twscan/pkg/httputil"
	"github.com/yucheng-lin/twscan/pkg/logger"
)

// buildPipeline wires the full scan pipeline from configuration.
// The caller owns the returned store and must Close it.
func buildPipeline(cfg *config.Config, log *logger.Logger) (*scan.Pipeline, *store.Store, error) {
	strategy, err := screen.LoadStrategy(cfg.StrategyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load strategy: %w", err)
	}

	guard, err := calendar.NewGuard(strategy.Calendar, cfg.Location())
	if err != nil {
		return nil, nil, fmt.Errorf("build calendar guard: %w", err)
	}

	st, err := store.New(cfg.StorePath, log)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	isinHTTP := httputil.New(log, 30*time.Second)
	if !cfg.Universe.TLSVerify {
		isinHTTP = isinHTTP.WithInsecureTLS()
	}
	quoteHTTP := httputil.New(log, cfg.Quote.FetchTimeout).
		WithRateLimit(cfg.Quote.RatePerSec)
	lineHTTP := httputil.New(log, 10*time.Second)

	registry := isin.NewClient(isinHTTP, log)
	chart := yahoo.NewClient(quoteHTTP, log, cfg.Quote.BaseURL)

	resolver := universe.NewResolver(registry, cfg.Universe, log)
	fetcher := quote.NewFetcher(chart, cfg.Quote, log)
	engine := indicator.NewEngine(log)
	screener := screen.NewScreener(log)
	reporter := report.NewReporter(cfg.Report, log)
	dedup := report.NewDedupGate(st, log)
	line := notify.NewClient(lineHTTP, cfg.Line, log)

	pipeline := scan.New(
		cfg,
		strategy,
		resolver,
		fetcher,
		engine,
		screener,
		reporter,
		dedup,
		guard,
		line,
		st,
		log,
	)

	return pipeline, st, nil
}
