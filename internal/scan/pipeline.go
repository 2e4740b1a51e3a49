// Package scan orchestrates one poll cycle end to end.
package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yucheng-lin/twscan/internal/calendar"
	"github.com/yucheng-lin/twscan/internal/contracts"
	"github.com/yucheng-lin/twscan/internal/indicator"
	"github.com/yucheng-lin/twscan/internal/notify"
	"github.com/yucheng-lin/twscan/internal/quote"
	"github.com/yucheng-lin/twscan/internal/report"
	"github.com/yucheng-lin/twscan/internal/screen"
	"github.com/yucheng-lin/twscan/internal/store"
	"github.com/yucheng-lin/twscan/internal/universe"
	"github.com/yucheng-lin/twscan/pkg/config"
	"github.com/yucheng-lin/twscan/pkg/logger"
)

// Pipeline wires the scan stages together and runs poll cycles
type Pipeline struct {
	cfg      *config.Config
	strategy *screen.Strategy
	resolver *universe.Resolver
	fetcher  *quote.Fetcher
	engine   *indicator.Engine
	screener *screen.Screener
	reporter *report.Reporter
	dedup    *report.DedupGate
	guard    *calendar.Guard
	line     *notify.Client
	store    *store.Store
	logger   *logger.Logger
}

// New creates a new pipeline
func New(
	cfg *config.Config,
	strategy *screen.Strategy,
	resolver *universe.Resolver,
	fetcher *quote.Fetcher,
	engine *indicator.Engine,
	screener *screen.Screener,
	reporter *report.Reporter,
	dedup *report.DedupGate,
	guard *calendar.Guard,
	line *notify.Client,
	st *store.Store,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		strategy: strategy,
		resolver: resolver,
		fetcher:  fetcher,
		engine:   engine,
		screener: screener,
		reporter: reporter,
		dedup:    dedup,
		guard:    guard,
		line:     line,
		store:    st,
		logger:   log.WithField("module", "scan"),
	}
}

// workerResult is one instrument's outcome inside the pool
type workerResult struct {
	pick      *contracts.Pick
	reason    string
	truncated bool
}

// RunCycle executes one poll cycle. force bypasses the scheduler guard for
// manual triggers. A returned error means the cycle failed outright
// (configuration or state problems) and is never conflated with a cycle
// that legitimately found nothing.
func (p *Pipeline) RunCycle(ctx context.Context, profileOverride string, force bool) (*contracts.CycleResult, error) {
	started := time.Now()
	now := started.In(p.cfg.Location())

	if !force {
		if ok, reason := p.guard.ShouldRun(now); !ok {
			p.logger.WithField("reason", reason).Info("Cycle skipped by scheduler guard")
			result := &contracts.CycleResult{
				Outcome:    contracts.CycleSkipped,
				SkipReason: reason,
				Duration:   time.Since(started),
			}
			p.recordCycle(result)
			return result, nil
		}
	}

	profileName, profile, err := p.strategy.SelectProfile(now, profileOverride)
	if err != nil {
		return nil, fmt.Errorf("select profile: %w", err)
	}

	uni, err := p.resolver.Resolve(ctx, p.cfg.Universe.Directive)
	if err != nil {
		return nil, fmt.Errorf("resolve universe: %w", err)
	}

	picks, truncated := p.fetchAndScreen(ctx, uni.Instruments, profile)

	rep := p.reporter.Render(picks, profileName, profile, now)

	result := &contracts.CycleResult{
		Profile:      profileName,
		UniverseSize: len(uni.Instruments),
		Fallback:     uni.Fallback,
		Truncated:    truncated,
		Picks:        picks,
		Report:       rep,
	}

	feed := p.cfg.Line.To
	if feed == "" {
		feed = "default"
	}

	deliver, err := p.dedup.ShouldDeliver(feed, now, rep)
	if err != nil {
		return nil, fmt.Errorf("dedup check: %w", err)
	}

	switch {
	case !deliver:
		result.Outcome = contracts.CycleSuppressed
	case len(picks) == 0:
		result.Outcome = contracts.CycleNoMatches
	default:
		result.Outcome = contracts.CycleDelivered
	}

	if deliver && p.line.Enabled() {
		if failed := p.line.PushPages(ctx, rep.Pages); failed > 0 {
			// data was computed correctly; only the notification leg failed
			p.logger.WithFields(map[string]interface{}{
				"failed_pages": failed,
				"total_pages":  len(rep.Pages),
			}).Warn("Some report pages were not delivered")
		}
	}

	result.Duration = time.Since(started)
	p.recordCycle(result)

	p.logger.WithFields(map[string]interface{}{
		"outcome":   string(result.Outcome),
		"profile":   profileName,
		"universe":  result.UniverseSize,
		"fallback":  result.Fallback,
		"picks":     len(picks),
		"pages":     len(rep.Pages),
		"truncated": truncated,
		"duration":  result.Duration,
	}).Info("Cycle completed")

	return result, nil
}

// fetchAndScreen runs the bounded worker pool over the universe.
// Instruments not yet processed when the soft deadline passes are excluded
// from this cycle's results rather than failing it.
func (p *Pipeline) fetchAndScreen(ctx context.Context, instruments []contracts.Instrument, profile screen.Profile) ([]contracts.Pick, int) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Scan.CycleDeadline)
	defer cancel()

	req := p.screener.Requirements(profile)
	needBars := req.Any()

	jobs := make(chan contracts.Instrument, len(instruments))
	results := make(chan workerResult, len(instruments))

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Scan.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for inst := range jobs {
				results <- p.process(ctx, inst, profile, req, needBars)
			}
		}()
	}

	for _, inst := range instruments {
		jobs <- inst
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	// All picks are collected into one batch before sorting, so ranking
	// never depends on completion order.
	picks := make([]contracts.Pick, 0)
	rejects := make(map[string]int)
	truncated := 0

	for res := range results {
		switch {
		case res.truncated:
			truncated++
		case res.pick != nil:
			picks = append(picks, *res.pick)
		default:
			rejects[res.reason]++
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"total_input": len(instruments),
		"passed":      len(picks),
		"filters":     rejects,
		"truncated":   truncated,
	}).Info("Screening completed")

	return picks, truncated
}

// process fetches and scores one instrument
func (p *Pipeline) process(ctx context.Context, inst contracts.Instrument, profile screen.Profile, req indicator.Requirements, needBars bool) workerResult {
	if ctx.Err() != nil {
		return workerResult{truncated: true}
	}

	res := p.fetcher.Fetch(ctx, inst, needBars)
	bundle := p.engine.Compute(res.Bars, req)

	if reason := p.screener.Evaluate(res, bundle, profile); reason != "" {
		return workerResult{reason: reason}
	}

	return workerResult{pick: &contracts.Pick{
		Instrument:    inst,
		ChangePercent: res.Snapshot.ChangePercent,
		Volume:        res.Snapshot.LastVolume,
	}}
}

// recordCycle appends the cycle to the history store; a history failure is
// logged, never fatal
func (p *Pipeline) recordCycle(result *contracts.CycleResult) {
	rec := store.CycleRecord{
		Timestamp:    time.Now(),
		Profile:      result.Profile,
		Outcome:      string(result.Outcome),
		UniverseSize: result.UniverseSize,
		PickCount:    len(result.Picks),
		Fallback:     result.Fallback,
		Truncated:    result.Truncated,
	}
	if result.Report != nil {
		rec.Pages = len(result.Report.Pages)
	}

	if err := p.store.RecordCycle(rec); err != nil {
		p.logger.WithError(err).Warn("Failed to record cycle history")
	}
}
