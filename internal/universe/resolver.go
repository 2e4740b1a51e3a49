package universe

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/yucheng-lin/twscan/internal/contracts"
	"github.com/yucheng-lin/twscan/internal/external/isin"
	"github.com/yucheng-lin/twscan/pkg/config"
	"github.com/yucheng-lin/twscan/pkg/logger"
)

// DirectiveAll selects the whole market instead of an explicit list
const DirectiveAll = "ALL"

// tokenPattern validates explicit watchlist entries: a 3-6 character
// alphanumeric code with an optional market suffix.
var tokenPattern = regexp.MustCompile(`^([A-Z0-9]{3,6})(\.TWO|\.TW)?$`)

// safetyList keeps the scan alive when every registry source is down.
// A fallback universe is always flagged so it cannot be mistaken for a
// genuine all-market result.
var safetyList = []string{"2330", "2317", "2454", "2303", "2882", "2603"}

// Resolver turns a universe directive into a deduplicated instrument list
type Resolver struct {
	registry *isin.Client
	cfg      config.UniverseConfig
	logger   *logger.Logger
}

// Result is a resolved universe for one scan cycle
type Result struct {
	Instruments []contracts.Instrument
	Fallback    bool // true when the safety list replaced failed registry sources
}

// NewResolver creates a new universe resolver
func NewResolver(registry *isin.Client, cfg config.UniverseConfig, log *logger.Logger) *Resolver {
	return &Resolver{
		registry: registry,
		cfg:      cfg,
		logger:   log.WithField("module", "universe"),
	}
}

// Resolve produces the instrument list for one cycle.
// An empty directive is a configuration error, not an empty universe.
func (r *Resolver) Resolve(ctx context.Context, directive string) (*Result, error) {
	directive = strings.TrimSpace(directive)
	if directive == "" {
		return nil, fmt.Errorf("universe directive is empty")
	}

	if strings.EqualFold(directive, DirectiveAll) {
		return r.resolveAll(ctx)
	}

	return r.resolveExplicit(directive)
}

// resolveExplicit parses a comma-separated watchlist.
// Bad tokens are dropped, never fail the whole batch.
func (r *Resolver) resolveExplicit(directive string) (*Result, error) {
	seen := make(map[string]bool)
	instruments := make([]contracts.Instrument, 0)

	for _, raw := range strings.Split(directive, ",") {
		token := strings.ToUpper(strings.TrimSpace(raw))
		if token == "" {
			continue
		}

		m := tokenPattern.FindStringSubmatch(token)
		if m == nil {
			r.logger.WithField("token", raw).Debug("Dropping invalid watchlist token")
			continue
		}

		code, suffix := m[1], m[2]
		if seen[code] {
			continue
		}
		seen[code] = true

		segment := contracts.SegmentPrimary
		if suffix == ".TWO" {
			segment = contracts.SegmentSecondary
		}

		instruments = append(instruments, contracts.Instrument{
			Code:    code,
			Segment: segment,
			Suffix:  suffix,
		})
	}

	if len(instruments) == 0 {
		return nil, fmt.Errorf("watchlist %q contains no valid tokens", directive)
	}

	r.logger.WithField("count", len(instruments)).Info("Resolved explicit universe")
	return &Result{Instruments: instruments}, nil
}

// resolveAll merges every configured registry source.
// A failed source is logged and skipped; only when all sources fail does the
// safety list take over.
func (r *Resolver) resolveAll(ctx context.Context) (*Result, error) {
	sources := []isin.Source{
		{Name: "twse", URL: r.cfg.TWSEURL, Board: contracts.SegmentPrimary},
		{Name: "tpex", URL: r.cfg.TPExURL, Board: contracts.SegmentSecondary},
	}

	seen := make(map[string]bool)
	instruments := make([]contracts.Instrument, 0, 2048)
	failures := 0

	for _, src := range sources {
		listings, err := r.registry.Fetch(ctx, src)
		if err != nil {
			failures++
			r.logger.WithError(err).WithField("source", src.Name).Warn("Registry source failed")
			continue
		}

		for _, l := range listings {
			if seen[l.Code] {
				continue
			}
			seen[l.Code] = true

			instruments = append(instruments, contracts.Instrument{
				Code:    l.Code,
				Name:    l.Name,
				Segment: l.Segment,
			})
		}
	}

	if failures == len(sources) {
		r.logger.Warn("All registry sources failed, using safety list")
		return r.fallbackResult(), nil
	}

	r.logger.WithFields(map[string]interface{}{
		"count":          len(instruments),
		"failed_sources": failures,
	}).Info("Resolved all-market universe")

	return &Result{Instruments: instruments}, nil
}

// fallbackResult builds the fixed safety universe
func (r *Resolver) fallbackResult() *Result {
	instruments := make([]contracts.Instrument, 0, len(safetyList))
	for _, code := range safetyList {
		instruments = append(instruments, contracts.Instrument{
			Code:    code,
			Segment: contracts.SegmentPrimary,
		})
	}
	return &Result{Instruments: instruments, Fallback: true}
}
