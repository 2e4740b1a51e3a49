package scan

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yucheng-lin/twscan/internal/calendar"
	"github.com/yucheng-lin/twscan/internal/contracts"
	"github.com/yucheng-lin/twscan/internal/external/isin"
	"github.com/yucheng-lin/twscan/internal/external/yahoo"
	"github.com/yucheng-lin/twscan/internal/indicator"
	"github.com/yucheng-lin/twscan/internal/notify"
	"github.com/yucheng-lin/twscan/internal/quote"
	"github.com/yucheng-lin/twscan/internal/report"
	"github.com/yucheng-lin/twscan/internal/screen"
	"github.com/yucheng-lin/twscan/internal/store"
	"github.com/yucheng-lin/twscan/internal/universe"
	"github.com/yucheng-lin/twscan/pkg/config"
	"github.com/yucheng-lin/twscan/pkg/httputil"
	"github.com/yucheng-lin/twscan/pkg/logger"
)

// chartFor serves a fixed daily series per code: 2330 clears the live
// thresholds, 2317 falls short of the change floor.
func chartFor(code string) string {
	closes := map[string][4]float64{
		"2330": {100, 102, 101, 105}, // +3.96%
		"2317": {100, 100, 100, 101}, // +1.00%
	}[code]
	volumes := [4]int64{1000, 1200, 900, 3000}

	var cs, vs, ts []string
	for i := 0; i < 4; i++ {
		cs = append(cs, fmt.Sprintf("%g", closes[i]))
		vs = append(vs, fmt.Sprintf("%d", volumes[i]))
		ts = append(ts, fmt.Sprintf("%d", 1700000000+i*86400))
	}
	return fmt.Sprintf(`{"chart":{"result":[{"timestamp":[%s],"indicators":{"quote":[{
		"open":[%s],"high":[%s],"low":[%s],"close":[%s],"volume":[%s]}]}}],"error":null}}`,
		strings.Join(ts, ","), strings.Join(cs, ","), strings.Join(cs, ","),
		strings.Join(cs, ","), strings.Join(cs, ","), strings.Join(vs, ","))
}

func testStrategy() *screen.Strategy {
	return &screen.Strategy{
		Profiles: map[string]screen.Profile{
			screen.ProfilePremarket: {MinChangePercent: 1.0, MinVolume: 500},
			screen.ProfileLive:      {MinChangePercent: 2.0, MinVolume: 2000},
		},
	}
}

func newTestPipeline(t *testing.T, cal screen.Calendar) *Pipeline {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		symbol := parts[len(parts)-1]
		code := strings.SplitN(symbol, ".", 2)[0]
		w.Write([]byte(chartFor(code)))
	}))
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Scan:     config.ScanConfig{Workers: 2, CycleDeadline: 30 * time.Second},
		Universe: config.UniverseConfig{Directive: "2330,2317"},
		Quote: config.QuoteConfig{
			BaseURL:      server.URL,
			WindowDays:   60,
			FetchTimeout: 5 * time.Second,
		},
		Report:    config.ReportConfig{MaxLines: 20, MaxChars: 2000},
		StorePath: filepath.Join(t.TempDir(), "test.db"),
		Timezone:  "UTC",
	}

	log := logger.NewNop()
	strategy := testStrategy()

	guard, err := calendar.NewGuard(cal, cfg.Location())
	require.NoError(t, err)

	st, err := store.New(cfg.StorePath, log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	httpClient := httputil.New(log, 5*time.Second).DisableRetry()

	return New(
		cfg,
		strategy,
		universe.NewResolver(isin.NewClient(httpClient, log), cfg.Universe, log),
		quote.NewFetcher(yahoo.NewClient(httpClient, log, cfg.Quote.BaseURL), cfg.Quote, log),
		indicator.NewEngine(log),
		screen.NewScreener(log),
		report.NewReporter(cfg.Report, log),
		report.NewDedupGate(st, log),
		guard,
		notify.NewClient(httpClient, cfg.Line, log),
		st,
		log,
	)
}

func TestRunCycleDelivered(t *testing.T) {
	p := newTestPipeline(t, screen.Calendar{})

	result, err := p.RunCycle(context.Background(), screen.ProfileLive, true)
	require.NoError(t, err)

	assert.Equal(t, contracts.CycleDelivered, result.Outcome)
	assert.Equal(t, screen.ProfileLive, result.Profile)
	assert.Equal(t, 2, result.UniverseSize)
	assert.False(t, result.Fallback)
	assert.Zero(t, result.Truncated)

	require.Len(t, result.Picks, 1)
	assert.Equal(t, "2330", result.Picks[0].Instrument.Code)
	assert.Equal(t, 3.96, result.Picks[0].ChangePercent)

	require.NotNil(t, result.Report)
	require.Len(t, result.Report.Pages, 1)
	assert.Contains(t, result.Report.Pages[0], "1. 2330 +3.96% 3,000")
}

func TestRunCycleSuppressedOnRepeat(t *testing.T) {
	p := newTestPipeline(t, screen.Calendar{})

	first, err := p.RunCycle(context.Background(), screen.ProfileLive, true)
	require.NoError(t, err)
	assert.Equal(t, contracts.CycleDelivered, first.Outcome)

	second, err := p.RunCycle(context.Background(), screen.ProfileLive, true)
	require.NoError(t, err)
	assert.Equal(t, contracts.CycleSuppressed, second.Outcome)
}

func TestRunCycleNoMatches(t *testing.T) {
	p := newTestPipeline(t, screen.Calendar{})
	// A floor nothing in the fixture clears
	p.strategy.Profiles["steep"] = screen.Profile{MinChangePercent: 50}

	result, err := p.RunCycle(context.Background(), "steep", true)
	require.NoError(t, err)

	assert.Equal(t, contracts.CycleNoMatches, result.Outcome)
	assert.Empty(t, result.Picks)
	require.NotNil(t, result.Report)
	require.Len(t, result.Report.Pages, 1)
	assert.Contains(t, result.Report.Pages[0], "尚無符合條件的個股")
}

func TestRunCycleGuardSkip(t *testing.T) {
	// Closed every day of the week
	p := newTestPipeline(t, screen.Calendar{
		ClosedWeekdays: []string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"},
	})

	result, err := p.RunCycle(context.Background(), "", false)
	require.NoError(t, err)

	assert.Equal(t, contracts.CycleSkipped, result.Outcome)
	assert.Equal(t, "non-trading weekday", result.SkipReason)
	assert.Nil(t, result.Report)
}

func TestRunCycleForceBypassesGuard(t *testing.T) {
	p := newTestPipeline(t, screen.Calendar{
		ClosedWeekdays: []string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"},
	})

	result, err := p.RunCycle(context.Background(), screen.ProfileLive, true)
	require.NoError(t, err)
	assert.NotEqual(t, contracts.CycleSkipped, result.Outcome)
}

func TestRunCycleUnknownProfile(t *testing.T) {
	p := newTestPipeline(t, screen.Calendar{})

	if _, err := p.RunCycle(context.Background(), "nonsense", true); err == nil {
		t.Fatal("unknown profile override must fail the cycle")
	}
}

func TestRunCycleRecordsHistory(t *testing.T) {
	p := newTestPipeline(t, screen.Calendar{})

	_, err := p.RunCycle(context.Background(), screen.ProfileLive, true)
	require.NoError(t, err)

	records, err := p.store.RecentCycles(5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, string(contracts.CycleDelivered), records[0].Outcome)
	assert.Equal(t, 1, records[0].PickCount)
	assert.Equal(t, 2, records[0].UniverseSize)
}
