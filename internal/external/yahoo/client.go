package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yucheng-lin/twscan/internal/contracts"
	"github.com/yucheng-lin/twscan/pkg/httputil"
	"github.com/yucheng-lin/twscan/pkg/logger"
)

// Client handles communication with the Yahoo-style chart API.
// All quote-source HTTP calls go through this client.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// Series is one chart response with index-aligned arrays.
// Nil entries are legal (halted sessions, thin intraday minutes) and must be
// skipped by callers, never read as zero.
type Series struct {
	Timestamps []int64
	Open       []*float64
	High       []*float64
	Low        []*float64
	Close      []*float64
	Volume     []*int64
}

// Len returns the number of points in the series
func (s *Series) Len() int {
	return len(s.Timestamps)
}

// NewClient creates a new chart API client
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
	}
}

// FetchSession fetches a short window whose final point is the in-progress
// session, giving the live last price plus enough history for a prior close.
func (c *Client) FetchSession(ctx context.Context, symbol string) (*Series, error) {
	return c.fetchChart(ctx, symbol, "5d", "1d")
}

// FetchDaily fetches trailing daily bars covering at least windowDays sessions
func (c *Client) FetchDaily(ctx context.Context, symbol string, windowDays int) (*Series, error) {
	return c.fetchChart(ctx, symbol, rangeForDays(windowDays), "1d")
}

// fetchChart calls the chart endpoint and maps the response
func (c *Client) fetchChart(ctx context.Context, symbol, rng, interval string) (*Series, error) {
	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s", c.baseURL, symbol, rng, interval)

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("symbol %s: not found", symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("symbol %s: unexpected status code: %d", symbol, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}

	series, err := parseChartResponse(body)
	if err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"range":    rng,
		"interval": interval,
		"points":   series.Len(),
	}).Debug("Fetched chart")

	return series, nil
}

// chartResponse mirrors the chart API envelope
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// parseChartResponse decodes the chart envelope into an aligned series
func parseChartResponse(body []byte) (*Series, error) {
	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("decode chart response: %w", err)
	}

	if cr.Chart.Error != nil {
		return nil, fmt.Errorf("chart error: %s: %s", cr.Chart.Error.Code, cr.Chart.Error.Description)
	}

	if len(cr.Chart.Result) == 0 {
		return nil, fmt.Errorf("empty chart result")
	}

	result := cr.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart result has no quote arrays")
	}

	q := result.Indicators.Quote[0]
	series := &Series{
		Timestamps: result.Timestamp,
		Open:       q.Open,
		High:       q.High,
		Low:        q.Low,
		Close:      q.Close,
		Volume:     q.Volume,
	}

	return series, nil
}

// Bars converts the fully populated points of a daily series into bars,
// oldest first. Points with any nil field are dropped.
func (s *Series) Bars() []contracts.Bar {
	bars := make([]contracts.Bar, 0, s.Len())
	for i := range s.Timestamps {
		if i >= len(s.Close) || s.Close[i] == nil {
			continue
		}
		if i >= len(s.Open) || s.Open[i] == nil ||
			i >= len(s.High) || s.High[i] == nil ||
			i >= len(s.Low) || s.Low[i] == nil ||
			i >= len(s.Volume) || s.Volume[i] == nil {
			continue
		}

		bars = append(bars, contracts.Bar{
			Date:   time.Unix(s.Timestamps[i], 0).UTC(),
			Open:   *s.Open[i],
			High:   *s.High[i],
			Low:    *s.Low[i],
			Close:  *s.Close[i],
			Volume: *s.Volume[i],
		})
	}
	return bars
}

// SymbolCandidates returns quote symbols to try for an instrument.
// Bare Taiwan codes try the TWSE suffix first, then the TPEx one; an
// explicit suffix from the watchlist is honored as-is.
func SymbolCandidates(inst contracts.Instrument) []string {
	if inst.Suffix != "" {
		return []string{inst.Code + inst.Suffix}
	}

	switch inst.Segment {
	case contracts.SegmentSecondary:
		return []string{inst.Code + ".TWO", inst.Code + ".TW"}
	default:
		return []string{inst.Code + ".TW", inst.Code + ".TWO"}
	}
}

// rangeForDays maps a trailing window to the nearest supported range token
func rangeForDays(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	default:
		return "1y"
	}
}
