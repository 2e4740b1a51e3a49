package isin

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"

	"github.com/yucheng-lin/twscan/internal/contracts"
	"github.com/yucheng-lin/twscan/pkg/httputil"
	"github.com/yucheng-lin/twscan/pkg/logger"
)

// Client fetches and parses the exchange ISIN listing pages.
// All registry-source HTTP calls go through this client.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
}

// Source describes one ISIN listing page
type Source struct {
	Name  string
	URL   string
	Board contracts.Segment // segment for non-fund rows on this page
}

// Listing is one cleanly mapped registry row.
// Rows that fail to map are skipped at the parse boundary, never propagated.
type Listing struct {
	Code     string
	Name     string
	Segment  contracts.Segment
	Category string
}

var (
	codeNamePattern = regexp.MustCompile(`^([A-Z0-9]{3,6})\s+(.+)$`)
	remarkPattern   = regexp.MustCompile(`\s*\(.*?\)\s*$`)
)

// NewClient creates a new ISIN registry client
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
	}
}

// Fetch retrieves one listing page and returns its equity and fund rows.
// Warrants, bonds, depositary receipts and similar categories are excluded.
func (c *Client) Fetch(ctx context.Context, src Source) ([]Listing, error) {
	resp, err := c.httpClient.Get(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s listing: %w", src.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s listing: unexpected status code: %d", src.Name, resp.StatusCode)
	}

	// The ISIN pages are served as BIG5
	reader := transform.NewReader(resp.Body, traditionalchinese.Big5.NewDecoder())

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse %s listing: %w", src.Name, err)
	}

	listings := c.parseDocument(doc, src)

	c.logger.WithFields(map[string]interface{}{
		"source": src.Name,
		"count":  len(listings),
	}).Debug("Fetched ISIN listings")

	return listings, nil
}

// parseDocument extracts listing rows from the first table of the page.
// Row layout: [0] "code␣name", [3] market, [4] category.
func (c *Client) parseDocument(doc *goquery.Document, src Source) []Listing {
	var listings []Listing

	doc.Find("table").First().Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header row
		}

		cells := row.Find("td")
		if cells.Length() < 7 {
			return
		}

		codeName := normalizeSpace(cells.Eq(0).Text())
		category := strings.TrimSpace(cells.Eq(4).Text())

		segment, ok := classify(category, codeName, src.Board)
		if !ok {
			return
		}

		m := codeNamePattern.FindStringSubmatch(codeName)
		if m == nil {
			return
		}

		name := remarkPattern.ReplaceAllString(strings.TrimSpace(m[2]), "")

		listings = append(listings, Listing{
			Code:     m[1],
			Name:     name,
			Segment:  segment,
			Category: category,
		})
	})

	return listings
}

// classify maps a registry category to a market segment.
// Only common equity and funds are retained.
func classify(category, codeName string, board contracts.Segment) (contracts.Segment, bool) {
	switch {
	case strings.Contains(strings.ToUpper(category), "ETF"),
		strings.Contains(strings.ToUpper(codeName), "ETF"):
		return contracts.SegmentFund, true
	case category == "股票":
		return board, true
	default:
		// 權證, 債券, 存託憑證, 受益憑證 and the rest
		return "", false
	}
}

// normalizeSpace collapses whitespace, including the full-width space the
// ISIN pages use between code and name.
func normalizeSpace(s string) string {
	s = strings.ReplaceAll(s, "　", " ")
	return strings.Join(strings.Fields(s), " ")
}
