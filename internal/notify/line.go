// Package notify delivers rendered report pages through the LINE
// Messaging API.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/yucheng-lin/twscan/pkg/config"
	"github.com/yucheng-lin/twscan/pkg/httputil"
	"github.com/yucheng-lin/twscan/pkg/logger"
)

const pushEndpoint = "https://api.line.me/v2/bot/message/push"

// Client handles LINE Messaging API push delivery
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	cfg        config.LineConfig
	endpoint   string
}

// NewClient creates a new LINE client
func NewClient(httpClient *httputil.Client, cfg config.LineConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "notify"),
		cfg:        cfg,
		endpoint:   pushEndpoint,
	}
}

// Enabled reports whether delivery is configured
func (c *Client) Enabled() bool {
	return c.cfg.Enabled
}

// pushRequest is the LINE push message payload
type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Push sends one text page to the configured destination
func (c *Client) Push(ctx context.Context, text string) error {
	payload := pushRequest{
		To:       c.cfg.To,
		Messages: []textMessage{{Type: "text", Text: text}},
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.cfg.ChannelToken,
	}

	resp, err := c.httpClient.PostJSON(ctx, c.endpoint, payload, headers)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("push rejected: status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// PushPages sends every page in order. A failed page is logged and counted
// but does not block the remaining pages.
func (c *Client) PushPages(ctx context.Context, pages []string) (failed int) {
	for i, page := range pages {
		if err := c.Push(ctx, page); err != nil {
			failed++
			c.logger.WithError(err).WithField("page", i+1).Error("Page delivery failed")
		}
	}
	return failed
}
