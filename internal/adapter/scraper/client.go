// Package scraper reads the live POP status feed produced by the status-page scraper.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/pop-status-service/internal/domain"
)

// Client fetches the live status feed.
type Client struct {
	httpClient *http.Client
	feedURL    string
	logger     *slog.Logger
}

// NewClient creates a feed client for feedURL.
func NewClient(feedURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		feedURL:    feedURL,
		logger:     logger,
	}
}

// FetchStatuses returns the scraped status for every POP in the feed. When a
// code appears more than once the last entry wins.
func (c *Client) FetchStatuses(ctx context.Context) (domain.LiveStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, sourceErr(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, sourceErr(fmt.Errorf("%w: status feed request: %w", domain.ErrUpstreamUnreachable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, sourceErr(fmt.Errorf("%w: status feed error: status %d: %s", domain.ErrUpstreamUnreachable, resp.StatusCode, body))
	}

	var entries []statusEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, sourceErr(fmt.Errorf("%w: decode status feed: %w", domain.ErrMalformedPayload, err))
	}
	if entries == nil {
		return nil, sourceErr(fmt.Errorf("%w: status feed body is null", domain.ErrMalformedPayload))
	}

	live := make(domain.LiveStatus, len(entries))
	for _, e := range entries {
		live[e.Code] = e.Status
	}
	c.logger.Debug("status feed fetched", "entries", len(entries))
	return live, nil
}

func sourceErr(err error) error {
	return &domain.SourceError{Source: domain.SourceLiveStatus, Err: err}
}

// Scraper feed response type.

type statusEntry struct {
	Code   string `json:"code"`
	Status string `json:"status"`
}
