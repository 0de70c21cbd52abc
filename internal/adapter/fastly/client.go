// Package fastly talks to the Fastly API: the datacenter catalog and the edge
// dictionary that holds the override map.
package fastly

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/pop-status-service/internal/domain"
)

// maxErrorBody bounds how much of a failed response is copied into an error.
const maxErrorBody = 512

// apiClient holds what every Fastly API call needs.
type apiClient struct {
	token      string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

func newAPIClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) apiClient {
	return apiClient{
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
	}
}

func (c *apiClient) newRequest(ctx context.Context, method, fullURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Fastly-Key", c.token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req. Transport failures are wrapped as domain.ErrUpstreamUnreachable;
// the caller owns the response body.
func (c *apiClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", domain.ErrUpstreamUnreachable, req.Method, req.URL.Path, err)
	}
	return resp, nil
}

// statusError drains a non-2xx response into an ErrUpstreamUnreachable error.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("%w: fastly API error: status %d: %s", domain.ErrUpstreamUnreachable, resp.StatusCode, body)
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
