package fastly

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/pop-status-service/internal/domain"
)

// CatalogClient lists Fastly POPs from the datacenters endpoint.
type CatalogClient struct {
	api apiClient
}

// NewCatalogClient creates a catalog client for the API rooted at baseURL.
func NewCatalogClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *CatalogClient {
	return &CatalogClient{api: newAPIClient(baseURL, token, timeout, logger)}
}

// FetchPops returns every POP in the catalog, in the order the API lists them.
func (c *CatalogClient) FetchPops(ctx context.Context) ([]domain.PopRecord, error) {
	req, err := c.api.newRequest(ctx, http.MethodGet, c.api.baseURL+"/datacenters", nil)
	if err != nil {
		return nil, sourceErr(err)
	}

	resp, err := c.api.do(req)
	if err != nil {
		return nil, sourceErr(err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, sourceErr(statusError(resp))
	}

	var centers []datacenter
	if err := json.NewDecoder(resp.Body).Decode(&centers); err != nil {
		return nil, sourceErr(fmt.Errorf("%w: decode datacenters: %w", domain.ErrMalformedPayload, err))
	}
	if centers == nil {
		return nil, sourceErr(fmt.Errorf("%w: datacenters body is null", domain.ErrMalformedPayload))
	}

	pops := make([]domain.PopRecord, 0, len(centers))
	for _, dc := range centers {
		if dc.Code == "" {
			return nil, sourceErr(fmt.Errorf("%w: datacenter without code", domain.ErrMalformedPayload))
		}
		pops = append(pops, domain.PopRecord{
			Code:      dc.Code,
			Name:      dc.Name,
			Group:     dc.Group,
			Latitude:  dc.Coordinates.Latitude,
			Longitude: dc.Coordinates.Longitude,
			Shield:    dc.Shield,
		})
	}
	c.api.logger.Debug("catalog fetched", "pops", len(pops))
	return pops, nil
}

func sourceErr(err error) error {
	return &domain.SourceError{Source: domain.SourceCatalog, Err: err}
}

// Fastly datacenters API response types.

type datacenter struct {
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Group       string      `json:"group"`
	Coordinates coordinates `json:"coordinates"`
	Shield      *string     `json:"shield"`
}

type coordinates struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
