// Package geoapi reads geodata from a remote drill-down service.
package geoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/config"
	"github.com/geo-drilldown/internal/domain"
	"github.com/geo-drilldown/internal/domain/repository"
	"github.com/geo-drilldown/internal/pkg/errors"
)

const maxErrorBody = 4 << 10

type client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

type geodataResponse struct {
	Data []domain.GeoFeature `json:"data"`
}

// NewClient returns a source backed by GET {base}/api/v1/geodata/{level}?parent=.
func NewClient(cfg *config.GeoSourceConfig, logger *zap.Logger) repository.GeoSourceRepository {
	return &client{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		baseURL:    strings.TrimRight(cfg.HTTPBaseURL, "/"),
		logger:     logger.With(zap.String("component", "geoapi")),
	}
}

func (c *client) FetchFeatures(ctx context.Context, level domain.AdminLevel, parentCode string) ([]domain.GeoFeature, error) {
	endpoint := fmt.Sprintf("%s/api/v1/geodata/%s", c.baseURL, level.Plural())
	if parentCode != "" {
		endpoint += "?" + url.Values{"parent": {parentCode}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Fetching geodata", zap.String("url", endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to execute request", zap.String("url", endpoint), zap.Error(err))
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.ErrNotLoaded.WithReason(fmt.Sprintf("%s under %q", level, parentCode))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error("Geodata API returned error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, fmt.Errorf("geodata API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var out geodataResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.logger.Error("Failed to decode response", zap.Error(err))
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	for i := range out.Data {
		out.Data[i].Level = level
		out.Data[i].ParentCode = parentCode
	}
	return out.Data, nil
}
