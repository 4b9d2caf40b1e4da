package dto

import (
	"encoding/json"

	"github.com/geo-drilldown/internal/colorscale"
	"github.com/geo-drilldown/internal/domain"
)

// Frame is everything a renderer needs to draw the current view.
type Frame struct {
	SessionID   string                  `json:"session_id"`
	Level       domain.AdminLevel       `json:"level"`
	Scope       string                  `json:"scope"`
	Path        domain.SelectionPath    `json:"path"`
	Metric      domain.Metric           `json:"metric"`
	HoveredCode string                  `json:"hovered_code,omitempty"`
	Loading     bool                    `json:"loading"`
	Error       *FrameError             `json:"error,omitempty"`
	Features    []FeatureView           `json:"features"`
	Scale       colorscale.Scale        `json:"scale"`
	Legend      []colorscale.LegendStep `json:"legend"`
	Breadcrumbs []domain.Breadcrumb     `json:"breadcrumbs"`
}

type FrameError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FeatureView is one visible feature with its fill color.
type FeatureView struct {
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	ParentCode string          `json:"parent_code,omitempty"`
	Value      float64         `json:"value"`
	Label      string          `json:"label"`
	Color      string          `json:"color"`
	Hovered    bool            `json:"hovered"`
	Selected   bool            `json:"selected"`
	Metrics    domain.Metrics  `json:"metrics"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
}

type SessionCreatedResponse struct {
	SessionID string `json:"session_id"`
	Frame     *Frame `json:"frame"`
}

type SearchResponse struct {
	Results []domain.SearchResult `json:"results"`
	Total   int                   `json:"total"`
}

type LegendResponse struct {
	Metric domain.Metric           `json:"metric"`
	Scale  colorscale.Scale        `json:"scale"`
	Steps  []colorscale.LegendStep `json:"steps"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}
