package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Metrics holds the per-feature measurements.
type Metrics struct {
	Sales        float64 `json:"sales" db:"sales"`
	Stores       float64 `json:"stores" db:"stores"`
	Transactions float64 `json:"transactions" db:"transactions"`
	Growth       float64 `json:"growth" db:"growth"`
}

// Value returns the measurement for m, or 0 for an unknown metric.
func (ms Metrics) Value(m Metric) float64 {
	switch m {
	case MetricSales:
		return ms.Sales
	case MetricStores:
		return ms.Stores
	case MetricTransactions:
		return ms.Transactions
	case MetricGrowth:
		return ms.Growth
	default:
		return 0
	}
}

// GeoFeature is one administrative area. Code is unique within its level.
// Geometry is opaque GeoJSON handed through to the renderer.
type GeoFeature struct {
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	ParentCode string          `json:"parent_code,omitempty"`
	Level      AdminLevel      `json:"level"`
	Metrics    Metrics         `json:"metrics"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
}

// Validate checks identity and metric invariants. Parent existence is checked by the store.
func (f GeoFeature) Validate() error {
	if f.Code == "" {
		return fmt.Errorf("feature code is empty")
	}
	if !f.Level.Valid() {
		return fmt.Errorf("feature %s: invalid level %d", f.Code, int(f.Level))
	}
	if f.Level == LevelRegion && f.ParentCode != "" {
		return fmt.Errorf("feature %s: region must not have a parent", f.Code)
	}
	if f.Level != LevelRegion && f.ParentCode == "" {
		return fmt.Errorf("feature %s: %s requires a parent", f.Code, f.Level)
	}
	for _, m := range AllMetrics {
		v := f.Metrics.Value(m)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("feature %s: %s is not finite", f.Code, m)
		}
		if v < 0 && !m.AllowsNegative() {
			return fmt.Errorf("feature %s: %s must be non-negative, got %v", f.Code, m, v)
		}
	}
	return nil
}

// ScopeKey identifies a cached feature set: all children of ParentCode at Level.
// The Region scope has an empty ParentCode.
type ScopeKey struct {
	Level      AdminLevel
	ParentCode string
}

func RootScope() ScopeKey {
	return ScopeKey{Level: LevelRegion}
}

func (k ScopeKey) String() string {
	if k.ParentCode == "" {
		return k.Level.String()
	}
	return k.Level.String() + ":" + k.ParentCode
}

// FindFeature returns the feature with code from features.
func FindFeature(features []GeoFeature, code string) (GeoFeature, bool) {
	for _, f := range features {
		if f.Code == code {
			return f, true
		}
	}
	return GeoFeature{}, false
}
