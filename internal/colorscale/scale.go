// Package colorscale maps metric values of the visible feature set onto
// sequential palettes.
package colorscale

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/geo-drilldown/internal/domain"
)

const DefaultLegendSteps = 5

// Scale is relative to the feature set it was built from, never absolute.
type Scale struct {
	Metric domain.Metric `json:"metric"`
	Min    float64       `json:"min"`
	Max    float64       `json:"max"`
	Count  int           `json:"count"`
}

type LegendStep struct {
	Value float64        `json:"value"`
	Color colorful.Color `json:"-"`
	Hex   string         `json:"color"`
	Label string         `json:"label"`
}

// Build computes min and max of metric over features.
func Build(features []domain.GeoFeature, metric domain.Metric) Scale {
	s := Scale{Metric: metric, Count: len(features)}
	for i, f := range features {
		v := f.Metrics.Value(metric)
		if i == 0 || v < s.Min {
			s.Min = v
		}
		if i == 0 || v > s.Max {
			s.Max = v
		}
	}
	return s
}

// Degenerate reports a scale with no spread, including the empty scale.
func (s Scale) Degenerate() bool {
	return s.Count == 0 || s.Max-s.Min <= 0
}

// Normalize maps v into [0,1]. A degenerate scale maps everything to 0.5.
func (s Scale) Normalize(v float64) float64 {
	if s.Degenerate() {
		return 0.5
	}
	return clamp01((v - s.Min) / (s.Max - s.Min))
}

func (s Scale) ColorFor(v float64) colorful.Color {
	return Sample(s.Metric.Palette(), s.Normalize(v))
}

// LegendSteps returns n evenly spaced samples over [Min, Max] inclusive.
func (s Scale) LegendSteps(n int) []LegendStep {
	if n <= 0 {
		n = DefaultLegendSteps
	}
	steps := make([]LegendStep, n)
	for i := range steps {
		v := s.Min
		if n > 1 {
			v = s.Min + (s.Max-s.Min)*float64(i)/float64(n-1)
		}
		if i == n-1 {
			v = s.Max
		}
		c := s.ColorFor(v)
		steps[i] = LegendStep{
			Value: v,
			Color: c,
			Hex:   c.Hex(),
			Label: FormatValue(s.Metric, v),
		}
	}
	return steps
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
