package domain

import (
	"fmt"
	"strings"
)

// Metric is the quantity currently driving the choropleth color.
type Metric string

const (
	MetricSales        Metric = "sales"
	MetricStores       Metric = "stores"
	MetricTransactions Metric = "transactions"
	MetricGrowth       Metric = "growth"
)

var AllMetrics = []Metric{MetricSales, MetricStores, MetricTransactions, MetricGrowth}

// Palette names a sequential color family.
type Palette string

const (
	PaletteBlues   Palette = "blues"
	PaletteGreens  Palette = "greens"
	PaletteOranges Palette = "oranges"
)

func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown metric %q", s)
	}
	return m, nil
}

func (m Metric) Valid() bool {
	switch m {
	case MetricSales, MetricStores, MetricTransactions, MetricGrowth:
		return true
	default:
		return false
	}
}

// Palette returns the color family for the metric. Growth shares the sales family.
func (m Metric) Palette() Palette {
	switch m {
	case MetricStores:
		return PaletteGreens
	case MetricTransactions:
		return PaletteOranges
	default:
		return PaletteBlues
	}
}

// AllowsNegative reports whether values below zero are legal for the metric.
func (m Metric) AllowsNegative() bool {
	return m == MetricGrowth
}
