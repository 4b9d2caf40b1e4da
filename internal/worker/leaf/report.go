package leaf

import (
	"fmt"
	"time"

	"github.com/geo-drilldown/internal/domain"
)

// BuildReport summarises the municipality carried by a leaf_selected event.
// Ratios with a zero denominator are reported as 0.
func BuildReport(event domain.DrillDownEvent, now time.Time) (domain.LeafReport, error) {
	if event.Type != domain.EventLeafSelected {
		return domain.LeafReport{}, fmt.Errorf("unexpected event type %q", event.Type)
	}
	if event.Feature == nil {
		return domain.LeafReport{}, fmt.Errorf("event for %q has no feature", event.Code)
	}
	leaf := *event.Feature
	if leaf.Level != domain.LevelMunicipality {
		return domain.LeafReport{}, fmt.Errorf("feature %s is a %s, not a municipality", leaf.Code, leaf.Level)
	}

	m := leaf.Metrics
	report := domain.LeafReport{
		SessionID:          event.SessionID,
		Code:               leaf.Code,
		Name:               leaf.Name,
		ParentCode:         leaf.ParentCode,
		Sales:              m.Sales,
		Stores:             m.Stores,
		Transactions:       m.Transactions,
		Growth:             m.Growth,
		SalesPerStore:      ratio(m.Sales, m.Stores),
		AvgTransactionSize: ratio(m.Sales, m.Transactions),
		GeneratedAt:        now.UTC(),
	}
	if event.Parent != nil {
		report.ParentSalesShare = ratio(m.Sales, event.Parent.Metrics.Sales) * 100
	}
	return report, nil
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
