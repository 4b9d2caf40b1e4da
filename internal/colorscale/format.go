package colorscale

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/geo-drilldown/internal/domain"
)

// FormatValue renders v the way the dashboard legend shows it.
func FormatValue(metric domain.Metric, v float64) string {
	switch metric {
	case domain.MetricSales:
		return fmt.Sprintf("₱%.1fM", roundTo(v/1_000_000, 1))
	case domain.MetricStores:
		return fmt.Sprintf("%d", int64(math.Round(v)))
	case domain.MetricTransactions:
		return humanize.Comma(int64(math.Round(v)))
	case domain.MetricGrowth:
		return fmt.Sprintf("%.1f%%", v)
	default:
		return humanize.Commaf(roundTo(v, 2))
	}
}
