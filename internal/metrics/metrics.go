package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drilldown_transitions_total",
		Help: "Controller operations by kind",
	}, []string{"kind"})
	LoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drilldown_loads_total",
		Help: "Feature set loads by origin",
	}, []string{"origin"})
	StaleResponsesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "drilldown_stale_responses_total",
		Help: "Load results discarded because a newer request superseded them",
	})
	FetchFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "drilldown_fetch_failures_total",
		Help: "Loads that failed and reverted the view",
	})
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "drilldown_sessions_active",
		Help: "Open drill-down sessions",
	})
	HTTPRequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "drilldown_http_request_duration_ms",
		Help:    "HTTP request duration in ms",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"route"})
	LeafReportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drilldown_leaf_reports_total",
		Help: "Leaf reports processed by status",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(TransitionsTotal)
	prometheus.MustRegister(LoadsTotal)
	prometheus.MustRegister(StaleResponsesTotal)
	prometheus.MustRegister(FetchFailuresTotal)
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(HTTPRequestDurationMs)
	prometheus.MustRegister(LeafReportsTotal)
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler { return promhttp.Handler() }
