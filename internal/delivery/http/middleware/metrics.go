package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/geo-drilldown/internal/metrics"
)

// Metrics records request latency per route pattern.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		if route == "" || route == "/" {
			route = "unmatched"
		}
		metrics.HTTPRequestDurationMs.WithLabelValues(route).
			Observe(float64(time.Since(start).Microseconds()) / 1000)
		return err
	}
}
