package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/craudioviz/invoicer/internal/metrics"
)

// Instrument records request durations against the route template, keeping
// label cardinality independent of path parameters.
func Instrument(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RequestDuration.
			WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
