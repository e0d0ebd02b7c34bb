package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leadgate/leadgate/internal/logging"
)

// Middleware records per-request metrics. Requests are labeled by route
// template; anything gin did not match collapses into a single "unmatched"
// label so probe traffic cannot grow the series set.
func Middleware(m *Metrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Scrapes of /metrics are not API traffic.
		if c.FullPath() == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		m.IncHTTPRequestsInFlight()
		defer m.DecHTTPRequestsInFlight()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		m.RecordHTTPRequest(route, c.Request.Method, status)
		m.RecordRequestLatency(route, c.Request.Method, status, time.Since(start).Seconds())
		if c.Writer.Status() >= http.StatusInternalServerError {
			m.RecordError("server_error", route, c.Request.Method)
		}

		if len(c.Errors) > 0 {
			logger.ErrorWithContext(c.Request.Context(), "request finished with errors",
				"route", route, "status", status, "error", c.Errors.String())
		}
	}
}
