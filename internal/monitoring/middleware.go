package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/metrics"
)

// MonitoringMiddleware creates Gin middleware for request logging and metrics
func MonitoringMiddleware(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		ip := c.ClientIP()
		userAgent := c.GetHeader("User-Agent")
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		// Label by route pattern so path parameters don't explode cardinality.
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.RecordHTTPRequest(endpoint, method, strconv.Itoa(statusCode), duration.Seconds())

		logger.RequestLogger(method, path, ip, userAgent, statusCode, duration)

		for _, err := range c.Errors {
			logger.APIErrorLogger(err.Err, method, path, ip, statusCode)
		}

		if duration > 5*time.Second {
			logger.Warn("slow request",
				"method", method,
				"path", path,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}
}
