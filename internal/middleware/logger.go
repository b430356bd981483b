package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"shopflow/pkg/log"
)

// Logger request logging middleware
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		fields := map[string]interface{}{
			"status":  statusCode,
			"method":  c.Request.Method,
			"path":    path,
			"ip":      c.ClientIP(),
			"latency": latency,
		}

		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		if statusCode >= 500 {
			log.WithFields(fields).Error("Server error")
		} else if statusCode >= 400 {
			log.WithFields(fields).Warn("Client error")
		} else {
			log.WithFields(fields).Info("Request completed")
		}
	}
}
