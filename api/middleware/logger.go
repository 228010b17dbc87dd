package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/trackfetch-go/pkg/logger"
	"go.uber.org/zap"
)

// Logger returns a gin middleware that logs every request through zap.
// Server errors are copied to the error category when multiLogger is set.
func Logger(log *zap.Logger, multiLogger *logger.MultiLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		method := c.Request.Method

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}

		// /progress is polled every second; keep it out of info output
		if path == "/progress" && statusCode < 400 {
			log.Debug("HTTP request", fields...)
		} else {
			log.Info("HTTP request", fields...)
		}

		if statusCode >= 500 && multiLogger != nil {
			multiLogger.LogAppError("HTTP error response",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", statusCode))
		}
	}
}
