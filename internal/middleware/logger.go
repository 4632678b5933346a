package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per HTTP request. Websocket upgrades are logged
// as soon as the handler returns, right after the upgrade, so the duration
// covers the handshake only.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"addr", c.ClientIP(),
		}
		if status >= 500 {
			log.Error("http.request", attrs...)
			return
		}
		log.Debug("http.request", attrs...)
	}
}
