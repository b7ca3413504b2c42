package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storyreel/internal/logging"
	"storyreel/internal/services"
)

const requestIDHeader = "X-Request-ID"

// requestID stamps every request with a correlation id, reusing the caller's
// header when present.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger := logging.WithContext(c.Request.Context(), s.logger)
		attrs := []logging.Attr{
			logging.String("method", c.Request.Method),
			logging.String("route", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("duration", time.Since(started)),
		}
		if c.Writer.Status() >= 500 {
			logger.Warn("request failed", logging.Args(attrs...)...)
			return
		}
		logger.Debug("request served", logging.Args(attrs...)...)
	}
}
