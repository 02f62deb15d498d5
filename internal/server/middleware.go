package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obsmetrics "github.com/praxishq/praxis/internal/observability/metrics"
	"github.com/praxishq/praxis/pkg/tenantctx"
	"go.uber.org/zap"
)

const (
	headerRequestID = "X-Request-ID"
	headerOrgID     = "X-Org-ID"
)

// RequestIDMiddleware ensures every request carries a request id, generating
// one when the caller did not send it.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("request_id", rid)
		c.Header(headerRequestID, rid)
		c.Next()
	}
}

// OrgMiddleware resolves the tenant from the X-Org-ID header, falling back
// to the configured default org for single-tenant deployments.
func OrgMiddleware(defaultOrgID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := defaultOrgID
		if raw := c.GetHeader(headerOrgID); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				AbortWithError(c, newValidationError("org_id", "invalid_org_id", "invalid org id header"))
				return
			}
			orgID = parsed
		}
		ctx := tenantctx.WithOrgID(c.Request.Context(), orgID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// LoggingMiddleware emits one structured line per request.
func LoggingMiddleware(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.Last().Error()))
			log.Warn("request failed", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

// MetricsMiddleware records per-route counters and latency.
func MetricsMiddleware(m *obsmetrics.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Observe(route, c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
