package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rshade/descartecerto/internal/logging"
)

// TraceID takes the request's X-Trace-ID or mints one, echoes it in the
// response and stores it, together with base, in the request context.
func TraceID(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(logging.TraceIDHeader)
		if traceID == "" {
			traceID = logging.NewTraceID()
		}
		c.Header(logging.TraceIDHeader, traceID)

		ctx := base.WithContext(c.Request.Context())
		ctx = logging.ContextWithTraceID(ctx, traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger logs one line per request once the handler chain returns.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		log := logging.FromContext(ctx)

		status := c.Writer.Status()
		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		event.
			Ctx(ctx).
			Str("component", "api").
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request handled")
	}
}

// Recovery turns a handler panic into a 500 envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		ctx := c.Request.Context()
		log := logging.FromContext(ctx)
		log.Error().
			Ctx(ctx).
			Str("component", "api").
			Interface("panic", recovered).
			Msg("handler panicked")
		respondError(c, http.StatusInternalServerError, CodeInternal, "internal error")
	})
}
