package middlewares

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-Id"

	// CtxRequestID is the gin context key holding the request id.
	CtxRequestID = "request_id"

	maxRequestIDLen = 128
)

// RequestID echoes a well-formed upstream X-Request-Id or mints a uuid.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}

		ctx.Set(CtxRequestID, id)
		ctx.Header(RequestIDHeader, id)

		ctx.Next()
	}
}

// ids end up in logs and response headers, keep them to a safe alphabet
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}

	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}

// RequestLogger writes one http_request line per request. Server errors log
// at error level and client errors at warn.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = ctx.Request.URL.Path
		}

		status := ctx.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		log.LogAttrs(ctx.Request.Context(), level, "http_request",
			slog.String("method", ctx.Request.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			slog.Int("bytes", ctx.Writer.Size()),
			slog.String("client_ip", ctx.ClientIP()),
			slog.String("request_id", ctx.GetString(CtxRequestID)),
		)
	}
}
