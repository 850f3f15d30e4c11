package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hpn/hpn-chat-gateway/internal/domain"
	"github.com/hpn/hpn-chat-gateway/internal/ui"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// CORSMiddleware returns a middleware that enables permissive CORS.
// This allows browser chat clients to call the gateway directly.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, "+RequestIDHeader)
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Header("Access-Control-Expose-Headers", RequestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestIDMiddleware tags each request with an id, reusing the caller's when present.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set(ctxRequestID, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}

// LoggingMiddleware returns a middleware that logs request details in JSON format.
// With console enabled it also prints a colored line per request.
func LoggingMiddleware(logger *slog.Logger, console bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		// Process request
		c.Next()

		latency := time.Since(start)
		keyHint := c.GetString(ctxKeyHint)

		attrs := []any{
			slog.String("request_id", c.GetString(ctxRequestID)),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", latency),
			slog.String("client_ip", c.ClientIP()),
			slog.String("key_hint", keyHint),
			slog.String("user_agent", c.Request.UserAgent()),
		}

		line := ui.RequestLine{
			Method:  c.Request.Method,
			Path:    path,
			Status:  c.Writer.Status(),
			Latency: latency,
			KeyHint: keyHint,
			Tokens:  -1,
		}

		if v, ok := c.Get(ctxSelection); ok {
			if sel, ok := v.(domain.SelectionResult); ok {
				attrs = append(attrs,
					slog.Int("token_count", sel.TokenCount),
					slog.Int("kept", len(sel.Messages)),
					slog.Int("dropped", sel.Dropped),
				)
				line.Tokens = sel.TokenCount
				line.Kept = len(sel.Messages)
				line.Dropped = sel.Dropped
			}
		}

		if subject := c.GetString(ctxSubject); subject != "" {
			attrs = append(attrs, slog.String("subject", subject))
		}

		logger.Info("request completed", attrs...)

		if console {
			ui.PrintRequest(line)
		}
	}
}

// RecoveryMiddleware returns a middleware that recovers from panics.
// It logs the error and returns a 500 response in the gateway's error format.
func RecoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					slog.Any("error", err),
					slog.String("path", c.Request.URL.Path),
					slog.String("request_id", c.GetString(ctxRequestID)),
				)

				sendError(c, http.StatusInternalServerError, internalErrorMessage)
			}
		}()

		c.Next()
	}
}
