// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file carries request correlation and caller identity:
//
//   - RequestID() reuses or mints X-Request-ID and echoes it on the response.
//   - BotCaller() records which bot deployment is calling (X-Bot-ID). The
//     handoff API is called by bot runtimes, not end users, so this is the
//     identity used for rate limiting and access logs.
//   - Recovery() turns panics into the standard JSON 500 envelope.
//   - LoggerFrom() returns the request-scoped logger attached by RedactingLogger.
package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"

	// HeaderBotID identifies the calling bot deployment.
	HeaderBotID = "X-Bot-ID"
	botIDKey    = "botID"

	loggerKey = "logger"

	// maxBotIDLength bounds the caller id kept in context and logs.
	maxBotIDLength = 128
)

// RequestID attaches (or propagates) a correlation identifier per request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// BotCaller stores the X-Bot-ID header (trimmed, truncated) in the context.
// Requests without it are anonymous and keyed by client IP downstream.
func BotCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(HeaderBotID)); id != "" {
			c.Set(botIDKey, truncate(id, maxBotIDLength))
		}
		c.Next()
	}
}

// BotID returns the caller set by BotCaller, or "".
func BotID(c *gin.Context) string {
	v, _ := c.Get(botIDKey)
	return asString(v)
}

// RequestIDFrom returns the correlation id set by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	v, _ := c.Get(requestIDKey)
	return asString(v)
}

// Recovery logs a panic with its stack and responds with a JSON 500 unless a
// response was already started.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := RequestIDFrom(c)
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// none was attached. The result is never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate cuts s to limit bytes and appends an ellipsis. limit <= 0 disables it.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
