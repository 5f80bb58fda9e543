// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the correlation and access-log chain. Install it as
// RequestID, Logger, Recovery so that every log line, panic included,
// carries the request ID.
package middleware

import (
	"io"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"

	// Client-supplied IDs longer than this are replaced.
	maxRequestIDLen = 128
	// Raw query strings are cut to this many bytes before logging.
	maxLoggedQuery = 2048
)

// RequestID reuses a well-formed X-Request-ID from the client or mints a
// UUIDv4, then echoes it on the response and stores it for RequestIDFrom.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// RequestIDFrom returns the correlation ID of the request, falling back to
// the response header when RequestID did not run.
func RequestIDFrom(c *gin.Context) string {
	if rid := c.GetString(requestIDKey); rid != "" {
		return rid
	}
	return c.Writer.Header().Get(requestIDHeader)
}

// validRequestID accepts non-empty printable ASCII up to maxRequestIDLen.
func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

// Logger emits one access log line per request. Bodies are never logged;
// the query string, user agent and headers pass through the redactor built
// from opts. A logger tagged with the request ID, method, route and client
// IP is attached to both the Gin context (LoggerFrom) and the request
// context (zerolog.Ctx).
func Logger(opts RedactOptions) gin.HandlerFunc {
	rd := newRedactor(opts)

	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request

		route := c.FullPath()
		if route == "" {
			route = req.URL.Path
		}
		rl := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", req.Method).
			Str("path", route).
			Str("remote_ip", c.ClientIP()).
			Logger()
		c.Set(loggerKey, &rl)
		c.Request = req.WithContext(rl.WithContext(req.Context()))

		// Snapshot before handlers can mutate the request.
		headers := rd.headers(req.Header)
		query := rd.scrub(clip(req.URL.RawQuery, maxLoggedQuery))
		agent := rd.scrub(req.UserAgent())

		c.Next()

		status := c.Writer.Status()
		ev := rl.WithLevel(accessLevel(status, len(c.Errors) > 0)).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int64("bytes_in", req.ContentLength).
			Int("bytes_out", c.Writer.Size()).
			Str("query", query).
			Str("user_agent", agent).
			Interface("headers", headers)
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Msg("request")
	}
}

// accessLevel maps the outcome of a request to a log level. Errors recorded
// on the Gin context always log at error level.
func accessLevel(status int, hasErrors bool) zerolog.Level {
	switch {
	case hasErrors, status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// Recovery turns a panic into a 500 envelope with code "internal_error" and
// logs the value and stack. When the handler had already written a response
// only the status is recorded.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		rid := RequestIDFrom(c)
		LoggerFrom(c).Error().
			Str("request_id", rid).
			Interface("panic", rec).
			Bytes("stack", debug.Stack()).
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
	})
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// Logger is not installed.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*zerolog.Logger); ok {
			return l
		}
	}
	l := log.Logger
	return &l
}

// clip cuts s to max bytes plus an ellipsis. max <= 0 keeps s whole.
func clip(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
