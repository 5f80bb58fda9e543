// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file handles the Idempotency-Key header of POST /summary/text. A retry
// that carries the key of a stored summary is flagged as a replay: the
// summary service answers it from the history and the rate limiter lets it
// through for free.
package middleware

import (
	"cmp"
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the client's key.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"

	defaultIdemKeyMaxLen = 200
)

// defaultIdemKeyPattern accepts token characters plus a few URL-safe extras,
// which covers UUIDs, ULIDs and base64url keys.
var defaultIdemKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the key accepted by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	key := c.GetString(ctxKeyIdemKey)
	return key, key != ""
}

// IsReplay reports whether the key already maps to a stored summary.
func IsReplay(c *gin.Context) bool { return c.GetBool(ctxKeyIdemReplay) }

// IdempotencyOptions configures key validation. Zero values select the
// defaults (200 bytes, defaultIdemKeyPattern).
type IdempotencyOptions struct {
	MaxLen  int
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether key maps to a stored, unexpired result.
// Errors are treated as a miss.
type IdempotencyLookup func(ctx context.Context, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator checks the Idempotency-Key header of POST requests
// and stores it for handlers; other methods pass untouched. A malformed key
// is answered with 400. A key known to lookup marks the request as a replay
// and exempts it from rate limiting.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	limit := cmp.Or(opts.MaxLen, defaultIdemKeyMaxLen)
	if limit < 0 {
		limit = defaultIdemKeyMaxLen
	}
	pattern := cmp.Or(opts.Pattern, defaultIdemKeyPattern)
	wellFormed := func(k string) bool { return len(k) <= limit && pattern.MatchString(k) }

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if c.Request.Method != http.MethodPost || key == "" {
			c.Next()
			return
		}
		if !wellFormed(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_request",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			hit, err := lookup(c.Request.Context(), key, time.Now().UTC())
			if err == nil && hit {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}
