// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file validates the Idempotency-Key header on bot runtime calls. Bot
// connectors redeliver activities after timeouts, so the same transcript
// append may arrive twice with one key. The validator checks the key's shape,
// stashes it for handlers, and when a lookup reports the key as already used
// in the request's scope marks the request as a replay so the rate limiter
// lets it through.
//
// Handlers keep the final say: the transcript service re-checks the key in
// the resolved conversation's scope before appending.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client's idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, _ := c.Get(ctxKeyIdemKey)
	s := asString(v)
	return s, s != ""
}

// IsReplay reports whether the lookup found the key already used.
func IsReplay(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyIdemReplay)
	b, _ := v.(bool)
	return b
}

// IdempotencyLookup reports whether key was already used within scope and is
// still live at now. Lookup errors never fail the request.
type IdempotencyLookup func(ctx context.Context, scope, key string, now time.Time) (bool, error)

// ScopeFunc extracts the idempotency scope from a request. An empty scope
// skips the lookup.
type ScopeFunc func(*gin.Context) string

// HeaderConversationID lets a caller that already knows the internal
// conversation id scope a key on routes without an :id parameter.
const HeaderConversationID = "X-Conversation-ID"

// ScopeFromParam scopes keys by a path parameter, falling back to the
// X-Conversation-ID header.
func ScopeFromParam(name string) ScopeFunc {
	return func(c *gin.Context) string {
		if v := c.Param(name); v != "" {
			return v
		}
		return c.GetHeader(HeaderConversationID)
	}
}

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters; nil uses ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
	// Scope selects the lookup scope; nil uses ScopeFromParam("id").
	Scope ScopeFunc
}

// IdempotencyValidator rejects malformed keys with 400, stashes valid ones
// and flags replays found by lookup. Requests without the header pass
// through untouched.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}
	scopeOf := opts.Scope
	if scopeOf == nil {
		scopeOf = ScopeFromParam("id")
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if scope := scopeOf(c); lookup != nil && scope != "" {
			if used, err := lookup(c.Request.Context(), scope, key, time.Now().UTC()); err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup")
			} else if used {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}
