package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kinger55555/thenailcasino/internal/auth"
	"github.com/kinger55555/thenailcasino/internal/errs"
)

const userKey = "userId"

func userID(c *gin.Context) string { return c.GetString(userKey) }

func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, err := auth.FromHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "kind": "unauthorized"})
			return
		}
		sub, err := h.Tokens.Validate(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error(), "kind": "unauthorized"})
			return
		}
		c.Set(userKey, sub)
		c.Next()
	}
}

// ensureProfile creates the caller's profile on first contact.
func (h *Handler) ensureProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := h.Economy.EnsureProfile(c, userID(c), c.GetHeader("X-Nickname")); err != nil {
			h.fail(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (h *Handler) limit(scope string, n int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Limiter == nil {
			c.Next()
			return
		}
		ok, ttl, err := h.Limiter.Allow(c, scope, userID(c), n, window)
		if err != nil {
			h.log.Warn("rate limiter unavailable", "scope", scope, "err", err)
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many requests",
				"kind":        "rate_limited",
				"retry_after": fmt.Sprintf("%.0fs", ttl.Seconds()),
			})
			return
		}
		c.Next()
	}
}

// lock rejects a second concurrent request of the same action by one user.
func (h *Handler) lock(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Locks == nil {
			c.Next()
			return
		}
		release, ok, err := h.Locks.Acquire(c, userID(c), action)
		if err != nil {
			h.log.Warn("action lock unavailable", "action", action, "err", err)
			c.Next()
			return
		}
		if !ok {
			h.fail(c, errs.Conflict("http.lock", "request already in progress"))
			c.Abort()
			return
		}
		defer release()
		c.Next()
	}
}

func (h *Handler) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"user", userID(c),
			"took", time.Since(start))
	}
}

var statusByKind = map[errs.Kind]int{
	errs.KindValidation:    http.StatusBadRequest,
	errs.KindForbidden:     http.StatusForbidden,
	errs.KindNotFound:      http.StatusNotFound,
	errs.KindConflict:      http.StatusConflict,
	errs.KindTransient:     http.StatusServiceUnavailable,
	errs.KindConfiguration: http.StatusInternalServerError,
}

// fail writes err as {error, kind}. Internal details stay in the log.
func (h *Handler) fail(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	msg := errs.Message(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "user", userID(c), "err", err)
		msg = "internal error"
		if kind == errs.KindTransient {
			msg = "temporarily unavailable"
		}
	}
	c.JSON(status, gin.H{"error": msg, "kind": string(kind)})
}
