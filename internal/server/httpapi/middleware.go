package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/usertheme/internal/common"
	"github.com/dmitrijs2005/usertheme/internal/server/auth"
	"github.com/dmitrijs2005/usertheme/internal/server/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-Id"
	ctxUserID       = "user_id"
)

type requestIDKey struct{}

// RequestID returns the request id stored by the middleware, if any.
func RequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// requestID reuses X-Request-Id when the caller sent one, echoes it back and
// logs the finished request.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestIDKey{}, rid))
		c.Writer.Header().Set(requestIDHeader, rid)

		start := time.Now()
		c.Next()

		s.logger.Debug(c.Request.Context(), "request",
			"request_id", rid,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func observeDuration() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestDuration.
			WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// identity resolves the author: the userId cookie, then a bearer token,
// then the configured default. A bearer token that fails verification is
// rejected rather than ignored.
func (s *Server) identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if v, err := c.Cookie(common.UserIDCookieName); err == nil && strings.TrimSpace(v) != "" {
			c.Set(ctxUserID, strings.TrimSpace(v))
			c.Next()
			return
		}

		if token, ok := bearerToken(c.GetHeader(common.AccessTokenHeaderName)); ok {
			userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
			if err != nil {
				status := "invalid token"
				if errors.Is(err, common.ErrTokenExpired) {
					status = "token expired"
				}
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": status})
				return
			}
			c.Set(ctxUserID, userID)
			c.Next()
			return
		}

		c.Set(ctxUserID, s.defaultUserID)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func userID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// limiterIdleTTL is how long a user's bucket survives without requests.
// It is longer than a full refill, so dropping an idle bucket loses no state.
const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// userLimiter keeps one token bucket per user. A non-positive rate
// disables limiting. Idle buckets are swept at most once per
// limiterIdleTTL.
type userLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	limiters  map[string]*limiterEntry
	lastSweep time.Time
	now       func() time.Time
}

func newUserLimiter(perMinute int) *userLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &userLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: make(map[string]*limiterEntry),
		now:      time.Now,
	}
}

func (l *userLimiter) allow(userID string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterIdleTTL {
		l.sweep(now)
	}

	e, ok := l.limiters[userID]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

// sweep drops buckets idle for at least limiterIdleTTL. Caller holds mu.
func (l *userLimiter) sweep(now time.Time) {
	for id, e := range l.limiters {
		if now.Sub(e.seen) >= limiterIdleTTL {
			delete(l.limiters, id)
		}
	}
	l.lastSweep = now
}

func (s *Server) limitSubmissions() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.allow(userID(c)) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"errors":  []gin.H{{"type": "other", "message": "too many submissions, retry later"}},
			})
			return
		}
		c.Next()
	}
}
