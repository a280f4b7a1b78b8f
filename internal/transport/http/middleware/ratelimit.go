package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"perfcycle/internal/transport/http/api"
	"perfcycle/internal/transport/http/shared"
)

const rateLimitPrefix = "perfcycle:ratelimit"

func NewMemoryRateStore() limiter.Store {
	return memory.NewStore()
}

func NewRedisRateStore(client *redis.Client) (limiter.Store, error) {
	return sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: rateLimitPrefix})
}

// RateLimiter budgets requests per actor. Login is additionally limited per
// client IP and per submitted email at a quarter of the budget; cycle and user
// mutations per actor at half of it.
type RateLimiter struct {
	general  *limiter.Limiter
	login    *limiter.Limiter
	mutation *limiter.Limiter
}

func NewRateLimiter(store limiter.Store, limit int, window time.Duration) *RateLimiter {
	budget := func(n int) *limiter.Limiter {
		return limiter.New(store, limiter.Rate{Period: window, Limit: int64(max(n, 1))})
	}
	return &RateLimiter{
		general:  budget(limit),
		login:    budget(limit / 4),
		mutation: budget(limit / 2),
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := actorKey(r)
		if !rl.allow(w, r, rl.general, "api:"+actor) {
			return
		}
		switch sensitiveRateScope(r) {
		case sensitiveScopeAuth:
			if !rl.allow(w, r, rl.login, "login:ip:"+shared.ClientIP(r)) {
				return
			}
			if email := loginEmail(r); email != "" && !rl.allow(w, r, rl.login, "login:email:"+email) {
				return
			}
		case sensitiveScopeActor:
			if !rl.allow(w, r, rl.mutation, "mutation:"+actor) {
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// allow fails open when the store errors.
func (rl *RateLimiter) allow(w http.ResponseWriter, r *http.Request, l *limiter.Limiter, key string) bool {
	result, err := l.Get(r.Context(), key)
	if err != nil {
		zap.L().Error("rate limit store failed", zap.String("key", key), zap.Error(err))
		return true
	}

	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset, 10))
	if !result.Reached {
		return true
	}

	retryAfter := max(result.Reset-time.Now().Unix(), 1)
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	zap.L().Warn("rate limit exceeded",
		zap.String("key", key),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
		zap.Int64("limit", result.Limit),
	)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func actorKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return "ip:" + shared.ClientIP(r)
}

// loginEmail peeks at the JSON body and restores it for the handler.
func loginEmail(r *http.Request) string {
	if r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

type sensitiveScope string

const (
	sensitiveScopeNone  sensitiveScope = ""
	sensitiveScopeAuth  sensitiveScope = "auth"
	sensitiveScopeActor sensitiveScope = "actor"
)

var sensitiveRoutes = map[string]sensitiveScope{
	"/auth/login":                 sensitiveScopeAuth,
	"/feedback-cycles/goal-based": sensitiveScopeActor,
	"/admin/users":                sensitiveScopeActor,
}

func sensitiveRateScope(r *http.Request) sensitiveScope {
	if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
		return sensitiveScopeNone
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return sensitiveRoutes[path]
}
