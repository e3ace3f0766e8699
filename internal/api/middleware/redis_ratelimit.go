package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"repayment-engine/internal/config"

	"github.com/redis/go-redis/v9"
)

const redisRateLimitPrefix = "repayment-engine:ratelimit:"

// RedisRateLimiterMiddleware applies a fixed one-second window per client IP
// shared by every API replica. Redis failures let the request through.
type RedisRateLimiterMiddleware struct {
	redisClient redis.Cmdable
	cfg         config.RateLimitConfig
	logger      *slog.Logger
	window      time.Duration
}

func NewRedisRateLimiterMiddleware(cfg config.RateLimitConfig, redisClient redis.Cmdable, logger *slog.Logger) *RedisRateLimiterMiddleware {
	logger = logger.With("component", "RedisRateLimiter")
	if cfg.Enabled && redisClient == nil {
		logger.Warn("Rate limiting enabled but no Redis client provided; disabling.")
		cfg.Enabled = false
	}
	return &RedisRateLimiterMiddleware{
		redisClient: redisClient,
		cfg:         cfg,
		logger:      logger,
		window:      time.Second,
	}
}

func (rl *RedisRateLimiterMiddleware) IsEnabled() bool {
	return rl.cfg.Enabled && rl.redisClient != nil
}

// limit is the number of requests admitted per window.
func (rl *RedisRateLimiterMiddleware) limit() int64 {
	return int64(rl.cfg.RPS*rl.window.Seconds()) + int64(rl.cfg.Burst)
}

func (rl *RedisRateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	if !rl.IsEnabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := extractIP(r)
		key := redisRateLimitPrefix + ip

		pipe := rl.redisClient.Pipeline()
		incrCmd := pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, rl.window)
		if _, err := pipe.Exec(ctx); err != nil {
			rl.logger.ErrorContext(ctx, "Redis pipeline failed during rate limiting check", slog.Any("error", err), "ip", ip)
			next.ServeHTTP(w, r)
			return
		}

		if count := incrCmd.Val(); count > rl.limit() {
			rl.logger.WarnContext(ctx, "Rate limit exceeded", "ip", ip, "count", count, "limit", rl.limit())
			writeRateLimited(w, rl.window, fmt.Sprintf("Rate limit exceeded. Limit is %d requests per %v.", rl.limit(), rl.window))
			return
		}

		next.ServeHTTP(w, r)
	})
}
