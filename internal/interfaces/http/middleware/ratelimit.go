// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"future-self-api/internal/infrastructure/persistence/redis"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// Enabled 是否启用限流
	Enabled bool
	// RequestsPerSecond 每秒请求数
	RequestsPerSecond int
	// Burst 突发容量
	Burst int
	// GenerationPerHour 故事生成接口每用户每小时限额
	GenerationPerHour int
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 全局限流中间件，按来源 IP 滑动窗口计数
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	limit := cfg.RequestsPerSecond
	if limit <= 0 {
		limit = 100
	}
	if cfg.Burst > limit {
		limit = cfg.Burst
	}

	return func(c *gin.Context) {
		key := redis.BuildIPRateLimitKey(c.ClientIP())

		allowed, err := limiter.Allow(c.Request.Context(), key, limit, time.Second)
		if err != nil {
			// 限流器故障时放行，避免影响业务
			c.Next()
			return
		}

		if !allowed {
			abortRateLimited(c)
			return
		}

		c.Next()
	}
}

// GenerationRateLimit 故事生成限流中间件，按用户每小时计数
// 生成一次要走完整的 LLM 调用，额度远低于普通接口
func GenerationRateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil || cfg.GenerationPerHour <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		userID := GetUserIDFromGin(c)
		if userID == "" {
			c.Next()
			return
		}

		key := redis.BuildGenerationRateLimitKey(userID)

		allowed, err := limiter.Allow(c.Request.Context(), key, cfg.GenerationPerHour, time.Hour)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			abortRateLimited(c)
			return
		}

		c.Next()
	}
}

func abortRateLimited(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"code":     429,
		"message":  "rate limit exceeded",
		"trace_id": c.GetString("trace_id"),
	})
}
