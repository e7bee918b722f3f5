// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"future-self-api/internal/infrastructure/persistence/postgres"
	"future-self-api/internal/infrastructure/persistence/redis"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	pg    *postgres.Client
	redis *redis.Client
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(pg *postgres.Client, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		pg:    pg,
		redis: redisClient,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}

// Live 存活检查接口
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "alive",
	})
}

// Ready 就绪检查接口，逐项探测依赖
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := readinessResponse{
		Status: "ready",
		Checks: map[string]*readinessCheck{
			"postgres": h.check(ctx, h.pg.HealthCheck),
			"redis":    h.check(ctx, h.redis.HealthCheck),
		},
	}

	code := http.StatusOK
	for _, chk := range resp.Checks {
		if chk.Status != "ok" {
			resp.Status = "not ready"
			code = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(code, resp)
}

func (h *HealthHandler) check(ctx context.Context, fn func(context.Context) error) *readinessCheck {
	start := time.Now()
	if err := fn(ctx); err != nil {
		return &readinessCheck{
			Status:    "error",
			Error:     err.Error(),
			LatencyMs: time.Since(start).Milliseconds(),
		}
	}
	return &readinessCheck{
		Status:    "ok",
		LatencyMs: time.Since(start).Milliseconds(),
	}
}
