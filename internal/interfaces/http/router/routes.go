// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"

	"future-self-api/internal/config"
	"future-self-api/internal/interfaces/http/middleware"
)

// RegisterV1Routes 注册业务路由
// 匿名问卷、账号确认回跳和支付 Webhook 不走认证，其余路由都要求登录态。
func RegisterV1Routes(
	engine *gin.Engine,
	cfg *config.Config,
	limiter middleware.RateLimiter,
	handlers Handlers,
) {
	authMW := middleware.Auth(middleware.AuthConfig{
		Secret:  cfg.Security.JWT.Secret,
		Issuer:  cfg.Security.JWT.Issuer,
		Enabled: true,
	})
	genLimitMW := middleware.GenerationRateLimit(middleware.RateLimitConfig{
		Enabled:           cfg.Security.RateLimit.Enabled,
		GenerationPerHour: cfg.Security.RateLimit.GenerationPerHour,
	}, limiter)

	v1 := engine.Group("/v1")

	// 账号确认回跳（认证服务重定向到这里，无登录态）
	v1.GET("/auth/confirm", handlers.Confirm.Confirm)

	// 匿名问卷流程
	questionnaire := v1.Group("/questionnaire")
	{
		questionnaire.POST("/sessions", handlers.Questionnaire.StartSession)
		questionnaire.PUT("/sessions/:sid/draft", handlers.Questionnaire.SaveDraft)
		questionnaire.GET("/sessions/:sid/draft", handlers.Questionnaire.GetDraft)
		questionnaire.POST("/responses", handlers.Questionnaire.Submit)

		// 登录态问卷操作
		questionnaire.GET("/responses", authMW, handlers.Questionnaire.Get)
		questionnaire.POST("/migrate", authMW, handlers.Questionnaire.Migrate)
	}

	// 未来故事
	stories := v1.Group("/stories", authMW)
	{
		stories.GET("/me", handlers.Story.Get)
		stories.POST("/generate", genLimitMW, handlers.Story.Generate)
	}

	// 支付 Webhook 走签名校验，不要求登录态
	v1.POST("/webhooks/billing", handlers.Billing.Webhook)

	// 订阅计费
	billing := v1.Group("/billing", authMW)
	{
		billing.POST("/checkout", handlers.Billing.Checkout)
		billing.GET("/subscription", handlers.Billing.GetSubscription)
	}

	// 任务看板
	tasks := v1.Group("/tasks", authMW)
	{
		tasks.GET("", handlers.Task.List)
		tasks.POST("", handlers.Task.Create)
		tasks.PATCH("/:tid", handlers.Task.Update)
		tasks.DELETE("/:tid", handlers.Task.Delete)
	}
}
