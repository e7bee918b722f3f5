package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"future-self-api/internal/application/billing"
	"future-self-api/internal/domain/entity"
	"future-self-api/internal/interfaces/http/dto"
	"future-self-api/internal/interfaces/http/middleware"
	"future-self-api/pkg/logger"
)

// webhookBodyLimit Webhook 请求体上限
const webhookBodyLimit = 1 << 20

// BillingHandler 计费处理器
type BillingHandler struct {
	svc *billing.Service
}

// NewBillingHandler 创建计费处理器
func NewBillingHandler(svc *billing.Service) *BillingHandler {
	return &BillingHandler{
		svc: svc,
	}
}

// Checkout 创建结账会话
// @Summary 创建订阅结账会话
// @Description 按套餐创建托管结账页并返回跳转地址
// @Tags Billing
// @Accept json
// @Produce json
// @Param body body dto.CheckoutRequest true "套餐选择"
// @Success 200 {object} dto.Response[dto.CheckoutResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/billing/checkout [post]
func (h *BillingHandler) Checkout(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	url, err := h.svc.Checkout(ctx, userID, entity.PlanType(req.Plan))
	if err != nil {
		logger.Error(ctx, "failed to create checkout session", err, "user_id", userID, "plan", req.Plan)
		dto.FromError(c, err)
		return
	}

	dto.Success(c, &dto.CheckoutResponse{URL: url})
}

// Webhook 处理支付平台回调
// @Summary 处理支付平台 Webhook
// @Description 校验签名并按事件类型推进订阅状态
// @Tags Billing
// @Accept json
// @Produce json
// @Success 200 {object} dto.WebhookAckResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/webhooks/billing [post]
func (h *BillingHandler) Webhook(c *gin.Context) {
	ctx := c.Request.Context()

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookBodyLimit))
	if err != nil {
		dto.BadRequest(c, "failed to read webhook payload")
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if err := h.svc.HandleWebhook(ctx, payload, signature); err != nil {
		logger.Error(ctx, "webhook processing failed", err)
		dto.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.WebhookAckResponse{Received: true})
}

// GetSubscription 获取当前用户订阅状态
// @Summary 获取订阅状态
// @Tags Billing
// @Produce json
// @Success 200 {object} dto.Response[dto.SubscriptionResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/billing/subscription [get]
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	sub, err := h.svc.GetSubscription(ctx, userID)
	if err != nil {
		dto.FromError(c, err)
		return
	}

	dto.Success(c, dto.NewSubscriptionResponse(sub))
}
