package dto

import (
	"time"

	"future-self-api/internal/domain/entity"
)

// CheckoutRequest 创建结账会话请求
type CheckoutRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// CheckoutResponse 结账会话响应
type CheckoutResponse struct {
	URL string `json:"url"`
}

// WebhookAckResponse Webhook 确认响应
type WebhookAckResponse struct {
	Received bool `json:"received"`
}

// SubscriptionResponse 订阅状态响应
type SubscriptionResponse struct {
	Status             string     `json:"status"`
	Plan               string     `json:"plan,omitempty"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
}

// NewSubscriptionResponse 从实体构造响应
func NewSubscriptionResponse(s *entity.Subscription) *SubscriptionResponse {
	return &SubscriptionResponse{
		Status:             string(s.Status),
		Plan:               string(s.PlanType),
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
	}
}
