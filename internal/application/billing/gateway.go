// Package billing 订阅结账与 Webhook 处理的应用服务
package billing

import (
	"context"
	"time"

	"future-self-api/internal/domain/entity"
)

// CheckoutParams 创建托管结账会话的参数
type CheckoutParams struct {
	CustomerID string
	Plan       entity.PlanType
	// UnitAmount 月度价格（最小货币单位）
	UnitAmount int64
	Currency   string
	SuccessURL string
	CancelURL  string
	// UserID 附在会话元数据上，Webhook 回调时用于定位订阅
	UserID string
}

// Gateway 支付平台网关接口（port），由 Stripe 客户端实现
type Gateway interface {
	// EnsureCustomer 返回已有客户 ID 或创建新客户
	EnsureCustomer(ctx context.Context, userID, email string) (string, error)
	// CreateCheckoutSession 创建托管结账会话，返回跳转 URL
	CreateCheckoutSession(ctx context.Context, params *CheckoutParams) (string, error)
}

// Webhook 事件类型
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventInvoicePaid         = "invoice.payment_succeeded"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// WebhookEvent 经过签名验证后的支付平台事件
type WebhookEvent struct {
	Type string
	// CustomerID 事件关联的客户
	CustomerID string
	// SubscriptionID 事件关联的外部订阅
	SubscriptionID string
	// Plan 结账完成事件携带的套餐
	Plan entity.PlanType
	// PeriodStart/PeriodEnd 续费事件携带的计费周期
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// EventParser Webhook 载荷解析与签名验证接口（port）
type EventParser interface {
	// ParseEvent 验证签名并解析事件；签名不合法返回 ErrSignatureRejected
	ParseEvent(payload []byte, signature string) (*WebhookEvent, error)
}
