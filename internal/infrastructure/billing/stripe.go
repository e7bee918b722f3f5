// Package billing 提供支付平台（Stripe）网关实现
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.opentelemetry.io/otel"

	appbilling "future-self-api/internal/application/billing"
	"future-self-api/internal/config"
	"future-self-api/internal/domain/entity"
)

var tracer = otel.Tracer("stripe")

// planDisplayNames 结账页上展示的套餐名
var planDisplayNames = map[entity.PlanType]string{
	entity.PlanBasic:   "Future Self Basic",
	entity.PlanPremium: "Future Self Premium",
}

// StripeGateway Stripe 支付网关
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway 创建 Stripe 网关
func NewStripeGateway(cfg *config.BillingConfig) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.APIKey, nil)
	return &StripeGateway{api: api}
}

// EnsureCustomer 创建支付平台客户
func (g *StripeGateway) EnsureCustomer(ctx context.Context, userID, email string) (string, error) {
	ctx, span := tracer.Start(ctx, "stripe.EnsureCustomer")
	defer span.End()

	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
	}
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata("user_id", userID)

	cus, err := g.api.Customers.New(params)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return cus.ID, nil
}

// CreateCheckoutSession 创建订阅模式的托管结账会话
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p *appbilling.CheckoutParams) (string, error) {
	ctx, span := tracer.Start(ctx, "stripe.CreateCheckoutSession")
	defer span.End()

	name := planDisplayNames[p.Plan]
	if name == "" {
		name = string(p.Plan)
	}

	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(p.CustomerID),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(p.Currency),
					UnitAmount: stripe.Int64(p.UnitAmount),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
					},
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	// 元数据随 Webhook 事件回传，用于定位本地订阅
	params.AddMetadata("user_id", p.UserID)
	params.AddMetadata("plan", string(p.Plan))

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// StripeEventParser Stripe Webhook 签名验证与事件解析
type StripeEventParser struct {
	webhookSecret string
}

// NewStripeEventParser 创建事件解析器
func NewStripeEventParser(cfg *config.BillingConfig) *StripeEventParser {
	return &StripeEventParser{webhookSecret: cfg.WebhookSecret}
}

// ParseEvent 验证签名并解析为应用层事件
func (p *StripeEventParser) ParseEvent(payload []byte, signature string) (*appbilling.WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	out := &appbilling.WebhookEvent{Type: string(event.Type)}

	switch string(event.Type) {
	case appbilling.EventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		if sess.Customer != nil {
			out.CustomerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			out.SubscriptionID = sess.Subscription.ID
		}
		out.Plan = entity.PlanType(sess.Metadata["plan"])

	case appbilling.EventInvoicePaid:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		if inv.Customer != nil {
			out.CustomerID = inv.Customer.ID
		}
		if inv.Subscription != nil {
			out.SubscriptionID = inv.Subscription.ID
		}
		out.PeriodStart = time.Unix(inv.PeriodStart, 0)
		out.PeriodEnd = time.Unix(inv.PeriodEnd, 0)
		// 账单行上的周期更贴近订阅计费周期
		if inv.Lines != nil && len(inv.Lines.Data) > 0 && inv.Lines.Data[0].Period != nil {
			out.PeriodStart = time.Unix(inv.Lines.Data[0].Period.Start, 0)
			out.PeriodEnd = time.Unix(inv.Lines.Data[0].Period.End, 0)
		}

	case appbilling.EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out.SubscriptionID = sub.ID
		if sub.Customer != nil {
			out.CustomerID = sub.Customer.ID
		}
	}

	return out, nil
}
