// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"future-self-api/internal/domain/entity"
)

// SubscriptionRepository 订阅仓储接口
type SubscriptionRepository interface {
	// Create 创建订阅记录（首次结账，状态 incomplete）
	Create(ctx context.Context, sub *entity.Subscription) error

	// GetByUserID 获取用户订阅，不存在返回 nil
	GetByUserID(ctx context.Context, userID string) (*entity.Subscription, error)

	// GetByCustomerID 按外部客户 ID 获取订阅，不存在返回 nil
	GetByCustomerID(ctx context.Context, customerID string) (*entity.Subscription, error)

	// ActivateByCustomerID 结账完成：写入外部订阅 ID 与套餐并置为 active
	ActivateByCustomerID(ctx context.Context, customerID, subscriptionID string, plan entity.PlanType) error

	// RefreshPeriod 续费成功：刷新计费周期边界并保持 active
	RefreshPeriod(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) error

	// CancelBySubscriptionID 按外部订阅 ID 置为 canceled
	CancelBySubscriptionID(ctx context.Context, subscriptionID string) error
}
