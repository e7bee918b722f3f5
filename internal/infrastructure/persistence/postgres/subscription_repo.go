package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"future-self-api/internal/domain/entity"
)

// SubscriptionRepository 订阅仓储实现
type SubscriptionRepository struct {
	client *Client
}

// NewSubscriptionRepository 创建订阅仓储
func NewSubscriptionRepository(client *Client) *SubscriptionRepository {
	return &SubscriptionRepository{client: client}
}

// Create 创建订阅记录
func (r *SubscriptionRepository) Create(ctx context.Context, sub *entity.Subscription) error {
	ctx, span := tracer.Start(ctx, "postgres.SubscriptionRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(sub).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// GetByUserID 获取用户订阅
func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID string) (*entity.Subscription, error) {
	ctx, span := tracer.Start(ctx, "postgres.SubscriptionRepository.GetByUserID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var sub entity.Subscription
	if err := db.First(&sub, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

// GetByCustomerID 按外部客户 ID 获取订阅
func (r *SubscriptionRepository) GetByCustomerID(ctx context.Context, customerID string) (*entity.Subscription, error) {
	ctx, span := tracer.Start(ctx, "postgres.SubscriptionRepository.GetByCustomerID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var sub entity.Subscription
	if err := db.First(&sub, "customer_id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get subscription by customer: %w", err)
	}
	return &sub, nil
}

// ActivateByCustomerID 结账完成后激活订阅
func (r *SubscriptionRepository) ActivateByCustomerID(ctx context.Context, customerID, subscriptionID string, plan entity.PlanType) error {
	ctx, span := tracer.Start(ctx, "postgres.SubscriptionRepository.ActivateByCustomerID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	res := db.Model(&entity.Subscription{}).
		Where("customer_id = ?", customerID).
		Updates(map[string]interface{}{
			"subscription_id": subscriptionID,
			"plan_type":       plan,
			"status":          entity.SubscriptionStatusActive,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		span.RecordError(res.Error)
		return fmt.Errorf("failed to activate subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no subscription found for customer %s", customerID)
	}
	return nil
}

// RefreshPeriod 续费成功后刷新计费周期
func (r *SubscriptionRepository) RefreshPeriod(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) error {
	ctx, span := tracer.Start(ctx, "postgres.SubscriptionRepository.RefreshPeriod")
	defer span.End()

	db := getDB(ctx, r.client.db)
	res := db.Model(&entity.Subscription{}).
		Where("subscription_id = ?", subscriptionID).
		Updates(map[string]interface{}{
			"status":               entity.SubscriptionStatusActive,
			"current_period_start": periodStart,
			"current_period_end":   periodEnd,
			"updated_at":           time.Now(),
		})
	if res.Error != nil {
		span.RecordError(res.Error)
		return fmt.Errorf("failed to refresh period: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no subscription found for %s", subscriptionID)
	}
	return nil
}

// CancelBySubscriptionID 取消订阅
func (r *SubscriptionRepository) CancelBySubscriptionID(ctx context.Context, subscriptionID string) error {
	ctx, span := tracer.Start(ctx, "postgres.SubscriptionRepository.CancelBySubscriptionID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	res := db.Model(&entity.Subscription{}).
		Where("subscription_id = ?", subscriptionID).
		Updates(map[string]interface{}{
			"status":     entity.SubscriptionStatusCanceled,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		span.RecordError(res.Error)
		return fmt.Errorf("failed to cancel subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no subscription found for %s", subscriptionID)
	}
	return nil
}
