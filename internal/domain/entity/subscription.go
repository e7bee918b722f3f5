// Package entity 定义领域实体
package entity

import (
	"time"
)

// SubscriptionStatus 订阅状态
type SubscriptionStatus string

const (
	// SubscriptionStatusIncomplete 已创建客户记录但结账未完成
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
	// SubscriptionStatusActive 结账完成或续费成功
	SubscriptionStatusActive SubscriptionStatus = "active"
	// SubscriptionStatusCanceled 订阅已取消
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// PlanType 套餐类型
type PlanType string

const (
	PlanBasic   PlanType = "basic"
	PlanPremium PlanType = "premium"
)

// Subscription 计费关系记录
type Subscription struct {
	UserID             string             `json:"user_id" gorm:"type:uuid;primaryKey"`
	CustomerID         string             `json:"customer_id" gorm:"type:varchar(255);uniqueIndex"`
	SubscriptionID     string             `json:"subscription_id,omitempty" gorm:"type:varchar(255);index"`
	Status             SubscriptionStatus `json:"status" gorm:"type:varchar(32);default:'incomplete'"`
	PlanType           PlanType           `json:"plan_type,omitempty" gorm:"type:varchar(32)"`
	CurrentPeriodStart *time.Time         `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// NewSubscription 首次结账时创建的订阅记录
func NewSubscription(userID, customerID string) *Subscription {
	now := time.Now()
	return &Subscription{
		UserID:     userID,
		CustomerID: customerID,
		Status:     SubscriptionStatusIncomplete,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsActive 订阅是否生效
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == SubscriptionStatusActive
}
