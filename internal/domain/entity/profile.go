// Package entity 定义领域实体
package entity

import (
	"time"
)

// Profile 用户档案，来源于认证服务确认后的身份信息
type Profile struct {
	UserID    string    `json:"user_id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name,omitempty" gorm:"type:varchar(255)"`
	Email     string    `json:"email" gorm:"type:varchar(255);index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProfile 从认证服务返回的身份信息创建档案
func NewProfile(userID, name, email string) *Profile {
	now := time.Now()
	return &Profile{
		UserID:    userID,
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DisplayName 返回用于叙事生成的称呼，档案缺失时的兜底由调用方决定
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	return p.Name
}
