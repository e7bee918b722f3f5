// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"
)

// StoryPlaceholder 客户端在生成期间展示的占位文案前缀
// 与占位内容一致的故事不视为权威内容
const StoryPlaceholder = "Your personalized future story is being generated"

// RoutineList 从故事中提取的每日例行活动
type RoutineList struct {
	DailyRoutines []string `json:"dailyRoutines"`
}

// Story 生成的未来叙事
type Story struct {
	UserID    string       `json:"user_id" gorm:"type:uuid;primaryKey"`
	Story     string       `json:"story" gorm:"type:text"`
	Routines  *RoutineList `json:"routines,omitempty" gorm:"type:jsonb;serializer:json"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// IsAuthoritative 判断故事文本是否为真实生成内容
func (s *Story) IsAuthoritative() bool {
	if s == nil {
		return false
	}
	text := strings.TrimSpace(s.Story)
	if text == "" {
		return false
	}
	return !strings.Contains(text, StoryPlaceholder)
}

// RoutineCount 返回例行活动数量
func (s *Story) RoutineCount() int {
	if s == nil || s.Routines == nil {
		return 0
	}
	return len(s.Routines.DailyRoutines)
}
