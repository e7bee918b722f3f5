// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"future-self-api/internal/domain/entity"
)

// StoryRepository 故事仓储接口
type StoryRepository interface {
	// Upsert 按 user_id 写入故事，已存在时覆盖文本与时间戳
	Upsert(ctx context.Context, story *entity.Story) error

	// GetByUserID 获取用户故事，不存在返回 nil
	GetByUserID(ctx context.Context, userID string) (*entity.Story, error)

	// UpdateRoutines 更新故事上提取的例行活动
	UpdateRoutines(ctx context.Context, userID string, routines *entity.RoutineList) error
}

// ProfileRepository 用户档案仓储接口
type ProfileRepository interface {
	// Upsert 按 user_id 写入档案（确认流程幂等调用）
	Upsert(ctx context.Context, profile *entity.Profile) error

	// GetByUserID 获取档案，不存在返回 nil
	GetByUserID(ctx context.Context, userID string) (*entity.Profile, error)
}
