package repository

import (
	"context"

	"future-self-api/internal/domain/entity"
)

// TaskRepository 任务仓储接口
type TaskRepository interface {
	// CreateBatch 批量创建任务（订阅激活播种）
	CreateBatch(ctx context.Context, tasks []*entity.Task) error

	// Create 创建单个任务
	Create(ctx context.Context, task *entity.Task) error

	// GetByID 获取任务，不存在返回 nil
	GetByID(ctx context.Context, id string) (*entity.Task, error)

	// ListByUser 按日期范围列出用户任务（date 升序、position 升序）
	ListByUser(ctx context.Context, userID, fromDate, toDate string) ([]*entity.Task, error)

	// Update 更新任务
	Update(ctx context.Context, task *entity.Task) error

	// Delete 删除任务
	Delete(ctx context.Context, id string) error

	// CountByUserAndDateRange 统计日期范围内的任务数
	CountByUserAndDateRange(ctx context.Context, userID, fromDate, toDate string) (int64, error)
}
