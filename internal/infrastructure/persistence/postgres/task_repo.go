package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"future-self-api/internal/domain/entity"
)

// TaskRepository 任务仓储实现
type TaskRepository struct {
	client *Client
}

// NewTaskRepository 创建任务仓储
func NewTaskRepository(client *Client) *TaskRepository {
	return &TaskRepository{client: client}
}

// CreateBatch 批量创建任务
func (r *TaskRepository) CreateBatch(ctx context.Context, tasks []*entity.Task) error {
	ctx, span := tracer.Start(ctx, "postgres.TaskRepository.CreateBatch")
	defer span.End()

	if len(tasks) == 0 {
		return nil
	}
	db := getDB(ctx, r.client.db)
	if err := db.CreateInBatches(tasks, 100).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create tasks: %w", err)
	}
	return nil
}

// Create 创建单个任务
func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) error {
	ctx, span := tracer.Start(ctx, "postgres.TaskRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(task).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID 获取任务
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*entity.Task, error) {
	ctx, span := tracer.Start(ctx, "postgres.TaskRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var task entity.Task
	if err := db.First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// ListByUser 按日期范围列出用户任务
func (r *TaskRepository) ListByUser(ctx context.Context, userID, fromDate, toDate string) ([]*entity.Task, error) {
	ctx, span := tracer.Start(ctx, "postgres.TaskRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var tasks []*entity.Task
	err := db.Where("user_id = ? AND date >= ? AND date <= ?", userID, fromDate, toDate).
		Order("date ASC, position ASC, created_at ASC").
		Find(&tasks).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Update 更新任务
func (r *TaskRepository) Update(ctx context.Context, task *entity.Task) error {
	ctx, span := tracer.Start(ctx, "postgres.TaskRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(task).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// Delete 删除任务
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.TaskRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	res := db.Delete(&entity.Task{}, "id = ?", id)
	if res.Error != nil {
		span.RecordError(res.Error)
		return fmt.Errorf("failed to delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no task found for id %s", id)
	}
	return nil
}

// CountByUserAndDateRange 统计日期范围内的任务数
func (r *TaskRepository) CountByUserAndDateRange(ctx context.Context, userID, fromDate, toDate string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.TaskRepository.CountByUserAndDateRange")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	err := db.Model(&entity.Task{}).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, fromDate, toDate).
		Count(&count).Error
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}
