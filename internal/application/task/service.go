// Package task 任务板应用服务
package task

import (
	"context"
	"strings"
	"time"

	"future-self-api/internal/domain/entity"
	"future-self-api/internal/domain/repository"
	apperrors "future-self-api/pkg/errors"
	"future-self-api/pkg/logger"
)

// Service 任务板服务
type Service struct {
	tasks repository.TaskRepository
	tx    repository.Transactor
}

// NewService 创建任务板服务
func NewService(tasks repository.TaskRepository, tx repository.Transactor) *Service {
	return &Service{
		tasks: tasks,
		tx:    tx,
	}
}

// List 列出日期范围内的任务（fromDate/toDate 为 YYYY-MM-DD，缺省取当天）
func (s *Service) List(ctx context.Context, userID, fromDate, toDate string) ([]*entity.Task, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("user id is required")
	}
	today := time.Now().Format(time.DateOnly)
	if fromDate == "" {
		fromDate = today
	}
	if toDate == "" {
		toDate = fromDate
	}
	if _, err := time.Parse(time.DateOnly, fromDate); err != nil {
		return nil, apperrors.ErrInvalidParam.WithDetail("invalid from date")
	}
	if _, err := time.Parse(time.DateOnly, toDate); err != nil {
		return nil, apperrors.ErrInvalidParam.WithDetail("invalid to date")
	}

	list, err := s.tasks.ListByUser(ctx, userID, fromDate, toDate)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "list tasks failed")
	}
	return list, nil
}

// Create 新建一条任务
func (s *Service) Create(ctx context.Context, userID, title, date string) (*entity.Task, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("user id is required")
	}
	if strings.TrimSpace(title) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("title is required")
	}
	if date == "" {
		date = time.Now().Format(time.DateOnly)
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, apperrors.ErrInvalidParam.WithDetail("invalid date")
	}

	// 计数和插入放在同一事务里，避免并发创建挤占同一排序位
	var t *entity.Task
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		count, err := s.tasks.CountByUserAndDateRange(txCtx, userID, date, date)
		if err != nil {
			return err
		}
		t = entity.NewSeedTask(userID, title, date, int(count))
		return s.tasks.Create(txCtx, t)
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "create task failed")
	}

	logger.Info(ctx, "任务创建成功", "user_id", userID, "task_id", t.ID, "date", date)
	return t, nil
}

// Patch 任务局部更新字段，nil 表示不修改
type Patch struct {
	Title    *string
	Amount   *string
	Time     *string
	Icon     *string
	Progress *int
	Position *int
}

// Update 局部更新任务（进度吸附到步长，截断到 [0,100]）
func (s *Service) Update(ctx context.Context, userID, taskID string, patch Patch) (*entity.Task, error) {
	t, err := s.getOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, apperrors.ErrInvalidParam.WithDetail("title cannot be empty")
		}
		t.Title = *patch.Title
	}
	if patch.Amount != nil {
		t.Amount = *patch.Amount
	}
	if patch.Time != nil {
		t.Time = *patch.Time
	}
	if patch.Icon != nil {
		t.Icon = *patch.Icon
	}
	if patch.Progress != nil {
		t.SetProgress(*patch.Progress)
	}
	if patch.Position != nil {
		if *patch.Position < 0 {
			return nil, apperrors.ErrInvalidParam.WithDetail("position cannot be negative")
		}
		t.Position = *patch.Position
	}
	t.UpdatedAt = time.Now()

	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "update task failed")
	}
	return t, nil
}

// SetProgress 更新任务进度
func (s *Service) SetProgress(ctx context.Context, userID, taskID string, progress int) (*entity.Task, error) {
	return s.Update(ctx, userID, taskID, Patch{Progress: &progress})
}

// Delete 删除任务
func (s *Service) Delete(ctx context.Context, userID, taskID string) error {
	t, err := s.getOwned(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, t.ID); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "delete task failed")
	}
	logger.Info(ctx, "任务已删除", "user_id", userID, "task_id", taskID)
	return nil
}

// getOwned 获取任务并校验归属
func (s *Service) getOwned(ctx context.Context, userID, taskID string) (*entity.Task, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(taskID) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("user id and task id are required")
	}
	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "query task failed")
	}
	if t == nil {
		return nil, apperrors.ErrTaskNotFound
	}
	if t.UserID != userID {
		// 不泄露他人任务存在性
		return nil, apperrors.ErrTaskNotFound
	}
	return t, nil
}
