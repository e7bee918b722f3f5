package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"future-self-api/internal/domain/entity"
)

// StoryRepository 故事仓储实现
type StoryRepository struct {
	client *Client
}

// NewStoryRepository 创建故事仓储
func NewStoryRepository(client *Client) *StoryRepository {
	return &StoryRepository{client: client}
}

// Upsert 按 user_id 写入故事
func (r *StoryRepository) Upsert(ctx context.Context, story *entity.Story) error {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.Upsert")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"story", "updated_at"}),
	}).Create(story).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert story: %w", err)
	}
	return nil
}

// GetByUserID 获取用户故事
func (r *StoryRepository) GetByUserID(ctx context.Context, userID string) (*entity.Story, error) {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.GetByUserID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var story entity.Story
	if err := db.First(&story, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get story: %w", err)
	}
	return &story, nil
}

// UpdateRoutines 更新提取的例行活动
func (r *StoryRepository) UpdateRoutines(ctx context.Context, userID string, routines *entity.RoutineList) error {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.UpdateRoutines")
	defer span.End()

	db := getDB(ctx, r.client.db)
	// 结构体更新走 serializer，map 更新不会序列化 jsonb 字段
	res := db.Model(&entity.Story{}).
		Where("user_id = ?", userID).
		Select("routines", "updated_at").
		Updates(&entity.Story{Routines: routines, UpdatedAt: time.Now()})
	if res.Error != nil {
		span.RecordError(res.Error)
		return fmt.Errorf("failed to update routines: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no story found for user %s", userID)
	}
	return nil
}
