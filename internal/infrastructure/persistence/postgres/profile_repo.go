package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"future-self-api/internal/domain/entity"
)

// ProfileRepository 用户档案仓储实现
type ProfileRepository struct {
	client *Client
}

// NewProfileRepository 创建用户档案仓储
func NewProfileRepository(client *Client) *ProfileRepository {
	return &ProfileRepository{client: client}
}

// Upsert 按 user_id 写入档案
func (r *ProfileRepository) Upsert(ctx context.Context, profile *entity.Profile) error {
	ctx, span := tracer.Start(ctx, "postgres.ProfileRepository.Upsert")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "updated_at"}),
	}).Create(profile).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// GetByUserID 获取档案
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*entity.Profile, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProfileRepository.GetByUserID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var profile entity.Profile
	if err := db.First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}
