// Package postgres 提供 PostgreSQL Repository 实现
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

// ResponseRecordRepository 问卷回答记录仓储实现
type ResponseRecordRepository struct {
	client *Client
}

// NewResponseRecordRepository 创建问卷回答记录仓储
func NewResponseRecordRepository(client *Client) *ResponseRecordRepository {
	return &ResponseRecordRepository{client: client}
}

// UpsertAnonymous 按 session_id 写入匿名记录
// 同会话已有匿名记录时覆盖作答内容，保留原始 created_at 与状态
func (r *ResponseRecordRepository) UpsertAnonymous(ctx context.Context, rec *entity.ResponseRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.ResponseRecordRepository.UpsertAnonymous")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Transaction(func(tx *gorm.DB) error {
		var existing entity.ResponseRecord
		err := tx.Where("session_id = ? AND user_id IS NULL", *rec.SessionID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(rec).Error
		}
		if err != nil {
			return err
		}

		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.Status = existing.Status
		rec.UpdatedAt = time.Now()
		// 结构体更新走 serializer，保证 responses 正确序列化为 jsonb
		return tx.Model(&entity.ResponseRecord{}).
			Where("id = ?", existing.ID).
			Select("name", "responses", "updated_at").
			Updates(&entity.ResponseRecord{
				Name:      rec.Name,
				Responses: rec.Responses,
				UpdatedAt: rec.UpdatedAt,
			}).Error
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert anonymous record: %w", err)
	}
	return nil
}

// UpsertForUser 按 user_id 写入已认证记录
// user_id 上的唯一索引使冲突落在数据库层，避免读改写竞态
func (r *ResponseRecordRepository) UpsertForUser(ctx context.Context, rec *entity.ResponseRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.ResponseRecordRepository.UpsertForUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "responses", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert user record: %w", err)
	}
	return nil
}

// GetByUserID 根据用户 ID 获取记录
func (r *ResponseRecordRepository) GetByUserID(ctx context.Context, userID string) (*entity.ResponseRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.ResponseRecordRepository.GetByUserID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var rec entity.ResponseRecord
	if err := db.First(&rec, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get record by user id: %w", err)
	}
	return &rec, nil
}

// GetAnonymousBySessionID 获取指定会话的匿名记录
func (r *ResponseRecordRepository) GetAnonymousBySessionID(ctx context.Context, sessionID string) (*entity.ResponseRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.ResponseRecordRepository.GetAnonymousBySessionID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var rec entity.ResponseRecord
	if err := db.First(&rec, "session_id = ? AND user_id IS NULL", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get anonymous record: %w", err)
	}
	return &rec, nil
}

// AdoptAnonymous 将匿名记录 re-own 给用户并置为 verified
// user_id IS NULL 守卫保证并发确认时只有一次认领生效
func (r *ResponseRecordRepository) AdoptAnonymous(ctx context.Context, recordID, userID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.ResponseRecordRepository.AdoptAnonymous")
	defer span.End()

	db := getDB(ctx, r.client.db)
	res := db.Model(&entity.ResponseRecord{}).
		Where("id = ? AND user_id IS NULL", recordID).
		Updates(map[string]interface{}{
			"user_id":    userID,
			"status":     entity.ResponseStatusVerified,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		span.RecordError(res.Error)
		return false, fmt.Errorf("failed to adopt anonymous record: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// UpdateStatus 更新记录状态
func (r *ResponseRecordRepository) UpdateStatus(ctx context.Context, userID string, status entity.ResponseStatus) error {
	ctx, span := tracer.Start(ctx, "postgres.ResponseRecordRepository.UpdateStatus")
	defer span.End()

	db := getDB(ctx, r.client.db)
	res := db.Model(&entity.ResponseRecord{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		span.RecordError(res.Error)
		return fmt.Errorf("failed to update record status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no record found for user %s", userID)
	}
	return nil
}
