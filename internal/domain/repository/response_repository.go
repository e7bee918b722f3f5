// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"future-self-api/internal/domain/entity"
)

// ResponseRecordRepository 问卷回答记录仓储接口
type ResponseRecordRepository interface {
	// UpsertAnonymous 按 session_id 写入匿名记录（last-write-wins）
	// 已存在同 session 的匿名记录时覆盖 responses/name/updated_at，
	// 保留原始 created_at 与状态
	UpsertAnonymous(ctx context.Context, rec *entity.ResponseRecord) error

	// UpsertForUser 按 user_id 写入已认证记录
	// 冲突时仅覆盖 responses/name/updated_at，保留 created_at 与状态
	UpsertForUser(ctx context.Context, rec *entity.ResponseRecord) error

	// GetByUserID 根据用户 ID 获取记录，不存在返回 nil
	GetByUserID(ctx context.Context, userID string) (*entity.ResponseRecord, error)

	// GetAnonymousBySessionID 获取指定会话的匿名记录（user_id IS NULL）
	GetAnonymousBySessionID(ctx context.Context, sessionID string) (*entity.ResponseRecord, error)

	// AdoptAnonymous 将匿名记录 re-own 给用户并置为 verified
	// 仅在记录仍为匿名时生效（user_id IS NULL 守卫），返回是否发生了更新
	AdoptAnonymous(ctx context.Context, recordID, userID string) (bool, error)

	// UpdateStatus 更新记录状态并刷新时间戳
	UpdateStatus(ctx context.Context, userID string, status entity.ResponseStatus) error
}
