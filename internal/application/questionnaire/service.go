// Package questionnaire 问卷收集与迁移的应用服务
package questionnaire

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"future-self-api/internal/domain/entity"
	"future-self-api/internal/domain/repository"
	apperrors "future-self-api/pkg/errors"
	"future-self-api/pkg/logger"
	"future-self-api/pkg/metrics"
)

// DraftStore 匿名草稿存储（port），由 Redis 实现
// 草稿为 last-write-wins，超过 TTL 自动过期
type DraftStore interface {
	SaveDraft(ctx context.Context, sessionID string, responses []string) error
	GetDraft(ctx context.Context, sessionID string) ([]string, error)
	DeleteDraft(ctx context.Context, sessionID string) error
}

// Service 问卷应用服务
type Service struct {
	responses repository.ResponseRecordRepository
	drafts    DraftStore
}

// NewService 创建问卷服务
func NewService(responses repository.ResponseRecordRepository, drafts DraftStore) *Service {
	return &Service{
		responses: responses,
		drafts:    drafts,
	}
}

// StartSession 分配新的匿名会话 ID
func (s *Service) StartSession() string {
	return uuid.NewString()
}

// SaveDraft 保存作答草稿（逐题自动保存，last-write-wins）
func (s *Service) SaveDraft(ctx context.Context, sessionID string, responses []string) error {
	if strings.TrimSpace(sessionID) == "" {
		return apperrors.ErrInvalidParam.WithDetail("session id is required")
	}
	if err := s.drafts.SaveDraft(ctx, sessionID, responses); err != nil {
		// 草稿丢失可重新作答，降级为告警
		logger.Warn(ctx, "保存问卷草稿失败",
			"session_id", sessionID,
			"error", err,
		)
		return apperrors.Wrap(err, apperrors.CodeCacheError, "save draft failed")
	}
	return nil
}

// GetDraft 读取会话草稿，不存在返回空切片
func (s *Service) GetDraft(ctx context.Context, sessionID string) ([]string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("session id is required")
	}
	return s.drafts.GetDraft(ctx, sessionID)
}

// Submit 提交完整问卷（匿名），落库为 pending 记录并清理草稿
// createdAt 保留客户端首次作答时间，为零值时取服务器当前时间
func (s *Service) Submit(ctx context.Context, sessionID string, responses []string, createdAt time.Time) (*entity.ResponseRecord, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("session id is required")
	}
	if len(responses) == 0 {
		return nil, apperrors.ErrEmptyResponses
	}

	rec := entity.NewAnonymousResponseRecord(sessionID, responses, createdAt)
	if err := s.responses.UpsertAnonymous(ctx, rec); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "submit responses failed")
	}

	// 正式记录已落库，草稿仅作兜底，删除失败不影响结果
	if err := s.drafts.DeleteDraft(ctx, sessionID); err != nil {
		logger.Warn(ctx, "清理问卷草稿失败", "session_id", sessionID, "error", err)
	}

	logger.Info(ctx, "匿名问卷提交成功",
		"session_id", sessionID,
		"record_id", rec.ID,
		"answers", len(responses),
	)
	return rec, nil
}

// Migrate 已认证用户直接提交/更新问卷
// 冲突时保留原始 created_at，仅覆盖作答内容；调用方持有有效 JWT，
// 记录不再停留在 pending，显式推进到 verified
func (s *Service) Migrate(ctx context.Context, userID string, responses []string, createdAt time.Time) (*entity.ResponseRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("user id is required")
	}
	if len(responses) == 0 {
		return nil, apperrors.ErrEmptyResponses
	}

	existing, err := s.responses.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "query responses failed")
	}

	rec := entity.NewUserResponseRecord(userID, responses, createdAt)
	if err := s.responses.UpsertForUser(ctx, rec); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "migrate responses failed")
	}

	// upsert 冲突时保留既有状态，pending 才需要推进
	status := entity.ResponseStatusPending
	if existing != nil {
		status = existing.Status
	}
	if status == entity.ResponseStatusPending {
		if err := s.responses.UpdateStatus(ctx, userID, entity.ResponseStatusVerified); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "advance status failed")
		}
		metrics.ResponseStatusTransitions.WithLabelValues(
			string(entity.ResponseStatusPending), string(entity.ResponseStatusVerified),
		).Inc()
		status = entity.ResponseStatusVerified
	}
	rec.Status = status

	logger.Info(ctx, "问卷迁移到用户成功", "user_id", userID, "answers", len(responses))
	return rec, nil
}

// GetForUser 获取用户的问卷记录
func (s *Service) GetForUser(ctx context.Context, userID string) (*entity.ResponseRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("user id is required")
	}
	rec, err := s.responses.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "query responses failed")
	}
	if rec == nil {
		return nil, apperrors.ErrResponsesNotFound
	}
	return rec, nil
}
