package identity

import (
	"context"
	"strings"

	"future-self-api/internal/domain/entity"
	"future-self-api/internal/domain/repository"
	apperrors "future-self-api/pkg/errors"
	"future-self-api/pkg/logger"
	"future-self-api/pkg/metrics"
)

// ConfirmInput 账号确认请求参数
type ConfirmInput struct {
	// Code PKCE 授权码，与 TokenHash 二选一
	Code string
	// TokenHash 邮件确认链接中的 token_hash
	TokenHash string
	// OTPType token_hash 对应的校验类型（signup/email 等）
	OTPType string
	// SessionID 匿名会话 Cookie，可为空
	SessionID string
}

// Reconciler 账号确认后的数据对账：
// 校验凭证、补齐用户档案、把匿名问卷记录 re-own 给该用户。
// 对账中的数据错误只记录日志，不阻断确认流程。
type Reconciler struct {
	verifier  Verifier
	responses repository.ResponseRecordRepository
	profiles  repository.ProfileRepository
}

// NewReconciler 创建对账服务
func NewReconciler(
	verifier Verifier,
	responses repository.ResponseRecordRepository,
	profiles repository.ProfileRepository,
) *Reconciler {
	return &Reconciler{
		verifier:  verifier,
		responses: responses,
		profiles:  profiles,
	}
}

// Confirm 执行账号确认
// 凭证校验失败返回错误；对账步骤失败仅记录日志，用户仍视为确认成功
func (r *Reconciler) Confirm(ctx context.Context, in *ConfirmInput) (*AuthUser, error) {
	if in == nil {
		return nil, apperrors.ErrInvalidParam.WithDetail("confirm input is nil")
	}

	user, err := r.verify(ctx, in)
	if err != nil {
		return nil, err
	}

	// 档案与问卷对账都不影响确认结果
	r.ensureProfile(ctx, user)
	r.reconcileResponses(ctx, user, in.SessionID)

	logger.Info(ctx, "账号确认成功", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func (r *Reconciler) verify(ctx context.Context, in *ConfirmInput) (*AuthUser, error) {
	switch {
	case strings.TrimSpace(in.Code) != "":
		user, err := r.verifier.ExchangeCode(ctx, in.Code)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeConfirmationFailed, "code exchange failed")
		}
		return user, nil
	case strings.TrimSpace(in.TokenHash) != "":
		user, err := r.verifier.VerifyOTP(ctx, in.TokenHash, in.OTPType)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeConfirmationFailed, "otp verification failed")
		}
		return user, nil
	default:
		return nil, apperrors.New(apperrors.CodeConfirmationFailed, "missing confirmation credential")
	}
}

// ensureProfile 幂等写入用户档案
func (r *Reconciler) ensureProfile(ctx context.Context, user *AuthUser) {
	profile := entity.NewProfile(user.ID, user.Name, user.Email)
	if err := r.profiles.Upsert(ctx, profile); err != nil {
		logger.Error(ctx, "写入用户档案失败", err, "user_id", user.ID)
	}
}

// reconcileResponses 问卷记录对账：
//  1. 用户已有记录 → 合法时推进到 verified
//  2. 否则按会话 Cookie 认领匿名记录（user_id IS NULL 守卫防并发重复认领）
//  3. 两者皆无 → 仅记录日志，用户可稍后补交问卷
func (r *Reconciler) reconcileResponses(ctx context.Context, user *AuthUser, sessionID string) {
	existing, err := r.responses.GetByUserID(ctx, user.ID)
	if err != nil {
		logger.Error(ctx, "查询用户问卷记录失败", err, "user_id", user.ID)
		return
	}

	if existing != nil {
		r.advanceToVerified(ctx, existing, user.ID)
		return
	}

	if strings.TrimSpace(sessionID) == "" {
		logger.Info(ctx, "确认时无匿名会话，跳过问卷认领", "user_id", user.ID)
		return
	}

	anon, err := r.responses.GetAnonymousBySessionID(ctx, sessionID)
	if err != nil {
		logger.Error(ctx, "查询匿名问卷记录失败", err, "session_id", sessionID)
		return
	}
	if anon == nil {
		logger.Info(ctx, "匿名会话下无问卷记录", "user_id", user.ID, "session_id", sessionID)
		return
	}

	adopted, err := r.responses.AdoptAnonymous(ctx, anon.ID, user.ID)
	if err != nil {
		logger.Error(ctx, "认领匿名问卷记录失败", err,
			"user_id", user.ID,
			"record_id", anon.ID,
		)
		return
	}
	if !adopted {
		// 并发确认或重复点击确认链接，记录已被认领
		logger.Warn(ctx, "匿名记录已被认领，跳过", "record_id", anon.ID, "user_id", user.ID)
		return
	}

	metrics.ResponseStatusTransitions.WithLabelValues(
		string(entity.ResponseStatusPending), string(entity.ResponseStatusVerified),
	).Inc()
	logger.Info(ctx, "匿名问卷记录认领成功",
		"user_id", user.ID,
		"record_id", anon.ID,
		"session_id", sessionID,
	)
}

// advanceToVerified 把已有记录推进到 verified（非法迁移仅记录日志）
func (r *Reconciler) advanceToVerified(ctx context.Context, rec *entity.ResponseRecord, userID string) {
	if rec.Status == entity.ResponseStatusVerified || rec.Status == entity.ResponseStatusStoryGenerated {
		// 已是确认后的状态，重复确认无需处理
		return
	}
	if !rec.Status.CanTransitionTo(entity.ResponseStatusVerified) {
		logger.Warn(ctx, "状态不允许推进到 verified",
			"user_id", userID,
			"status", string(rec.Status),
		)
		return
	}
	if err := r.responses.UpdateStatus(ctx, userID, entity.ResponseStatusVerified); err != nil {
		logger.Error(ctx, "推进问卷状态失败", err, "user_id", userID)
		return
	}
	metrics.ResponseStatusTransitions.WithLabelValues(
		string(rec.Status), string(entity.ResponseStatusVerified),
	).Inc()
}
