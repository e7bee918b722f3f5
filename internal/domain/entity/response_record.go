// Package entity 定义领域实体
package entity

import (
	"time"
)

// ResponseStatus 问卷回答记录状态
type ResponseStatus string

const (
	// ResponseStatusPending 刚提交，尚未绑定已确认账号
	ResponseStatusPending ResponseStatus = "pending"
	// ResponseStatusVerified 账号确认完成，可进入故事生成
	ResponseStatusVerified ResponseStatus = "verified"
	// ResponseStatusStoryGenerated 故事已生成并持久化
	ResponseStatusStoryGenerated ResponseStatus = "story-generated"
	// ResponseStatusError 迁移或生成过程发生不可恢复错误
	ResponseStatusError ResponseStatus = "error"
)

// statusRank 状态的推进序，仅允许前进
var statusRank = map[ResponseStatus]int{
	ResponseStatusPending:        0,
	ResponseStatusVerified:       1,
	ResponseStatusStoryGenerated: 2,
}

// CanTransitionTo 校验状态迁移是否合法
// 规则：状态只能前进；任何状态可进入 error；error 可通过重试回到
// pending/verified；story-generated 可重入（重新生成）
func (s ResponseStatus) CanTransitionTo(next ResponseStatus) bool {
	if next == ResponseStatusError {
		return true
	}
	if s == ResponseStatusError {
		return next == ResponseStatusPending || next == ResponseStatusVerified
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	if s == ResponseStatusStoryGenerated && next == ResponseStatusStoryGenerated {
		return true
	}
	return to == from+1
}

// ResponseRecord 问卷回答记录
// 匿名阶段仅有 SessionID；账号确认后被 re-own，UserID 填入。
// user_id 上的唯一索引保证每个用户最多一条记录（NULL 不参与唯一性）。
type ResponseRecord struct {
	ID        string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    *string        `json:"user_id,omitempty" gorm:"type:uuid;uniqueIndex"`
	SessionID *string        `json:"session_id,omitempty" gorm:"type:uuid;index"`
	Name      string         `json:"name,omitempty" gorm:"type:varchar(255)"`
	Responses []string       `json:"responses" gorm:"type:jsonb;serializer:json"`
	Status    ResponseStatus `json:"status" gorm:"type:varchar(32);default:'pending'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewAnonymousResponseRecord 创建匿名回答记录
// createdAt 保留客户端首次作答时间，为零值时取当前时间
func NewAnonymousResponseRecord(sessionID string, responses []string, createdAt time.Time) *ResponseRecord {
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	name := ""
	if len(responses) > 0 {
		// 首个问题是姓名
		name = responses[0]
	}
	return &ResponseRecord{
		SessionID: &sessionID,
		Name:      name,
		Responses: responses,
		Status:    ResponseStatusPending,
		CreatedAt: createdAt,
		UpdatedAt: time.Now(),
	}
}

// NewUserResponseRecord 创建已认证用户的回答记录
func NewUserResponseRecord(userID string, responses []string, createdAt time.Time) *ResponseRecord {
	rec := NewAnonymousResponseRecord("", responses, createdAt)
	rec.SessionID = nil
	rec.UserID = &userID
	return rec
}

// IsAnonymous 是否仍为匿名记录
func (r *ResponseRecord) IsAnonymous() bool {
	return r.UserID == nil
}

// Transition 执行状态迁移，非法迁移返回 false 且不修改记录
func (r *ResponseRecord) Transition(next ResponseStatus) bool {
	if !r.Status.CanTransitionTo(next) {
		return false
	}
	r.Status = next
	r.UpdatedAt = time.Now()
	return true
}
