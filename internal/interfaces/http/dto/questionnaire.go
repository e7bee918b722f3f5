package dto

import (
	"time"

	"future-self-api/internal/domain/entity"
)

// StartSessionResponse 开始匿名会话响应
type StartSessionResponse struct {
	SessionID string `json:"session_id"`
}

// SaveDraftRequest 保存问卷草稿请求
type SaveDraftRequest struct {
	Responses []string `json:"responses" binding:"required"`
}

// DraftResponse 草稿响应
type DraftResponse struct {
	Responses []string `json:"responses"`
}

// SubmitRequest 提交问卷请求
// CreatedAt 可选，保留客户端首次作答时间
type SubmitRequest struct {
	Responses []string   `json:"responses" binding:"required,min=1"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// ResponseRecordResponse 问卷记录响应
type ResponseRecordResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Responses []string  `json:"responses"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewResponseRecordResponse 从实体构造响应
func NewResponseRecordResponse(rec *entity.ResponseRecord) *ResponseRecordResponse {
	return &ResponseRecordResponse{
		ID:        rec.ID,
		Name:      rec.Name,
		Responses: rec.Responses,
		Status:    string(rec.Status),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}
