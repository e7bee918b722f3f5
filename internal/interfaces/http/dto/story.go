package dto

import (
	"time"

	"future-self-api/internal/domain/entity"
)

// GenerateStoryRequest 生成故事请求
// UserID 可省略，默认取认证主体；LocalResponses 为客户端本地保存的问卷答案，服务端无记录时回退使用
type GenerateStoryRequest struct {
	UserID         string   `json:"user_id,omitempty"`
	Stream         bool     `json:"stream,omitempty"`
	LocalResponses []string `json:"local_responses,omitempty"`
}

// StoryResponse 故事响应
type StoryResponse struct {
	Story string `json:"story"`
	// Generating 仍在生成中（返回的是占位文案）
	Generating bool      `json:"generating,omitempty"`
	Routines   []string  `json:"routines,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewStoryResponse 从实体构造响应
func NewStoryResponse(s *entity.Story) *StoryResponse {
	resp := &StoryResponse{
		Story:      s.Story,
		Generating: !s.IsAuthoritative(),
		UpdatedAt:  s.UpdatedAt,
	}
	if s.Routines != nil {
		resp.Routines = s.Routines.DailyRoutines
	}
	return resp
}
