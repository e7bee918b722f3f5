package dto

import (
	"future-self-api/internal/domain/entity"
)

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	Title string `json:"title" binding:"required"`
	Date  string `json:"date,omitempty"`
}

// UpdateTaskRequest 局部更新任务请求，缺省字段不修改
type UpdateTaskRequest struct {
	Title    *string `json:"title,omitempty"`
	Amount   *string `json:"amount,omitempty"`
	Time     *string `json:"time,omitempty"`
	Icon     *string `json:"icon,omitempty"`
	Progress *int    `json:"progress,omitempty"`
	Position *int    `json:"position,omitempty"`
}

// TaskResponse 任务响应
type TaskResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Amount   string `json:"amount,omitempty"`
	Time     string `json:"time,omitempty"`
	Icon     string `json:"icon,omitempty"`
	Progress int    `json:"progress"`
	Date     string `json:"date"`
	Position int    `json:"position"`
	Done     bool   `json:"done"`
}

// NewTaskResponse 从实体构造响应
func NewTaskResponse(t *entity.Task) *TaskResponse {
	return &TaskResponse{
		ID:       t.ID,
		Title:    t.Title,
		Amount:   t.Amount,
		Time:     t.Time,
		Icon:     t.Icon,
		Progress: t.Progress,
		Date:     t.Date,
		Position: t.Position,
		Done:     t.IsDone(),
	}
}

// NewTaskListResponse 批量构造任务响应
func NewTaskListResponse(tasks []*entity.Task) []*TaskResponse {
	out := make([]*TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, NewTaskResponse(t))
	}
	return out
}
