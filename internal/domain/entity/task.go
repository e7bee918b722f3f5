// Package entity 定义领域实体
package entity

import (
	"time"
)

// 订阅激活时批量播种任务使用的默认展示属性
const (
	TaskDefaultAmount = "Daily"
	TaskDefaultTime   = "9:00 AM"
	TaskDefaultIcon   = "🔄"
	// TaskProgressStep 进度调整步长
	TaskProgressStep = 25
	// TaskSeedDays 订阅激活后播种的天数
	TaskSeedDays = 7
)

// Task 每日例行任务实例
type Task struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    string    `json:"user_id" gorm:"type:uuid;index:idx_tasks_user_date;not null"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null"`
	Amount    string    `json:"amount,omitempty" gorm:"type:varchar(64)"`
	Time      string    `json:"time,omitempty" gorm:"type:varchar(32)"`
	Icon      string    `json:"icon,omitempty" gorm:"type:varchar(16)"`
	Progress  int       `json:"progress" gorm:"default:0"`
	Date      string    `json:"date" gorm:"type:date;index:idx_tasks_user_date"`
	Position  int       `json:"position" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSeedTask 从例行活动模板创建一条播种任务
func NewSeedTask(userID, title, date string, position int) *Task {
	now := time.Now()
	return &Task{
		UserID:    userID,
		Title:     title,
		Amount:    TaskDefaultAmount,
		Time:      TaskDefaultTime,
		Icon:      TaskDefaultIcon,
		Progress:  0,
		Date:      date,
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetProgress 设置进度，吸附到步长并截断到 [0,100]
func (t *Task) SetProgress(progress int) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	// 吸附到最近的步长刻度
	remainder := progress % TaskProgressStep
	if remainder != 0 {
		if remainder*2 >= TaskProgressStep {
			progress += TaskProgressStep - remainder
		} else {
			progress -= remainder
		}
	}
	if progress > 100 {
		progress = 100
	}
	t.Progress = progress
	t.UpdatedAt = time.Now()
}

// IsDone 任务是否完成
func (t *Task) IsDone() bool {
	return t.Progress >= 100
}
