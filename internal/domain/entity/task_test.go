package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTask_SetProgress(t *testing.T) {
	tests := []struct {
		name  string
		input int
		want  int
	}{
		{"负值截断到 0", -10, 0},
		{"超出截断到 100", 150, 100},
		{"整刻度保持不变", 50, 50},
		{"向下吸附", 30, 25},
		{"向上吸附", 40, 50},
		{"未过中点向下吸附", 37, 25},
		{"过中点向上吸附", 38, 50},
		{"接近满格", 99, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := NewSeedTask("user-1", "Morning run", "2026-09-01", 0)
			task.SetProgress(tt.input)
			assert.Equal(t, tt.want, task.Progress)
		})
	}
}

func TestTask_IsDone(t *testing.T) {
	task := NewSeedTask("user-1", "Morning run", "2026-09-01", 0)
	assert.False(t, task.IsDone())
	task.SetProgress(100)
	assert.True(t, task.IsDone())
}

func TestNewSeedTask_Defaults(t *testing.T) {
	task := NewSeedTask("user-1", "Meditate", "2026-09-02", 3)

	assert.Equal(t, TaskDefaultAmount, task.Amount)
	assert.Equal(t, TaskDefaultTime, task.Time)
	assert.Equal(t, TaskDefaultIcon, task.Icon)
	assert.Equal(t, 0, task.Progress)
	assert.Equal(t, 3, task.Position)
	assert.Equal(t, "2026-09-02", task.Date)
}
