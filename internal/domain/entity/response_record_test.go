package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from ResponseStatus
		to   ResponseStatus
		want bool
	}{
		{"pending 到 verified", ResponseStatusPending, ResponseStatusVerified, true},
		{"verified 到 story-generated", ResponseStatusVerified, ResponseStatusStoryGenerated, true},
		{"pending 不能跳级", ResponseStatusPending, ResponseStatusStoryGenerated, false},
		{"不允许回退", ResponseStatusVerified, ResponseStatusPending, false},
		{"story-generated 不回退", ResponseStatusStoryGenerated, ResponseStatusVerified, false},
		{"任意状态可进入 error", ResponseStatusPending, ResponseStatusError, true},
		{"verified 可进入 error", ResponseStatusVerified, ResponseStatusError, true},
		{"error 重试回 pending", ResponseStatusError, ResponseStatusPending, true},
		{"error 重试回 verified", ResponseStatusError, ResponseStatusVerified, true},
		{"error 不能直达 story-generated", ResponseStatusError, ResponseStatusStoryGenerated, false},
		{"story-generated 可重入（重新生成）", ResponseStatusStoryGenerated, ResponseStatusStoryGenerated, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestResponseRecord_Transition(t *testing.T) {
	rec := NewAnonymousResponseRecord("sess-1", []string{"Alice"}, time.Time{})
	require.Equal(t, ResponseStatusPending, rec.Status)

	assert.True(t, rec.Transition(ResponseStatusVerified))
	assert.Equal(t, ResponseStatusVerified, rec.Status)

	// 非法迁移不改变状态
	assert.False(t, rec.Transition(ResponseStatusPending))
	assert.Equal(t, ResponseStatusVerified, rec.Status)
}

func TestNewAnonymousResponseRecord(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := NewAnonymousResponseRecord("sess-1", []string{"Alice", "run a bakery"}, created)

	assert.Equal(t, "Alice", rec.Name, "首个回答作为姓名")
	assert.Equal(t, created, rec.CreatedAt, "保留客户端首次作答时间")
	assert.True(t, rec.IsAnonymous())
	require.NotNil(t, rec.SessionID)
	assert.Equal(t, "sess-1", *rec.SessionID)
}

func TestNewUserResponseRecord(t *testing.T) {
	rec := NewUserResponseRecord("user-1", []string{"Bob"}, time.Time{})

	assert.False(t, rec.IsAnonymous())
	assert.Nil(t, rec.SessionID)
	require.NotNil(t, rec.UserID)
	assert.Equal(t, "user-1", *rec.UserID)
	assert.False(t, rec.CreatedAt.IsZero(), "零值时间取当前时间")
}
