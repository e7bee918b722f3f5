package story

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/eino/schema"
)

func TestBuildStoryMessages(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	msgs, err := buildStoryMessages("Alice", []string{"Alice", "run a bakery"}, now)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, storySystemPrompt, msgs[0].Content)

	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "Alice's life in 2031", "故事设定在五年后")
	assert.Contains(t, msgs[1].Content, `["Alice","run a bakery"]`, "问卷回答以 JSON 注入")
}

func TestBuildStoryMessages_NameFallback(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	msgs, err := buildStoryMessages("  ", []string{"x"}, now)
	require.NoError(t, err)
	assert.Contains(t, msgs[1].Content, "you's life in 2031")
}

func TestParseRoutines(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{
			name:  "纯 JSON",
			input: `{"dailyRoutines":["Morning run","Journaling"]}`,
			want:  []string{"Morning run", "Journaling"},
		},
		{
			name:  "夹杂代码块围栏",
			input: "```json\n{\"dailyRoutines\":[\"Meditate\"]}\n```",
			want:  []string{"Meditate"},
		},
		{
			name:  "过滤空白条目",
			input: `{"dailyRoutines":["  ","Read 20 pages",""]}`,
			want:  []string{"Read 20 pages"},
		},
		{name: "空输出", input: "", wantErr: true},
		{name: "非 JSON", input: "no routines here", wantErr: true},
		{name: "空列表", input: `{"dailyRoutines":[]}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRoutines(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.DailyRoutines)
		})
	}
}
