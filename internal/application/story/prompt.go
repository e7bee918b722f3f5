package story

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
)

// storySystemPrompt 叙事生成的系统提示词
const storySystemPrompt = "You are a creative writer crafting personalized, inspiring future stories."

// targetYearOffset 故事设定在几年后
const targetYearOffset = 5

// routineSystemPrompt 例行活动提取的系统提示词
const routineSystemPrompt = "You extract concrete daily routines from a story. " +
	"Respond with a JSON object of the form {\"dailyRoutines\": [\"...\"]} and nothing else. " +
	"Each routine must be a short actionable habit mentioned or implied by the story."

// buildStoryMessages 组装故事生成消息
// name 为空时用 "you" 兜底，保证提示词语法完整
func buildStoryMessages(name string, responses []string, now time.Time) ([]*schema.Message, error) {
	subject := strings.TrimSpace(name)
	if subject == "" {
		subject = "you"
	}

	payload, err := json.Marshal(responses)
	if err != nil {
		return nil, fmt.Errorf("marshal responses: %w", err)
	}

	targetYear := now.Year() + targetYearOffset
	userPrompt := fmt.Sprintf(
		"Create a detailed story about %s's life in %d, using their questionnaire responses: %s",
		subject, targetYear, string(payload),
	)

	return []*schema.Message{
		schema.SystemMessage(storySystemPrompt),
		schema.UserMessage(userPrompt),
	}, nil
}

// buildRoutineMessages 组装例行活动提取消息
func buildRoutineMessages(storyText string) []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage(routineSystemPrompt),
		schema.UserMessage("Story:\n\n" + storyText),
	}
}
