package story

import (
	"encoding/json"
	"fmt"
	"strings"

	"future-self-api/internal/domain/entity"
)

// extractJSONObject 尝试从模型输出中截取第一个完整 JSON 对象。
// 这是一个容错逻辑：模型可能会在 JSON 前后夹杂多余文本或代码块围栏。
func extractJSONObject(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return raw
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// parseRoutines 解析例行活动提取结果
// 过滤空白项；解析失败或无有效条目时返回错误，由调用方决定降级
func parseRoutines(output string) (*entity.RoutineList, error) {
	raw := extractJSONObject(output)
	if raw == "" {
		return nil, fmt.Errorf("empty routine output")
	}

	var list entity.RoutineList
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("unmarshal routines: %w", err)
	}

	cleaned := make([]string, 0, len(list.DailyRoutines))
	for _, r := range list.DailyRoutines {
		if t := strings.TrimSpace(r); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("no routines extracted")
	}

	return &entity.RoutineList{DailyRoutines: cleaned}, nil
}
