package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DraftStore 问卷草稿存储
// 匿名会话逐题保存的草稿，last-write-wins，超过 TTL 自动过期
type DraftStore struct {
	client *Client
	ttl    time.Duration
}

// NewDraftStore 创建草稿存储
func NewDraftStore(client *Client, ttl time.Duration) *DraftStore {
	return &DraftStore{
		client: client,
		ttl:    ttl,
	}
}

func draftKey(sessionID string) string {
	return fmt.Sprintf("questionnaire:draft:%s", sessionID)
}

// SaveDraft 保存会话草稿（整体覆盖）
func (s *DraftStore) SaveDraft(ctx context.Context, sessionID string, responses []string) error {
	ctx, span := tracer.Start(ctx, "draft.Save",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	bytes, err := json.Marshal(responses)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	if err := s.client.rdb.Set(ctx, draftKey(sessionID), bytes, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// GetDraft 读取会话草稿，不存在返回 nil
func (s *DraftStore) GetDraft(ctx context.Context, sessionID string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "draft.Get",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	bytes, err := s.client.rdb.Get(ctx, draftKey(sessionID)).Bytes()
	if err != nil {
		if IsNil(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	var responses []string
	if err := json.Unmarshal(bytes, &responses); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return responses, nil
}

// DeleteDraft 删除会话草稿
func (s *DraftStore) DeleteDraft(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "draft.Delete",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	return s.client.rdb.Del(ctx, draftKey(sessionID)).Err()
}
