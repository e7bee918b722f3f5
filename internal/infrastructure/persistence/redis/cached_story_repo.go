// Package redis 提供 Redis 缓存实现
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"future-self-api/internal/domain/entity"
	"future-self-api/internal/domain/repository"
)

// storyCacheTTL 故事缓存时长
// 故事只在生成时变更，变更路径会主动失效，TTL 仅作兜底
const storyCacheTTL = 10 * time.Minute

// CachedStoryRepository 带 Redis 读缓存的故事仓储
// 读路径走 Read-Through + singleflight；整条故事写入时写穿刷新，
// 局部更新（例行活动）失效缓存
type CachedStoryRepository struct {
	inner repository.StoryRepository
	cache *Cache
}

// NewCachedStoryRepository 创建带缓存的故事仓储
func NewCachedStoryRepository(inner repository.StoryRepository, cache *Cache) *CachedStoryRepository {
	return &CachedStoryRepository{
		inner: inner,
		cache: cache,
	}
}

// Upsert 写入故事并写穿刷新缓存
func (r *CachedStoryRepository) Upsert(ctx context.Context, story *entity.Story) error {
	if err := r.inner.Upsert(ctx, story); err != nil {
		return err
	}
	// 手头已有完整故事，直接刷新缓存；写入失败退化为失效，避免脏读
	if err := r.cache.Set(ctx, storyCacheKey(story.UserID), story, storyCacheTTL); err != nil {
		_ = r.cache.Delete(ctx, storyCacheKey(story.UserID))
	}
	return nil
}

// GetByUserID 获取用户故事，优先读缓存
func (r *CachedStoryRepository) GetByUserID(ctx context.Context, userID string) (*entity.Story, error) {
	data, err := r.cache.GetOrLoadSafe(ctx, storyCacheKey(userID), storyCacheTTL, func() (interface{}, error) {
		return r.inner.GetByUserID(ctx, userID)
	})
	if err != nil {
		// 缓存链路故障时直接回源
		return r.inner.GetByUserID(ctx, userID)
	}

	var story entity.Story
	if err := json.Unmarshal(data, &story); err != nil {
		return r.inner.GetByUserID(ctx, userID)
	}
	// 缓存的 null 表示用户尚无故事
	if story.UserID == "" {
		return nil, nil
	}
	return &story, nil
}

// UpdateRoutines 更新例行活动并失效缓存
func (r *CachedStoryRepository) UpdateRoutines(ctx context.Context, userID string, routines *entity.RoutineList) error {
	if err := r.inner.UpdateRoutines(ctx, userID, routines); err != nil {
		return err
	}
	_ = r.cache.Delete(ctx, storyCacheKey(userID))
	return nil
}

func storyCacheKey(userID string) string {
	return fmt.Sprintf("story:user:%s", userID)
}
