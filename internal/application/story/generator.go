package story

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"future-self-api/internal/config"
	"future-self-api/internal/domain/entity"
	"future-self-api/internal/domain/repository"
	apperrors "future-self-api/pkg/errors"
	"future-self-api/pkg/logger"
	"future-self-api/pkg/metrics"
)

// ChunkSink 流式生成的分片回调，返回错误表示下游（客户端）已断开
type ChunkSink func(index int, chunk string) error

// Generator 未来故事生成器
// 生成前置条件：问卷记录存在且非空、状态允许进入 story-generated。
// 流式与一次性两种模式共用同一套前置校验与持久化逻辑。
type Generator struct {
	factory   ChatModelFactory
	llmCfg    *config.LLMConfig
	responses repository.ResponseRecordRepository
	stories   repository.StoryRepository
	profiles  repository.ProfileRepository
}

// NewGenerator 创建故事生成器
func NewGenerator(
	factory ChatModelFactory,
	cfg *config.Config,
	responses repository.ResponseRecordRepository,
	stories repository.StoryRepository,
	profiles repository.ProfileRepository,
) *Generator {
	return &Generator{
		factory:   factory,
		llmCfg:    &cfg.LLM,
		responses: responses,
		stories:   stories,
		profiles:  profiles,
	}
}

// Generate 一次性生成故事并持久化
// local 为客户端本地保存的问卷答案，服务端记录缺失时回退使用
func (g *Generator) Generate(ctx context.Context, userID string, local []string) (*entity.Story, error) {
	rec, err := g.precheck(ctx, userID, local)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	chatModel, err := g.factory.Get(ctx, "")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLLMProviderError, "chat model unavailable")
	}

	msgs, err := buildStoryMessages(g.subjectName(ctx, userID, rec), rec.Responses, time.Now())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "build prompt failed")
	}

	g.ensurePlaceholder(ctx, userID)

	outMsg, err := chatModel.Generate(ctx, msgs)
	if err != nil {
		g.markError(ctx, userID, rec.Status)
		metrics.StoryGenerationTotal.WithLabelValues("invoke", "error").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "story generation failed")
	}
	g.recordUsage(outMsg)

	content := strings.TrimSpace(outMsg.Content)
	if content == "" {
		g.markError(ctx, userID, rec.Status)
		metrics.StoryGenerationTotal.WithLabelValues("invoke", "error").Inc()
		return nil, apperrors.ErrGenerationFailed.WithDetail("empty story content")
	}

	story, err := g.finalize(ctx, userID, rec.Status, content)
	if err != nil {
		metrics.StoryGenerationTotal.WithLabelValues("invoke", "error").Inc()
		return nil, err
	}

	metrics.StoryGenerationTotal.WithLabelValues("invoke", "success").Inc()
	metrics.StoryGenerationDuration.WithLabelValues("invoke").Observe(time.Since(start).Seconds())
	return story, nil
}

// StreamGenerate 流式生成故事
// 分片依次交给 sink；客户端中途断开时保留已生成的部分文本，
// 但状态只在完整生成后才推进到 story-generated。
func (g *Generator) StreamGenerate(ctx context.Context, userID string, local []string, sink ChunkSink) (*entity.Story, error) {
	rec, err := g.precheck(ctx, userID, local)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	chatModel, err := g.factory.Get(ctx, "")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLLMProviderError, "chat model unavailable")
	}

	msgs, err := buildStoryMessages(g.subjectName(ctx, userID, rec), rec.Responses, time.Now())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "build prompt failed")
	}

	g.ensurePlaceholder(ctx, userID)

	reader, err := chatModel.Stream(ctx, msgs)
	if err != nil {
		g.markError(ctx, userID, rec.Status)
		metrics.StoryGenerationTotal.WithLabelValues("stream", "error").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "story stream failed")
	}
	defer reader.Close()

	var (
		sb      strings.Builder
		index   int
		sinkErr error
	)
	for {
		msg, recvErr := reader.Recv()
		if recvErr != nil {
			if errors.Is(recvErr, io.EOF) {
				break
			}
			// 上游流中断：保留已有片段，状态标记为 error
			g.persistPartial(ctx, userID, sb.String())
			g.markError(ctx, userID, rec.Status)
			metrics.StoryGenerationTotal.WithLabelValues("stream", "error").Inc()
			metrics.StoryStreamChunks.WithLabelValues("error").Observe(float64(index))
			return nil, apperrors.Wrap(recvErr, apperrors.CodeLLMCallFailed, "story stream interrupted")
		}
		g.recordUsage(msg)
		if msg.Content == "" {
			continue
		}
		sb.WriteString(msg.Content)
		if sinkErr == nil && sink != nil {
			if err := sink(index, msg.Content); err != nil {
				// 客户端断开后继续消费上游流，保证完整故事仍可落库
				sinkErr = err
				logger.Warn(ctx, "流式推送中断，转入后台续读",
					"user_id", userID,
					"chunks_sent", index,
				)
			}
		}
		index++
	}

	content := strings.TrimSpace(sb.String())
	if content == "" {
		g.markError(ctx, userID, rec.Status)
		metrics.StoryGenerationTotal.WithLabelValues("stream", "error").Inc()
		return nil, apperrors.ErrGenerationFailed.WithDetail("empty story content")
	}

	story, err := g.finalize(ctx, userID, rec.Status, content)
	if err != nil {
		metrics.StoryGenerationTotal.WithLabelValues("stream", "error").Inc()
		return nil, err
	}

	metrics.StoryGenerationTotal.WithLabelValues("stream", "success").Inc()
	metrics.StoryGenerationDuration.WithLabelValues("stream").Observe(time.Since(start).Seconds())
	metrics.StoryStreamChunks.WithLabelValues("success").Observe(float64(index))

	if sinkErr != nil {
		return story, apperrors.Wrap(sinkErr, apperrors.CodeGenerationFailed, "client disconnected during stream")
	}
	return story, nil
}

// GetStory 获取用户故事，不存在返回 ErrStoryNotFound
func (g *Generator) GetStory(ctx context.Context, userID string) (*entity.Story, error) {
	story, err := g.stories.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "query story failed")
	}
	if story == nil {
		return nil, apperrors.ErrStoryNotFound
	}
	return story, nil
}

// precheck 校验生成前置条件并返回问卷记录
// 服务端无可用答案且客户端携带了本地答案时，先落库再继续
func (g *Generator) precheck(ctx context.Context, userID string, local []string) (*entity.ResponseRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("user id is required")
	}
	rec, err := g.responses.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "query responses failed")
	}
	if rec == nil || len(rec.Responses) == 0 {
		if len(local) == 0 {
			if rec == nil {
				return nil, apperrors.ErrResponsesNotFound
			}
			return nil, apperrors.ErrEmptyResponses
		}
		rec, err = g.adoptLocalResponses(ctx, userID, rec, local)
		if err != nil {
			return nil, err
		}
	}

	// error 状态视为重试：先恢复到 verified 再进入生成
	if rec.Status == entity.ResponseStatusError {
		if err := g.responses.UpdateStatus(ctx, userID, entity.ResponseStatusVerified); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "reset status failed")
		}
		metrics.ResponseStatusTransitions.WithLabelValues(
			string(entity.ResponseStatusError), string(entity.ResponseStatusVerified),
		).Inc()
		rec.Status = entity.ResponseStatusVerified
	}

	if !rec.Status.CanTransitionTo(entity.ResponseStatusStoryGenerated) {
		return nil, apperrors.ErrInvalidTransition.WithDetail(
			fmt.Sprintf("cannot generate story from status %s", rec.Status),
		)
	}
	return rec, nil
}

// adoptLocalResponses 把客户端本地答案落库到用户名下
// 调用方已通过认证，新记录直接推进到 verified
func (g *Generator) adoptLocalResponses(ctx context.Context, userID string, existing *entity.ResponseRecord, local []string) (*entity.ResponseRecord, error) {
	rec := entity.NewUserResponseRecord(userID, local, time.Now())
	if err := g.responses.UpsertForUser(ctx, rec); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "persist local responses failed")
	}

	// upsert 冲突时保留既有状态，这里按需显式推进
	status := entity.ResponseStatusPending
	if existing != nil {
		status = existing.Status
	}
	if status == entity.ResponseStatusPending {
		if err := g.responses.UpdateStatus(ctx, userID, entity.ResponseStatusVerified); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "advance status failed")
		}
		metrics.ResponseStatusTransitions.WithLabelValues(
			string(entity.ResponseStatusPending), string(entity.ResponseStatusVerified),
		).Inc()
		status = entity.ResponseStatusVerified
	}
	rec.Status = status

	logger.Info(ctx, "使用客户端本地答案生成",
		"user_id", userID,
		"responses", len(local),
	)
	return rec, nil
}

// subjectName 叙事主角称呼：问卷首答优先，档案姓名兜底
func (g *Generator) subjectName(ctx context.Context, userID string, rec *entity.ResponseRecord) string {
	if strings.TrimSpace(rec.Name) != "" {
		return rec.Name
	}
	profile, err := g.profiles.GetByUserID(ctx, userID)
	if err != nil {
		logger.Warn(ctx, "查询档案失败，使用默认称呼", "user_id", userID, "error", err)
		return ""
	}
	return profile.DisplayName()
}

// ensurePlaceholder 首次生成时写入占位故事，供前端轮询展示生成中
func (g *Generator) ensurePlaceholder(ctx context.Context, userID string) {
	existing, err := g.stories.GetByUserID(ctx, userID)
	if err != nil {
		logger.Warn(ctx, "查询故事占位失败", "user_id", userID, "error", err)
		return
	}
	if existing != nil {
		return
	}
	placeholder := &entity.Story{
		UserID:    userID,
		Story:     entity.StoryPlaceholder,
		UpdatedAt: time.Now(),
	}
	if err := g.stories.Upsert(ctx, placeholder); err != nil {
		logger.Warn(ctx, "写入故事占位失败", "user_id", userID, "error", err)
	}
}

// finalize 完整生成后的持久化：故事正文、例行活动、状态推进
// 使用脱离取消链的 context，避免请求结束丢掉已完成的结果
func (g *Generator) finalize(ctx context.Context, userID string, fromStatus entity.ResponseStatus, content string) (*entity.Story, error) {
	persistCtx := context.WithoutCancel(ctx)

	story := &entity.Story{
		UserID:    userID,
		Story:     content,
		UpdatedAt: time.Now(),
	}
	if err := g.stories.Upsert(persistCtx, story); err != nil {
		g.markError(persistCtx, userID, fromStatus)
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "persist story failed")
	}

	if err := g.responses.UpdateStatus(persistCtx, userID, entity.ResponseStatusStoryGenerated); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "advance status failed")
	}
	metrics.ResponseStatusTransitions.WithLabelValues(
		string(fromStatus), string(entity.ResponseStatusStoryGenerated),
	).Inc()

	// 例行活动提取失败不影响故事结果
	if routines := g.extractRoutines(persistCtx, content); routines != nil {
		if err := g.stories.UpdateRoutines(persistCtx, userID, routines); err != nil {
			logger.Warn(ctx, "保存例行活动失败", "user_id", userID, "error", err)
		} else {
			story.Routines = routines
		}
	}

	logger.Info(ctx, "故事生成完成",
		"user_id", userID,
		"length", len(content),
		"routines", story.RoutineCount(),
	)
	return story, nil
}

// extractRoutines 从故事正文提取每日例行活动（尽力而为）
func (g *Generator) extractRoutines(ctx context.Context, content string) *entity.RoutineList {
	chatModel, err := g.factory.Get(ctx, "")
	if err != nil {
		logger.Warn(ctx, "例行活动提取跳过：模型不可用", "error", err)
		return nil
	}

	outMsg, err := chatModel.Generate(ctx, buildRoutineMessages(content))
	if err != nil {
		logger.Warn(ctx, "例行活动提取调用失败", "error", err)
		return nil
	}
	g.recordUsage(outMsg)

	routines, err := parseRoutines(outMsg.Content)
	if err != nil {
		logger.Warn(ctx, "例行活动解析失败", "error", err)
		return nil
	}
	return routines
}

// persistPartial 保留中断前已生成的部分文本（不推进状态）
func (g *Generator) persistPartial(ctx context.Context, userID, partial string) {
	partial = strings.TrimSpace(partial)
	if partial == "" {
		return
	}
	persistCtx := context.WithoutCancel(ctx)
	story := &entity.Story{
		UserID:    userID,
		Story:     partial,
		UpdatedAt: time.Now(),
	}
	if err := g.stories.Upsert(persistCtx, story); err != nil {
		logger.Error(ctx, "保存部分故事失败", err, "user_id", userID)
	}
}

// markError 生成失败时把记录置为 error
func (g *Generator) markError(ctx context.Context, userID string, fromStatus entity.ResponseStatus) {
	persistCtx := context.WithoutCancel(ctx)
	if err := g.responses.UpdateStatus(persistCtx, userID, entity.ResponseStatusError); err != nil {
		logger.Error(ctx, "标记错误状态失败", err, "user_id", userID)
		return
	}
	metrics.ResponseStatusTransitions.WithLabelValues(
		string(fromStatus), string(entity.ResponseStatusError),
	).Inc()
}

// recordUsage 记录 Token 用量指标
func (g *Generator) recordUsage(msg *schema.Message) {
	if msg == nil || msg.ResponseMeta == nil || msg.ResponseMeta.Usage == nil {
		return
	}
	provider := g.llmCfg.DefaultProvider
	model := ""
	if p, ok := g.llmCfg.Providers[provider]; ok {
		model = p.Model
	}
	usage := msg.ResponseMeta.Usage
	if usage.PromptTokens > 0 {
		metrics.LLMTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		metrics.LLMTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(usage.CompletionTokens))
	}
}
