package handler

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"

	"future-self-api/internal/application/story"
	"future-self-api/internal/interfaces/http/dto"
	"future-self-api/internal/interfaces/http/middleware"
	"future-self-api/pkg/logger"
)

// StoryHandler 未来故事处理器
type StoryHandler struct {
	generator *story.Generator
}

// NewStoryHandler 创建故事处理器
func NewStoryHandler(generator *story.Generator) *StoryHandler {
	return &StoryHandler{
		generator: generator,
	}
}

type streamChunk struct {
	Index int
	Chunk string
}

// Get 获取当前用户的未来故事
// @Summary 获取未来故事
// @Description 返回已生成的故事；生成中时返回占位文案并标记 generating
// @Tags Stories
// @Produce json
// @Success 200 {object} dto.Response[dto.StoryResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/stories/me [get]
func (h *StoryHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	s, err := h.generator.GetStory(ctx, userID)
	if err != nil {
		dto.FromError(c, err)
		return
	}

	dto.Success(c, dto.NewStoryResponse(s))
}

// Generate 生成未来故事
// @Summary 生成未来故事
// @Description 基于问卷答案调用 LLM 生成故事；stream=true 时以 SSE 推送分片
// @Tags Stories
// @Accept json
// @Produce json
// @Produce text/event-stream
// @Param stream query bool false "是否流式返回" default(false)
// @Param body body dto.GenerateStoryRequest false "生成选项"
// @Success 200 {object} dto.Response[dto.StoryResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/stories/generate [post]
func (h *StoryHandler) Generate(c *gin.Context) {
	var req dto.GenerateStoryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	// 只允许为认证主体本人生成
	if req.UserID != "" && req.UserID != middleware.GetUserIDFromGin(c) {
		dto.Forbidden(c, "cannot generate story for another user")
		return
	}

	if req.Stream || c.Query("stream") == "true" {
		h.generateStream(c, req.LocalResponses)
		return
	}

	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	s, err := h.generator.Generate(ctx, userID, req.LocalResponses)
	if err != nil {
		logger.Error(ctx, "story generation failed", err, "user_id", userID)
		dto.FromError(c, err)
		return
	}

	dto.Success(c, dto.NewStoryResponse(s))
}

// generateStream 以 SSE 推送故事分片
// 客户端断开时生成继续在后台跑完并落库，推送随即终止。
func (h *StoryHandler) generateStream(c *gin.Context, local []string) {
	reqCtx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	contentCh := make(chan streamChunk, 16)
	errCh := make(chan error, 1)
	doneCh := make(chan *dto.StoryResponse, 1)

	// 生成过程与请求生命周期解耦，断连只会让 sink 报错
	genCtx := context.WithoutCancel(reqCtx)
	go func() {
		defer close(contentCh)

		s, err := h.generator.StreamGenerate(genCtx, userID, local, func(index int, chunk string) error {
			select {
			case contentCh <- streamChunk{Index: index, Chunk: chunk}:
				return nil
			case <-reqCtx.Done():
				return reqCtx.Err()
			}
		})
		if err != nil {
			logger.Error(genCtx, "story stream failed", err, "user_id", userID)
			errCh <- err
			return
		}
		doneCh <- dto.NewStoryResponse(s)
	}()

	c.Stream(func(w io.Writer) bool {
		select {
		case chunk, ok := <-contentCh:
			if !ok {
				// 内容推送完毕，等待收尾事件
				select {
				case resp := <-doneCh:
					c.SSEvent("done", resp)
				case err := <-errCh:
					c.SSEvent("error", gin.H{"message": err.Error()})
				case <-reqCtx.Done():
				}
				return false
			}
			c.SSEvent("content", gin.H{
				"chunk": chunk.Chunk,
				"index": chunk.Index,
			})
			return true

		case err := <-errCh:
			c.SSEvent("error", gin.H{"message": err.Error()})
			return false

		case <-reqCtx.Done():
			// 客户端断开，后台协程继续收尾
			return false
		}
	})
}
