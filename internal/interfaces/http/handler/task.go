package handler

import (
	"github.com/gin-gonic/gin"

	"future-self-api/internal/application/task"
	"future-self-api/internal/interfaces/http/dto"
	"future-self-api/internal/interfaces/http/middleware"
	"future-self-api/pkg/logger"
)

// TaskHandler 任务看板处理器
type TaskHandler struct {
	svc *task.Service
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(svc *task.Service) *TaskHandler {
	return &TaskHandler{
		svc: svc,
	}
}

// List 获取任务列表
// @Summary 获取任务列表
// @Description 按日期范围获取当前用户任务，缺省为今天
// @Tags Tasks
// @Produce json
// @Param from query string false "开始日期 (YYYY-MM-DD)"
// @Param to query string false "结束日期 (YYYY-MM-DD)"
// @Success 200 {object} dto.Response[[]dto.TaskResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	tasks, err := h.svc.List(ctx, userID, c.Query("from"), c.Query("to"))
	if err != nil {
		dto.FromError(c, err)
		return
	}

	dto.Success(c, dto.NewTaskListResponse(tasks))
}

// Create 创建任务
// @Summary 创建任务
// @Tags Tasks
// @Accept json
// @Produce json
// @Param body body dto.CreateTaskRequest true "任务信息"
// @Success 201 {object} dto.Response[dto.TaskResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	t, err := h.svc.Create(ctx, userID, req.Title, req.Date)
	if err != nil {
		logger.Error(ctx, "failed to create task", err, "user_id", userID)
		dto.FromError(c, err)
		return
	}

	dto.Created(c, dto.NewTaskResponse(t))
}

// Update 局部更新任务
// @Summary 局部更新任务
// @Description 更新标题、频次、时间、图标、排序位或进度；进度吸附到最近的 25% 档位
// @Tags Tasks
// @Accept json
// @Produce json
// @Param tid path string true "任务 ID"
// @Param body body dto.UpdateTaskRequest true "要修改的字段"
// @Success 200 {object} dto.Response[dto.TaskResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/tasks/{tid} [patch]
func (h *TaskHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	taskID := c.Param("tid")

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	t, err := h.svc.Update(ctx, userID, taskID, task.Patch{
		Title:    req.Title,
		Amount:   req.Amount,
		Time:     req.Time,
		Icon:     req.Icon,
		Progress: req.Progress,
		Position: req.Position,
	})
	if err != nil {
		dto.FromError(c, err)
		return
	}

	dto.Success(c, dto.NewTaskResponse(t))
}

// Delete 删除任务
// @Summary 删除任务
// @Tags Tasks
// @Param tid path string true "任务 ID"
// @Success 204 "no content"
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/tasks/{tid} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	taskID := c.Param("tid")

	if err := h.svc.Delete(ctx, userID, taskID); err != nil {
		dto.FromError(c, err)
		return
	}

	dto.NoContent(c)
}
