package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"future-self-api/internal/application/questionnaire"
	"future-self-api/internal/config"
	"future-self-api/internal/interfaces/http/dto"
	"future-self-api/internal/interfaces/http/middleware"
	"future-self-api/pkg/logger"
)

// QuestionnaireHandler 问卷处理器
type QuestionnaireHandler struct {
	svc *questionnaire.Service
	cfg *config.Config
}

// NewQuestionnaireHandler 创建问卷处理器
func NewQuestionnaireHandler(svc *questionnaire.Service, cfg *config.Config) *QuestionnaireHandler {
	return &QuestionnaireHandler{
		svc: svc,
		cfg: cfg,
	}
}

// StartSession 开始匿名问卷会话
// @Summary 开始匿名问卷会话
// @Description 分配匿名会话 ID 并写入 Cookie
// @Tags Questionnaire
// @Produce json
// @Success 200 {object} dto.Response[dto.StartSessionResponse]
// @Router /v1/questionnaire/sessions [post]
func (h *QuestionnaireHandler) StartSession(c *gin.Context) {
	sessionID := h.svc.StartSession()
	h.setSessionCookie(c, sessionID)
	dto.Success(c, &dto.StartSessionResponse{SessionID: sessionID})
}

// SaveDraft 保存问卷草稿
// @Summary 保存问卷草稿
// @Description 按匿名会话保存作答草稿，后写覆盖先写
// @Tags Questionnaire
// @Accept json
// @Produce json
// @Param body body dto.SaveDraftRequest true "草稿内容"
// @Success 200 {object} dto.Response[dto.DraftResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Param sid path string true "会话 ID"
// @Router /v1/questionnaire/sessions/{sid}/draft [put]
func (h *QuestionnaireHandler) SaveDraft(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID := h.sessionID(c)
	if sessionID == "" {
		dto.BadRequest(c, "missing questionnaire session")
		return
	}

	var req dto.SaveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.svc.SaveDraft(ctx, sessionID, req.Responses); err != nil {
		logger.Error(ctx, "failed to save draft", err, "session_id", sessionID)
		dto.FromError(c, err)
		return
	}

	dto.Success(c, &dto.DraftResponse{Responses: req.Responses})
}

// GetDraft 获取问卷草稿
// @Summary 获取问卷草稿
// @Description 恢复当前匿名会话的作答草稿
// @Tags Questionnaire
// @Produce json
// @Success 200 {object} dto.Response[dto.DraftResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Param sid path string true "会话 ID"
// @Router /v1/questionnaire/sessions/{sid}/draft [get]
func (h *QuestionnaireHandler) GetDraft(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID := h.sessionID(c)
	if sessionID == "" {
		dto.BadRequest(c, "missing questionnaire session")
		return
	}

	responses, err := h.svc.GetDraft(ctx, sessionID)
	if err != nil {
		logger.Error(ctx, "failed to get draft", err, "session_id", sessionID)
		dto.FromError(c, err)
		return
	}
	if responses == nil {
		responses = []string{}
	}

	dto.Success(c, &dto.DraftResponse{Responses: responses})
}

// Submit 提交匿名问卷
// @Summary 提交匿名问卷
// @Description 落库匿名问卷记录并清理草稿
// @Tags Questionnaire
// @Accept json
// @Produce json
// @Param body body dto.SubmitRequest true "问卷答案"
// @Success 201 {object} dto.Response[dto.ResponseRecordResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/questionnaire/responses [post]
func (h *QuestionnaireHandler) Submit(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID := h.sessionID(c)
	if sessionID == "" {
		dto.BadRequest(c, "missing questionnaire session")
		return
	}

	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	rec, err := h.svc.Submit(ctx, sessionID, req.Responses, h.createdAt(&req))
	if err != nil {
		logger.Error(ctx, "failed to submit questionnaire", err, "session_id", sessionID)
		dto.FromError(c, err)
		return
	}

	dto.Created(c, dto.NewResponseRecordResponse(rec))
}

// Migrate 登录态提交问卷
// @Summary 登录态提交问卷
// @Description 将本地保存的问卷答案迁移到当前用户名下
// @Tags Questionnaire
// @Accept json
// @Produce json
// @Param body body dto.SubmitRequest true "问卷答案"
// @Success 200 {object} dto.Response[dto.ResponseRecordResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/questionnaire/migrate [post]
func (h *QuestionnaireHandler) Migrate(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	rec, err := h.svc.Migrate(ctx, userID, req.Responses, h.createdAt(&req))
	if err != nil {
		logger.Error(ctx, "failed to migrate questionnaire", err, "user_id", userID)
		dto.FromError(c, err)
		return
	}

	dto.Success(c, dto.NewResponseRecordResponse(rec))
}

// Get 获取当前用户的问卷记录
// @Summary 获取当前用户的问卷记录
// @Tags Questionnaire
// @Produce json
// @Success 200 {object} dto.Response[dto.ResponseRecordResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/questionnaire/responses [get]
func (h *QuestionnaireHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	rec, err := h.svc.GetForUser(ctx, userID)
	if err != nil {
		dto.FromError(c, err)
		return
	}

	dto.Success(c, dto.NewResponseRecordResponse(rec))
}

// sessionID 依次取路径参数、Cookie、请求头
func (h *QuestionnaireHandler) sessionID(c *gin.Context) string {
	if sid := c.Param("sid"); sid != "" {
		return sid
	}
	if v, err := c.Cookie(h.cfg.Questionnaire.SessionCookie); err == nil && v != "" {
		return v
	}
	return c.GetHeader("X-Session-ID")
}

func (h *QuestionnaireHandler) setSessionCookie(c *gin.Context, sessionID string) {
	maxAge := int(h.cfg.Questionnaire.DraftTTL.Seconds())
	secure := h.cfg.App.Env == "production"
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Questionnaire.SessionCookie, sessionID, maxAge, "/", "", secure, true)
}

func (h *QuestionnaireHandler) createdAt(req *dto.SubmitRequest) time.Time {
	if req.CreatedAt != nil {
		return *req.CreatedAt
	}
	return time.Now()
}
