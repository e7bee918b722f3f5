package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"future-self-api/internal/application/identity"
	"future-self-api/internal/config"
	"future-self-api/pkg/logger"
)

// ConfirmHandler 账号确认处理器
type ConfirmHandler struct {
	reconciler *identity.Reconciler
	cfg        *config.Config
}

// NewConfirmHandler 创建账号确认处理器
func NewConfirmHandler(reconciler *identity.Reconciler, cfg *config.Config) *ConfirmHandler {
	return &ConfirmHandler{
		reconciler: reconciler,
		cfg:        cfg,
	}
}

// Confirm 处理认证服务的确认回跳
// @Summary 处理账号确认回跳
// @Description 校验确认凭证，归并匿名问卷记录，然后重定向回前端
// @Tags Auth
// @Param code query string false "PKCE 授权码"
// @Param token_hash query string false "邮件确认 Token"
// @Param type query string false "确认类型" default(signup)
// @Success 303 "redirect"
// @Router /v1/auth/confirm [get]
func (h *ConfirmHandler) Confirm(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID, _ := c.Cookie(h.cfg.Questionnaire.SessionCookie)

	user, err := h.reconciler.Confirm(ctx, &identity.ConfirmInput{
		Code:      c.Query("code"),
		TokenHash: c.Query("token_hash"),
		OTPType:   c.Query("type"),
		SessionID: sessionID,
	})
	if err != nil {
		logger.Error(ctx, "account confirmation failed", err, "session_id", sessionID)
		c.Redirect(http.StatusSeeOther, h.errorRedirect(err))
		return
	}

	logger.Info(ctx, "account confirmed", "user_id", user.ID)
	c.Redirect(http.StatusSeeOther, h.cfg.Auth.SuccessRedirect)
}

func (h *ConfirmHandler) errorRedirect(err error) string {
	target := h.cfg.Auth.ErrorRedirect
	if target == "" {
		target = "/"
	}
	return target + "?error=" + url.QueryEscape(err.Error())
}
