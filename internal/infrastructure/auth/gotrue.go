// Package auth 提供托管认证服务（GoTrue 协议）的客户端
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"

	"future-self-api/internal/application/identity"
	"future-self-api/internal/config"
)

var tracer = otel.Tracer("auth")

// GoTrueVerifier 通过认证服务的 REST 接口校验确认凭证
type GoTrueVerifier struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewGoTrueVerifier 创建认证服务客户端
func NewGoTrueVerifier(cfg *config.AuthConfig) *GoTrueVerifier {
	return &GoTrueVerifier{
		baseURL:    strings.TrimRight(cfg.ProviderURL, "/"),
		serviceKey: cfg.ServiceKey,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// tokenResponse 认证服务的令牌响应（只取用到的字段）
type tokenResponse struct {
	User struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		UserMetadata struct {
			Name     string `json:"name"`
			FullName string `json:"full_name"`
		} `json:"user_metadata"`
	} `json:"user"`
}

type errorResponse struct {
	Message          string `json:"msg"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCode PKCE 授权码换取用户信息
func (v *GoTrueVerifier) ExchangeCode(ctx context.Context, code string) (*identity.AuthUser, error) {
	ctx, span := tracer.Start(ctx, "gotrue.ExchangeCode")
	defer span.End()

	body := map[string]string{"auth_code": code}
	return v.post(ctx, "/auth/v1/token?grant_type=pkce", body)
}

// VerifyOTP 校验邮件确认链接中的 token_hash
func (v *GoTrueVerifier) VerifyOTP(ctx context.Context, tokenHash, otpType string) (*identity.AuthUser, error) {
	ctx, span := tracer.Start(ctx, "gotrue.VerifyOTP")
	defer span.End()

	if otpType == "" {
		otpType = "signup"
	}
	body := map[string]string{
		"token_hash": tokenHash,
		"type":       otpType,
	}
	return v.post(ctx, "/auth/v1/verify", body)
}

func (v *GoTrueVerifier) post(ctx context.Context, path string, body map[string]string) (*identity.AuthUser, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", v.serviceKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		_ = json.Unmarshal(raw, &errResp)
		msg := errResp.Message
		if msg == "" {
			msg = errResp.ErrorDescription
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("auth provider rejected credential: %s", msg)
	}

	var token tokenResponse
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if token.User.ID == "" {
		return nil, fmt.Errorf("auth provider returned no user")
	}

	name := token.User.UserMetadata.Name
	if name == "" {
		name = token.User.UserMetadata.FullName
	}
	return &identity.AuthUser{
		ID:    token.User.ID,
		Email: token.User.Email,
		Name:  name,
	}, nil
}
