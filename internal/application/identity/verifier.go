// Package identity 账号确认与匿名记录 re-own 的应用服务
package identity

import (
	"context"
)

// AuthUser 认证服务返回的用户信息
type AuthUser struct {
	ID    string
	Email string
	Name  string
}

// Verifier 托管认证服务凭证校验接口（port），由 GoTrue 客户端实现
type Verifier interface {
	// ExchangeCode PKCE 授权码换取用户信息
	ExchangeCode(ctx context.Context, code string) (*AuthUser, error)
	// VerifyOTP 校验邮件确认链接中的 token_hash
	VerifyOTP(ctx context.Context, tokenHash, otpType string) (*AuthUser, error)
}
