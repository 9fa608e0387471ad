package auth

import (
	"context"
	"time"
)

// TokenBlacklist 保存已登出的访问令牌的 jti。
// apiserver 的 AuthMiddleware 和 chatserver 的 WebSocket 升级都通过 ValidateToken 查询它，
// 所以登出后同一个令牌既不能调 REST 接口，也不能再建立讨论区的实时连接。
type TokenBlacklist interface {
	// Add 将 jti 加入黑名单，令牌原本的过期时间一到就自动移除
	Add(ctx context.Context, jti string, originalTokenExpTime time.Time) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Revoke 吊销 claims 对应的令牌。blacklist 为 nil 或令牌没有 jti/过期时间时什么也不做，
// 这类令牌无法被单独吊销，只能等它自然过期。
func Revoke(ctx context.Context, blacklist TokenBlacklist, claims *Claims) error {
	if blacklist == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	return blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time)
}
