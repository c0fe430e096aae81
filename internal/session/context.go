package session

import (
	"context"

	"car-showcase/internal/identity"
)

type ctxKey struct{}

// WithSession 把已加载的会话挂到请求 context，下游（API 客户端）按需取 token
func WithSession(ctx context.Context, s *identity.Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) *identity.Session {
	s, _ := ctx.Value(ctxKey{}).(*identity.Session)
	return s
}

// TokenFromContext 发请求那一刻才取 token；没有会话时为空串（匿名请求）
func TokenFromContext(ctx context.Context) string {
	if s := FromContext(ctx); s != nil {
		return s.AccessToken
	}
	return ""
}
