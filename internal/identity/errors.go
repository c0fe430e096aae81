package identity

import (
	"errors"
	"fmt"
)

// ErrTransport 网络层失败（连不上、超时等），对用户只显示通用提示
var ErrTransport = errors.New("identity: transport error")

// AuthError 身份提供方返回的预期内失败（如密码错误），消息原样透出
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("auth error (status %d)", e.Status)
}

// AsAuthError 便捷判断：是否为预期内的认证失败
func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
