package identity

import "time"

// User 身份提供方持有的用户对象，这里只读 email 和 user_metadata.user_role
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// Role 纯派生：metadata 里的角色，缺省 "user"，不产生网络调用
func (u *User) Role() string {
	if u == nil {
		return "user"
	}
	if r, ok := u.UserMetadata["user_role"].(string); ok && r != "" {
		return r
	}
	return "user"
}

type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// Expired 提前 30s 判定过期，给刷新留余量
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.ExpiresAt == 0 {
		return false
	}
	return now.Unix() >= s.ExpiresAt-30
}

func (s *Session) Role() string {
	if s == nil {
		return "user"
	}
	return s.User.Role()
}

func (s *Session) Email() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.Email
}
