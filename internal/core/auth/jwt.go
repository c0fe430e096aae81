package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 身份提供方签发的 access token 载荷
type Claims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// UserRole 从 user_metadata 取角色，缺省为 "user"
func (c *Claims) UserRole() string {
	if c.UserMetadata != nil {
		if r, ok := c.UserMetadata["user_role"].(string); ok && r != "" {
			return r
		}
	}
	return "user"
}

// Verifier 校验身份提供方的 HS256 token（本服务从不签发）
type Verifier struct {
	Secret []byte
}

func (v *Verifier) Parse(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg")
		}
		return v.Secret, nil
	}, jwt.WithLeeway(60*time.Second))

	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, errors.New("invalid token")
}
