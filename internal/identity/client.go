package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client 身份提供方 REST 客户端（GoTrue 风格接口）。
// 注册、登录、登出、token 刷新全部委托给对端，本服务不保存任何凭据。
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(baseURL, anonKey string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// SignUp 注册，role 作为 user_metadata 写入账号
func (c *Client) SignUp(ctx context.Context, email, password, role string) (*Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]any{"user_role": role},
	}
	// 未开启自动确认时，signup 返回裸 user 对象而不是会话
	var out struct {
		Session
		ID           string         `json:"id"`
		Email        string         `json:"email"`
		UserMetadata map[string]any `json:"user_metadata"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", body, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" && out.ID != "" {
		return &Session{User: &User{ID: out.ID, Email: out.Email, UserMetadata: out.UserMetadata}}, nil
	}
	return &out.Session, nil
}

// SignIn 密码登录。坏凭据等预期失败返回 *AuthError，不算传输错误。
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]any{"email": email, "password": password}
	var s Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Refresh 用 refresh token 换新会话
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]any{"refresh_token": refreshToken}
	var s Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SignOut 注销对端会话（revoke refresh token）
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
}

// GetUser 用 access token 拉取当前用户
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", ErrTransport, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("identity request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrTransport, err)
	}
	return nil
}

// decodeError 对端的错误载荷字段名不统一，按优先级取第一个非空
func (c *Client) decodeError(resp *http.Response) error {
	var payload struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		ErrorCode        string `json:"error"`
	}
	b, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(b, &payload)

	msg := payload.Msg
	if msg == "" {
		msg = payload.Message
	}
	if msg == "" {
		msg = payload.ErrorDescription
	}
	if msg == "" {
		msg = payload.ErrorCode
	}
	if resp.StatusCode >= 500 {
		c.log.Warn("identity upstream error", zap.Int("status", resp.StatusCode), zap.String("body", string(b)))
		return fmt.Errorf("%w: upstream status %d", ErrTransport, resp.StatusCode)
	}
	return &AuthError{Status: resp.StatusCode, Message: msg}
}
