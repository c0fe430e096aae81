package carapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// TokenSource 在发起请求那一刻解析 bearer token；空串表示匿名请求，
// 鉴权由服务端强制，这里不拦
type TokenSource func(ctx context.Context) string

// Client 外部库存 API 的 HTTP 封装
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	log        *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, token TokenSource, log *zap.Logger) *Client {
	if token == nil {
		token = func(context.Context) string { return "" }
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		token:      token,
		log:        log,
	}
}

// BaseURL 给视图层拼相对图片路径用
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) GetAllCars(ctx context.Context) ([]Car, error) {
	var cars []Car
	if err := c.do(ctx, http.MethodGet, "/api/cars", nil, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

func (c *Client) GetCarByID(ctx context.Context, id int64) (*Car, error) {
	var car Car
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/cars/%d", id), nil, &car); err != nil {
		return nil, err
	}
	return &car, nil
}

func (c *Client) CreateCar(ctx context.Context, car *Car) (*Car, error) {
	if err := car.Validate(); err != nil {
		return nil, err
	}
	var out Car
	if err := c.do(ctx, http.MethodPost, "/api/cars", car, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCar 整体替换字段
func (c *Client) UpdateCar(ctx context.Context, id int64, car *Car) (*Car, error) {
	if err := car.Validate(); err != nil {
		return nil, err
	}
	var out Car
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/cars/%d", id), car, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCar(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/cars/%d", id), nil, nil)
}

// UploadImage 单文件 multipart 上传，返回服务端给的 URL
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.upload(ctx, "/api/upload/image", "file", []namedReader{{filename, r}}, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

type namedReader struct {
	Name   string
	Reader io.Reader
}

// UploadImages 多文件一次请求上传。响应结构服务端没定死，
// 先按 {"urls": [...]}，不行再按裸数组解。
func (c *Client) UploadImages(ctx context.Context, files map[string]io.Reader) ([]string, error) {
	nrs := make([]namedReader, 0, len(files))
	for name, r := range files {
		nrs = append(nrs, namedReader{name, r})
	}
	var raw json.RawMessage
	if err := c.upload(ctx, "/api/upload/images", "files", nrs, &raw); err != nil {
		return nil, err
	}
	var wrapped struct {
		URLs []string `json:"urls"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.URLs != nil {
		return wrapped.URLs, nil
	}
	var urls []string
	if err := json.Unmarshal(raw, &urls); err != nil {
		return nil, transportErr(fmt.Errorf("decode upload response: %w", err))
	}
	return urls, nil
}

func (c *Client) upload(ctx context.Context, path, field string, files []namedReader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(field, f.Name)
		if err != nil {
			return transportErr(err)
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return transportErr(err)
		}
	}
	if err := mw.Close(); err != nil {
		return transportErr(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return transportErr(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(ctx, req)
	return c.send(req, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return transportErr(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return transportErr(err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(ctx, req)
	return c.send(req, out)
}

func (c *Client) authorize(ctx context.Context, req *http.Request) {
	if tok := c.token(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("carapi request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err),
		)
		return transportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return transportErr(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// decodeError 服务端有 error/message 字段就透出给用户
func (c *Client) decodeError(resp *http.Response) error {
	var payload struct {
		ErrorMsg string `json:"error"`
		Message  string `json:"message"`
	}
	b, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(b, &payload)
	msg := payload.ErrorMsg
	if msg == "" {
		msg = payload.Message
	}
	return apiErr(resp.StatusCode, msg)
}
