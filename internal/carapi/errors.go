package carapi

import (
	"errors"
	"fmt"
)

// Kind 封闭的错误类别：校验 / 认证 / API / 传输
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindAPI        Kind = "api"
	KindTransport  Kind = "transport"
)

// Error 出错时带上服务端消息（如果有）
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("carapi: %s error", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func validationErr(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func apiErr(status int, msg string) error {
	k := KindAPI
	if status == 401 || status == 403 {
		k = KindAuth
	}
	return &Error{Kind: k, Status: status, Message: msg}
}

func transportErr(err error) error {
	return &Error{Kind: KindTransport, Err: err}
}

// KindOf 归类任意错误；非本包错误一律按传输错误处理
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}

// MessageOf 服务端给了消息就透出，否则空串（调用方用通用文案兜底）
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
