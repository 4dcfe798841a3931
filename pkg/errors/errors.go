package errors

import (
	stderrors "errors"
	"fmt"
)

// ========== 错误码常量定义 ==========

// CodeSuccess 成功码
const (
	CodeSuccess = 200
	CodeCreated = 201
)

// HTTP层错误码 (400-599)
const (
	CodeInvalidParam = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeServerError  = 500
)

// Kind 错误类别，决定HTTP状态码与响应中的 reason
type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindUnauthenticated    Kind = "unauthenticated"
	KindInvalidToken       Kind = "invalid_token"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindBadRequest         Kind = "bad_request"
	KindQuotaExceeded      Kind = "quota_exceeded"
	KindConflict           Kind = "conflict"
	KindInvariantViolation Kind = "invariant_violation"
	KindInternal           Kind = "internal"
)

// 各类别的哨兵错误，任意同类别的 *AppError 都能用 errors.Is 匹配
var (
	ErrInvalidCredentials = &AppError{Kind: KindInvalidCredentials, Message: "Invalid credentials"}
	ErrUnauthenticated    = &AppError{Kind: KindUnauthenticated, Message: "No token"}
	ErrInvalidToken       = &AppError{Kind: KindInvalidToken, Message: "Invalid token"}
	ErrForbidden          = &AppError{Kind: KindForbidden, Message: "Forbidden"}
	ErrNotFound           = &AppError{Kind: KindNotFound, Message: "Not found"}
	ErrBadRequest         = &AppError{Kind: KindBadRequest, Message: "Bad request"}
	ErrQuotaExceeded      = &AppError{Kind: KindQuotaExceeded, Message: "Free plan limit reached. Upgrade to Pro."}
	ErrConflict           = &AppError{Kind: KindConflict, Message: "Already exists"}
	ErrInvariantViolation = &AppError{Kind: KindInvariantViolation, Message: "Operation would break a tenant invariant"}
	ErrInternal           = &AppError{Kind: KindInternal, Message: "Server error"}
)

// AppError 业务错误
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error 返回面向用户的消息，内部原因附在后面
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按类别比较
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New 创建指定类别的错误
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Wrap 附带内部原因，原因只写日志，不返回给调用方
func Wrap(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func BadRequest(message string) *AppError { return New(KindBadRequest, message) }
func Forbidden(message string) *AppError  { return New(KindForbidden, message) }
func NotFound(message string) *AppError   { return New(KindNotFound, message) }
func Conflict(message string) *AppError   { return New(KindConflict, message) }
func Invariant(message string) *AppError  { return New(KindInvariantViolation, message) }
func Internal(message string, err error) *AppError {
	return Wrap(KindInternal, message, err)
}

// KindOf 取错误类别，非 AppError 视为内部错误
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus 错误类别对应的HTTP状态码
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidCredentials, KindUnauthenticated, KindInvalidToken:
		return CodeUnauthorized
	case KindForbidden, KindQuotaExceeded:
		return CodeForbidden
	case KindNotFound:
		return CodeNotFound
	case KindBadRequest, KindConflict, KindInvariantViolation:
		return CodeInvalidParam
	default:
		return CodeServerError
	}
}
