package response

import (
	stderrors "errors"
	"net/http"

	"notely/pkg/errors"
	"notely/pkg/logger"
	"notely/pkg/pagination"

	"github.com/gin-gonic/gin"
)

// Response 统一返回格式
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Reason  errors.Kind `json:"reason,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ========== 基础返回方法 ==========

// Success 成功返回
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    errors.CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 成功返回（自定义消息）
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    errors.CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// Created 创建成功返回
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    errors.CodeCreated,
		Message: message,
		Data:    data,
	})
}

// SuccessWithPage 分页成功返回
func SuccessWithPage(c *gin.Context, data interface{}, pageInfo *pagination.PageInfo) {
	c.JSON(http.StatusOK, gin.H{
		"code":      errors.CodeSuccess,
		"message":   "success",
		"data":      data,
		"page_info": pageInfo,
	})
}

// Error 通用错误返回，HTTP状态码与 code 一致
func Error(c *gin.Context, code int, reason errors.Kind, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Reason:  reason,
	})
}

// FromError 按错误类型返回；内部错误只记录日志，不把原因返回给调用方
func FromError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.Internal("Server error", err)
	}

	if appErr.Kind == errors.KindInternal {
		logger.FromContext(c.Request.Context()).
			WithError(err).
			WithField("path", c.FullPath()).
			Error("request failed")
		Error(c, errors.CodeServerError, errors.KindInternal, "Server error")
		return
	}

	Error(c, errors.HTTPStatus(appErr.Kind), appErr.Kind, appErr.Message)
}

// ========== HTTP错误快捷方法 ==========

func ServerError(c *gin.Context, message string) {
	Error(c, errors.CodeServerError, errors.KindInternal, message)
}
