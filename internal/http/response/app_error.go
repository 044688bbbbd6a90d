package response

import "github.com/gin-gonic/gin"

// AppError 接口错误：业务码、对外文案、附加数据与原始错误
type AppError struct {
	Code    int
	Message string
	Data    gin.H
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// WithData 附加返回数据（跳转路径、支付渠道等）
func (e *AppError) WithData(data gin.H) *AppError {
	e.Data = data
	return e
}

// Fail 按 AppError 输出错误响应
func Fail(c *gin.Context, appErr *AppError) {
	if appErr == nil {
		Error(c, CodeInternal, "internal error")
		return
	}
	if appErr.Data == nil {
		Error(c, appErr.Code, appErr.Message)
		return
	}
	ErrorWithData(c, appErr.Code, appErr.Message, appErr.Data)
}
