package shared

import (
	"errors"

	"github.com/campusbooks/storefront/internal/backend"
	"github.com/campusbooks/storefront/internal/cart"
	"github.com/campusbooks/storefront/internal/checkout"
	"github.com/campusbooks/storefront/internal/http/response"
	"github.com/campusbooks/storefront/internal/logger"
	"github.com/campusbooks/storefront/internal/payment"
	"github.com/campusbooks/storefront/internal/payment/flutterwave"
	"github.com/campusbooks/storefront/internal/payment/paystack"
	"github.com/campusbooks/storefront/internal/poller"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	respondAppError(c, response.WrapError(code, msg, err))
}

func respondAppError(c *gin.Context, appErr *response.AppError) {
	if appErr.Err != nil && appErr.Code >= response.CodeInternal {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", appErr.Err,
		)
	}
	response.Fail(c, appErr)
}

// mappedError 业务错误到接口错误码的映射
type mappedError struct {
	target error
	code   int
	msg    string
}

var domainErrorRules = []mappedError{
	{target: cart.ErrStockExceeded, code: response.CodeBadRequest, msg: "requested quantity exceeds stock"},
	{target: cart.ErrItemNotFound, code: response.CodeNotFound, msg: "cart item not found"},
	{target: cart.ErrInvalidBook, code: response.CodeBadRequest, msg: "book is invalid"},
	{target: checkout.ErrInvalidTransition, code: response.CodeConflict, msg: "checkout step not allowed"},
	{target: checkout.ErrPaymentInProgress, code: response.CodeConflict, msg: "payment already in progress"},
	{target: checkout.ErrVerificationFailed, code: response.CodePaymentFailed, msg: "payment could not be verified, please contact support"},
	{target: checkout.ErrNoPendingOrder, code: response.CodeNotFound, msg: "no pending order for this payment"},
	{target: payment.ErrProviderUnsupported, code: response.CodeBadRequest, msg: "payment method unsupported"},
	{target: payment.ErrAttemptUnknown, code: response.CodeNotFound, msg: "payment attempt not found"},
	{target: payment.ErrAttemptResolved, code: response.CodeConflict, msg: "payment attempt already resolved"},
	{target: paystack.ErrCallbackInvalid, code: response.CodeBadRequest, msg: "payment callback is invalid"},
	{target: flutterwave.ErrRedirectInvalid, code: response.CodeBadRequest, msg: "payment redirect is invalid"},
	{target: poller.ErrNotAuthenticated, code: response.CodeUnauthorized, msg: "login required"},
	{target: poller.ErrOrderIDRequired, code: response.CodeBadRequest, msg: "order id is required"},
	{target: backend.ErrUnauthorized, code: response.CodeUnauthorized, msg: "login required"},
	{target: backend.ErrNotFound, code: response.CodeNotFound, msg: "not found"},
	{target: backend.ErrTimeout, code: response.CodeGatewayTimeout, msg: "request timed out, please try again"},
}

// RespondLookupError 资源查询失败时输出响应，未找到时附带返回路径
func RespondLookupError(c *gin.Context, err error, back string) {
	if errors.Is(err, backend.ErrNotFound) {
		respondAppError(c, response.WrapError(response.CodeNotFound, "not found", err).WithData(gin.H{"back": back}))
		return
	}
	RespondDomainError(c, err)
}

// RespondDomainError 按业务错误类型输出响应
func RespondDomainError(c *gin.Context, err error) {
	respondAppError(c, MapDomainError(err))
}

// MapDomainError 业务错误转换为接口错误
func MapDomainError(err error) *response.AppError {
	var redirect *checkout.RedirectError
	if errors.As(err, &redirect) {
		return response.WrapError(response.CodeRedirectRequired, redirect.Error(), err).WithData(gin.H{
			"redirect":  redirect.Path,
			"return_to": redirect.ReturnTo,
			"reason":    redirect.Reason,
		})
	}
	var providerErr *payment.ProviderError
	if errors.As(err, &providerErr) {
		return response.WrapError(response.CodePaymentFailed, providerErr.Error(), err).WithData(gin.H{
			"provider":  providerErr.Provider,
			"cancelled": providerErr.Cancelled,
		})
	}
	if errors.Is(err, checkout.ErrDetailsInvalid) {
		return response.WrapError(response.CodeBadRequest, err.Error(), err)
	}
	for _, rule := range domainErrorRules {
		if errors.Is(err, rule.target) {
			return response.WrapError(rule.code, rule.msg, err)
		}
	}
	if backend.IsRetryable(err) {
		return response.WrapError(response.CodeBadGateway, "backend unavailable, please try again", err)
	}
	return response.WrapError(response.CodeInternal, "internal error", err)
}
