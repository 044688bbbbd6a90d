package payment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/campusbooks/storefront/internal/constants"
)

var (
	ErrProviderUnsupported = errors.New("payment provider unsupported")
	ErrConfigInvalid       = errors.New("payment config invalid")
	ErrAttemptResolved     = errors.New("payment attempt already resolved")
	ErrAttemptUnknown      = errors.New("payment attempt not found")
)

// Provider 支付渠道
type Provider string

const (
	ProviderPaystack    Provider = constants.PaymentProviderPaystack
	ProviderFlutterwave Provider = constants.PaymentProviderFlutterwave
)

// ParseProvider 解析渠道名
func ParseProvider(raw string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(raw))) {
	case ProviderPaystack:
		return ProviderPaystack, nil
	case ProviderFlutterwave:
		return ProviderFlutterwave, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrProviderUnsupported, raw)
	}
}

// Mode 支付界面形态
type Mode string

const (
	// ModeInline 页内弹窗，回调同步返回参考号
	ModeInline Mode = "inline"
	// ModeRedirect 跳转托管页，结果随跳转返回
	ModeRedirect Mode = "redirect"
)

// Result 渠道报告的客户端结果（非权威，必须再经后端校验）
type Result struct {
	Success   bool   `json:"success"`
	Reference string `json:"reference,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// Succeeded 成功结果
func Succeeded(reference string) Result {
	return Result{Success: true, Reference: strings.TrimSpace(reference)}
}

// Failed 失败结果
func Failed(reason string) Result {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "payment failed"
	}
	return Result{Reason: reason}
}

// Cancelled 用户取消
func Cancelled() Result {
	return Result{Reason: "payment cancelled", Cancelled: true}
}

// Err 失败或取消时返回 *ProviderError
func (r Result) Err(provider Provider) error {
	if r.Success {
		return nil
	}
	return &ProviderError{Provider: provider, Reason: r.Reason, Cancelled: r.Cancelled}
}

// ProviderError 渠道侧失败或取消，区别于后端校验失败
type ProviderError struct {
	Provider  Provider
	Reason    string
	Cancelled bool
}

func (e *ProviderError) Error() string {
	if e.Cancelled {
		return fmt.Sprintf("%s payment cancelled", e.Provider)
	}
	return fmt.Sprintf("%s payment failed: %s", e.Provider, e.Reason)
}
