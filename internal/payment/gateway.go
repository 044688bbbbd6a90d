package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusbooks/storefront/internal/backend"
	"github.com/campusbooks/storefront/internal/logger"
	"github.com/campusbooks/storefront/internal/models"
	"github.com/campusbooks/storefront/internal/payment/flutterwave"
	"github.com/campusbooks/storefront/internal/payment/paystack"
)

// InitInput 发起支付输入（金额为主币种单位）
type InitInput struct {
	OrderID  string
	Email    string
	Amount   models.Money
	Metadata map[string]string
}

// Gateway 渠道适配器
type Gateway interface {
	Provider() Provider
	Mode() Mode
	Initialize(ctx context.Context, input InitInput) (*Attempt, error)
}

// PopupSurface 承载内嵌弹窗的界面
type PopupSurface interface {
	Open(ctx context.Context, req paystack.PopupRequest, attempt *Attempt) error
}

// Initializer 后端支付初始化
type Initializer interface {
	InitializePayment(ctx context.Context, orderID, paymentMethod string) (*backend.PaymentInit, error)
}

// PaystackGateway 内嵌弹窗渠道
type PaystackGateway struct {
	cfg     *paystack.Config
	surface PopupSurface
}

// NewPaystackGateway 创建 Paystack 适配器
func NewPaystackGateway(cfg *paystack.Config, surface PopupSurface) (*PaystackGateway, error) {
	if err := paystack.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if surface == nil {
		return nil, fmt.Errorf("%w: popup surface is required", ErrConfigInvalid)
	}
	return &PaystackGateway{cfg: cfg, surface: surface}, nil
}

// Provider 实现 Gateway
func (g *PaystackGateway) Provider() Provider { return ProviderPaystack }

// Mode 实现 Gateway
func (g *PaystackGateway) Mode() Mode { return ModeInline }

// Initialize 构造弹窗参数并打开弹窗；结果由 SDK 回调投递到 Attempt
func (g *PaystackGateway) Initialize(ctx context.Context, input InitInput) (*Attempt, error) {
	attempt := NewAttempt(ProviderPaystack, input.OrderID, input.Amount, input.Email)
	metadata := map[string]string{"order_id": input.OrderID}
	for k, v := range input.Metadata {
		metadata[k] = v
	}
	req, err := paystack.BuildPopupRequest(g.cfg, paystack.PopupInput{
		Email:       input.Email,
		AmountMinor: input.Amount.MinorUnits(),
		Reference:   attempt.Reference,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if err := g.surface.Open(ctx, *req, attempt); err != nil {
		return nil, err
	}
	logger.Infow("payment_popup_opened", "provider", ProviderPaystack, "order_id", input.OrderID, "reference", attempt.Reference)
	return attempt, nil
}

// FlutterwaveGateway 跳转渠道
type FlutterwaveGateway struct {
	cfg         *flutterwave.Config
	initializer Initializer
}

// NewFlutterwaveGateway 创建 Flutterwave 适配器
func NewFlutterwaveGateway(cfg *flutterwave.Config, initializer Initializer) (*FlutterwaveGateway, error) {
	if err := flutterwave.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if initializer == nil {
		return nil, fmt.Errorf("%w: initializer is required", ErrConfigInvalid)
	}
	return &FlutterwaveGateway{cfg: cfg, initializer: initializer}, nil
}

// Provider 实现 Gateway
func (g *FlutterwaveGateway) Provider() Provider { return ProviderFlutterwave }

// Mode 实现 Gateway
func (g *FlutterwaveGateway) Mode() Mode { return ModeRedirect }

// Initialize 由后端创建托管支付页；结果随跳转返回，通过 ResolveRedirect 投递
func (g *FlutterwaveGateway) Initialize(ctx context.Context, input InitInput) (*Attempt, error) {
	session, err := g.initializer.InitializePayment(ctx, input.OrderID, string(ProviderFlutterwave))
	if err != nil {
		return nil, err
	}
	authURL, err := flutterwave.ValidateAuthorizationURL(session.AuthorizationURL)
	if err != nil {
		return nil, err
	}
	attempt := NewAttempt(ProviderFlutterwave, input.OrderID, input.Amount, input.Email)
	if ref := strings.TrimSpace(session.Reference); ref != "" {
		attempt.Reference = ref
	}
	attempt.AuthorizationURL = authURL
	return attempt, nil
}

// FromRedirect 将跳转返回参数归一化为 Result
func FromRedirect(redirect *flutterwave.RedirectResult) Result {
	switch {
	case redirect == nil:
		return Failed("missing redirect result")
	case redirect.Successful():
		return Succeeded(redirect.Reference())
	case redirect.Cancelled():
		return Cancelled()
	default:
		return Failed("payment " + redirect.Status)
	}
}

// FromCallback 将弹窗回调归一化为 Result
func FromCallback(cb *paystack.Callback) Result {
	switch {
	case cb == nil:
		return Failed("missing callback")
	case cb.Closed:
		return Cancelled()
	case cb.Successful():
		return Succeeded(cb.Reference)
	default:
		reason := cb.Message
		if reason == "" {
			reason = "payment " + cb.Status
		}
		return Failed(reason)
	}
}
