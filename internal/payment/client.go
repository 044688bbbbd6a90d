package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusbooks/storefront/internal/backend"
	"github.com/campusbooks/storefront/internal/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Verifier 后端支付校验
type Verifier interface {
	VerifyPayment(ctx context.Context, reference, provider string) (*backend.VerifyResult, error)
}

// Client 渠道选择与后端校验
type Client struct {
	gateways      map[Provider]Gateway
	verifier      Verifier
	verifications metric.Int64Counter
}

// NewClient 创建支付客户端
func NewClient(verifier Verifier, gateways ...Gateway) *Client {
	c := &Client{gateways: make(map[Provider]Gateway, len(gateways)), verifier: verifier}
	counter, err := otel.Meter("storefront/payment").Int64Counter("payment.verifications",
		metric.WithDescription("backend payment verifications by provider and outcome"))
	if err != nil {
		logger.Warnw("payment_metric_init_failed", "error", err)
	}
	c.verifications = counter
	for _, g := range gateways {
		if g != nil {
			c.gateways[g.Provider()] = g
		}
	}
	return c
}

// Gateway 按渠道选择适配器
func (c *Client) Gateway(provider Provider) (Gateway, error) {
	g, ok := c.gateways[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnsupported, provider)
	}
	return g, nil
}

// Providers 已启用的渠道
func (c *Client) Providers() []Provider {
	out := make([]Provider, 0, len(c.gateways))
	for _, p := range []Provider{ProviderPaystack, ProviderFlutterwave} {
		if _, ok := c.gateways[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Verify 后端校验支付，渠道客户端的成功信号不可作为依据
func (c *Client) Verify(ctx context.Context, reference string, provider Provider) (*backend.VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrConfigInvalid)
	}
	result, err := c.verifier.VerifyPayment(ctx, reference, string(provider))
	if err != nil {
		c.count(ctx, provider, "error")
		logger.Warnw("payment_verify_failed", "provider", provider, "reference", reference, "error", err)
		return nil, err
	}
	c.count(ctx, provider, result.Status)
	logger.Infow("payment_verified", "provider", provider, "reference", reference, "status", result.Status)
	return result, nil
}

func (c *Client) count(ctx context.Context, provider Provider, outcome string) {
	if c.verifications == nil {
		return
	}
	c.verifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", string(provider)),
		attribute.String("outcome", outcome),
	))
}
