package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/campusbooks/storefront/internal/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTimeout = 10 * time.Second

// TokenStore 鉴权令牌来源，401 时由客户端调用 Invalidate
type TokenStore interface {
	Token() string
	Invalidate()
}

// Options 客户端配置
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	HTTPClient     *http.Client
	Tokens         TokenStore
	OnUnauthorized func()
}

// Client 书店后端 REST 客户端
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenStore
	onUnauthorized func()
	tracer         trace.Tracer
}

// New 创建客户端
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:        strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		httpClient:     httpClient,
		tokens:         opts.Tokens,
		onUnauthorized: opts.OnUnauthorized,
		tracer:         otel.Tracer("storefront/backend"),
	}
}

// SetOnUnauthorized 设置 401 回调
func (c *Client) SetOnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

// do 发送请求并返回 2xx 响应体；非 2xx 返回 *APIError
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := c.tracer.Start(ctx, "backend."+strings.ToLower(method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("backend.path", path),
		),
	)
	defer span.End()

	body, err := c.roundTrip(ctx, method, path, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: encode request failed", ErrRequestFailed)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			logger.Warnw("backend_request_timeout", "method", method, "path", path)
			return nil, fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
		}
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
		}
		return nil, fmt.Errorf("%w: read response failed", ErrResponseInvalid)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
		logger.Debugw("backend_request_rejected", "method", method, "path", path, "status", resp.StatusCode)
		return nil, apiErr
	}
	return body, nil
}

func (c *Client) handleUnauthorized() {
	if c.tokens != nil {
		c.tokens.Invalidate()
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

func (c *Client) decode(body []byte, dest interface{}, keys ...string) error {
	if err := json.Unmarshal(unwrap(body, keys...), dest); err != nil {
		return fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
