package flutterwave

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrConfigInvalid   = errors.New("flutterwave config invalid")
	ErrRedirectInvalid = errors.New("flutterwave redirect invalid")
)

const defaultCurrency = "NGN"

// 跳转返回的状态值
const (
	StatusSuccessful = "successful"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusFailed     = "failed"
)

// Config Flutterwave 跳转配置。
type Config struct {
	PublicKey   string `json:"public_key"`
	RedirectURL string `json:"redirect_url"`
	Currency    string `json:"currency"`
}

// RedirectResult 跳转返回参数。
type RedirectResult struct {
	Status        string
	TxRef         string
	TransactionID string
}

// ParseConfig 解析配置。
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty config", ErrConfigInvalid)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal config failed", ErrConfigInvalid)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config failed", ErrConfigInvalid)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Normalize 规整字段并补默认值。
func (c *Config) Normalize() {
	c.PublicKey = strings.TrimSpace(c.PublicKey)
	c.RedirectURL = strings.TrimSpace(c.RedirectURL)
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	if c.Currency == "" {
		c.Currency = defaultCurrency
	}
}

// ValidateConfig 校验配置。
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if cfg.RedirectURL == "" {
		return fmt.Errorf("%w: redirect_url is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(cfg.RedirectURL); err != nil {
		return fmt.Errorf("%w: redirect_url is invalid", ErrConfigInvalid)
	}
	return nil
}

// ValidateAuthorizationURL 校验后端返回的托管支付页地址。
func ValidateAuthorizationURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("%w: authorization url is invalid", ErrRedirectInvalid)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return "", fmt.Errorf("%w: authorization url scheme %q", ErrRedirectInvalid, parsed.Scheme)
	}
	return parsed.String(), nil
}

// ParseRedirect 解析托管支付页跳转回来的查询参数。
func ParseRedirect(query url.Values) (*RedirectResult, error) {
	result := &RedirectResult{
		Status:        strings.ToLower(strings.TrimSpace(query.Get("status"))),
		TxRef:         strings.TrimSpace(firstNonEmpty(query.Get("tx_ref"), query.Get("txRef"))),
		TransactionID: strings.TrimSpace(firstNonEmpty(query.Get("transaction_id"), query.Get("transactionId"))),
	}
	switch result.Status {
	case StatusSuccessful, StatusCompleted, StatusCancelled, StatusFailed:
	case "":
		return nil, fmt.Errorf("%w: status is required", ErrRedirectInvalid)
	default:
		return nil, fmt.Errorf("%w: unsupported status %q", ErrRedirectInvalid, result.Status)
	}
	if result.Successful() && result.TxRef == "" && result.TransactionID == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrRedirectInvalid)
	}
	return result, nil
}

// Successful 托管页报告成功（仍需后端校验）。
func (r *RedirectResult) Successful() bool {
	return r != nil && (r.Status == StatusSuccessful || r.Status == StatusCompleted)
}

// Cancelled 用户取消。
func (r *RedirectResult) Cancelled() bool {
	return r != nil && r.Status == StatusCancelled
}

// Reference 用于后端校验的参考号，优先 tx_ref。
func (r *RedirectResult) Reference() string {
	if r == nil {
		return ""
	}
	return firstNonEmpty(r.TxRef, r.TransactionID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
