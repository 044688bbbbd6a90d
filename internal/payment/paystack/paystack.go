package paystack

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrConfigInvalid   = errors.New("paystack config invalid")
	ErrCallbackInvalid = errors.New("paystack callback invalid")
)

const defaultCurrency = "NGN"

// Config Paystack 内嵌弹窗配置。
type Config struct {
	PublicKey string   `json:"public_key"`
	Currency  string   `json:"currency"`
	Channels  []string `json:"channels"`
}

// PopupInput 弹窗请求输入，金额已是最小货币单位（kobo）。
type PopupInput struct {
	Email       string
	AmountMinor int64
	Reference   string
	Metadata    map[string]string
}

// PopupRequest 交给前端 PaystackPop.setup 的参数。
type PopupRequest struct {
	Key       string            `json:"key"`
	Email     string            `json:"email"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Reference string            `json:"ref"`
	Channels  []string          `json:"channels,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Callback 弹窗回调归一化结果。
type Callback struct {
	Reference   string
	Status      string
	Message     string
	Transaction string
	Closed      bool
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
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	if c.Currency == "" {
		c.Currency = defaultCurrency
	}
	channels := make([]string, 0, len(c.Channels))
	for _, ch := range c.Channels {
		if ch = strings.ToLower(strings.TrimSpace(ch)); ch != "" {
			channels = append(channels, ch)
		}
	}
	c.Channels = channels
}

// ValidateConfig 校验配置。
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if cfg.PublicKey == "" {
		return fmt.Errorf("%w: public_key is required", ErrConfigInvalid)
	}
	if !strings.HasPrefix(cfg.PublicKey, "pk_") {
		return fmt.Errorf("%w: public_key must be a pk_ key", ErrConfigInvalid)
	}
	return nil
}

// BuildPopupRequest 构造弹窗参数。
func BuildPopupRequest(cfg *Config, input PopupInput) (*PopupRequest, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrConfigInvalid)
	}
	if input.AmountMinor <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrConfigInvalid)
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrConfigInvalid)
	}
	return &PopupRequest{
		Key:       cfg.PublicKey,
		Email:     email,
		Amount:    input.AmountMinor,
		Currency:  cfg.Currency,
		Reference: reference,
		Channels:  cfg.Channels,
		Metadata:  input.Metadata,
	}, nil
}

// ParseCallback 归一化 SDK 回调（callback 或 onClose）。
func ParseCallback(raw map[string]interface{}) (*Callback, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrCallbackInvalid)
	}
	cb := &Callback{
		Reference:   readString(raw, "reference", "trxref", "ref"),
		Status:      strings.ToLower(readString(raw, "status")),
		Message:     readString(raw, "message"),
		Transaction: readString(raw, "transaction", "trans"),
	}
	event := strings.ToLower(readString(raw, "event"))
	if event == "close" || event == "closed" || cb.Status == "cancelled" || cb.Status == "abandoned" {
		cb.Closed = true
		return cb, nil
	}
	if cb.Status == "" {
		return nil, fmt.Errorf("%w: status is required", ErrCallbackInvalid)
	}
	if cb.Successful() && cb.Reference == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrCallbackInvalid)
	}
	return cb, nil
}

// Successful 客户端是否报告成功（仍需后端校验）。
func (c *Callback) Successful() bool {
	return c != nil && !c.Closed && c.Status == "success"
}

func readString(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		switch typed := value.(type) {
		case string:
			if v := strings.TrimSpace(typed); v != "" {
				return v
			}
		case float64:
			return strconv.FormatInt(int64(typed), 10)
		case json.Number:
			return typed.String()
		}
	}
	return ""
}
