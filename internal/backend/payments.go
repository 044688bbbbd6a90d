package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/campusbooks/storefront/internal/constants"
	"github.com/campusbooks/storefront/internal/models"
)

// PaymentInit 支付初始化结果
type PaymentInit struct {
	AuthorizationURL string
	Reference        string
	AccessCode       string
}

// VerifyResult 支付校验结果（唯一可推进订单/购物车状态的依据）
type VerifyResult struct {
	Status  string
	Message string
	Order   *models.Order
}

// Succeeded 校验是否成功
func (r *VerifyResult) Succeeded() bool {
	return r != nil && r.Status == constants.PaymentVerifySuccess
}

type initializeRequest struct {
	OrderID       string `json:"orderId"`
	PaymentMethod string `json:"paymentMethod"`
}

type verifyRequest struct {
	Reference string `json:"reference"`
}

// InitializePayment 由后端创建支付会话
func (c *Client) InitializePayment(ctx context.Context, orderID, paymentMethod string) (*PaymentInit, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrRequestFailed)
	}
	body, err := c.do(ctx, http.MethodPost, "/payments/initialize", initializeRequest{
		OrderID:       orderID,
		PaymentMethod: strings.TrimSpace(paymentMethod),
	})
	if err != nil {
		return nil, err
	}
	raw, ok := decodeRawMap(unwrap(body, "data"))
	if !ok {
		return nil, fmt.Errorf("%w: decode initialize response failed", ErrResponseInvalid)
	}
	result := &PaymentInit{
		AuthorizationURL: readString(raw, "authorizationUrl", "authorization_url", "link"),
		Reference:        readString(raw, "reference", "tx_ref", "txRef"),
		AccessCode:       readString(raw, "accessCode", "access_code"),
	}
	if result.AuthorizationURL == "" && result.AccessCode == "" {
		return nil, fmt.Errorf("%w: missing authorization url", ErrResponseInvalid)
	}
	return result, nil
}

// VerifyPayment 校验支付。provider 为空时使用通用 GET /payments/verify/:reference
func (c *Client) VerifyPayment(ctx context.Context, reference, provider string) (*VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrRequestFailed)
	}
	provider = strings.ToLower(strings.TrimSpace(provider))

	var (
		body []byte
		err  error
	)
	if provider == "" {
		body, err = c.do(ctx, http.MethodGet, "/payments/verify/"+url.PathEscape(reference), nil)
	} else {
		body, err = c.do(ctx, http.MethodPost, "/payments/verify-"+url.PathEscape(provider), verifyRequest{Reference: reference})
	}
	if err != nil {
		return nil, err
	}
	return parseVerify(body)
}

func parseVerify(body []byte) (*VerifyResult, error) {
	raw, ok := decodeRawMap(body)
	if !ok {
		return nil, fmt.Errorf("%w: decode verify response failed", ErrResponseInvalid)
	}
	status := readString(raw, "status")
	data := readMap(raw, "data")
	if data != nil && (status == "" || status == "true" || status == "false") {
		if nested := readString(data, "status"); nested != "" {
			status = nested
		}
	}

	result := &VerifyResult{
		Status:  normalizeVerifyStatus(status),
		Message: readString(raw, "message"),
	}
	if orderRaw, ok := findOrder(raw, data); ok {
		var order models.Order
		if err := json.Unmarshal(orderRaw, &order); err == nil && order.ID != "" {
			result.Order = &order
		}
	}
	return result, nil
}

func findOrder(raw, data map[string]interface{}) ([]byte, bool) {
	for _, src := range []map[string]interface{}{raw, data} {
		if src == nil {
			continue
		}
		if order, ok := src["order"].(map[string]interface{}); ok {
			encoded, err := json.Marshal(order)
			if err == nil {
				return encoded, true
			}
		}
	}
	return nil, false
}

func normalizeVerifyStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "successful", "completed", "paid":
		return constants.PaymentVerifySuccess
	default:
		return constants.PaymentVerifyFailed
	}
}
