package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/campusbooks/storefront/internal/models"
)

// CreateOrder 创建订单
func (c *Client) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	body, err := c.do(ctx, http.MethodPost, "/orders", req)
	if err != nil {
		return nil, err
	}
	return c.decodeOrder(body)
}

// GetOrder 获取订单
func (c *Client) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrRequestFailed)
	}
	body, err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return c.decodeOrder(body)
}

// ListMyOrders 当前用户的订单
func (c *Client) ListMyOrders(ctx context.Context) ([]models.Order, error) {
	body, err := c.do(ctx, http.MethodGet, "/orders/my-orders", nil)
	if err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0)
	if err := c.decode(body, &orders, "data", "orders"); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus 管理端更新订单状态
func (c *Client) UpdateOrderStatus(ctx context.Context, id, status string) (*models.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrRequestFailed)
	}
	payload := map[string]string{"status": strings.TrimSpace(status)}
	body, err := c.do(ctx, http.MethodPut, "/admin/orders/"+url.PathEscape(id)+"/status", payload)
	if err != nil {
		return nil, err
	}
	return c.decodeOrder(body)
}

func (c *Client) decodeOrder(body []byte) (*models.Order, error) {
	var order models.Order
	if err := c.decode(body, &order, "data", "order"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(order.ID) == "" {
		return nil, fmt.Errorf("%w: order id missing", ErrResponseInvalid)
	}
	return &order, nil
}
