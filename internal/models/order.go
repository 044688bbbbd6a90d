package models

import (
	"time"
)

// Order 订单记录（后端所有，前台只做整体替换，不在本地改状态）
type Order struct {
	ID              string      `json:"id"`
	Items           []OrderItem `json:"items"`
	TotalAmount     Money       `json:"total_amount"`
	DeliveryOption  string      `json:"delivery_option"`
	DeliveryAddress string      `json:"delivery_address,omitempty"`
	PaymentMethod   string      `json:"payment_method"`
	PaymentStatus   string      `json:"payment_status,omitempty"`
	PaymentRef      string      `json:"payment_reference,omitempty"`
	Status          string      `json:"status"`
	Notes           string      `json:"notes,omitempty"`
	ContactName     string      `json:"contact_name,omitempty"`
	ContactPhone    string      `json:"contact_phone,omitempty"`
	ContactEmail    string      `json:"contact_email,omitempty"`
	CreatedAt       *time.Time  `json:"created_at,omitempty"`
	UpdatedAt       *time.Time  `json:"updated_at,omitempty"`
}

// OrderItem 订单项（单价为下单时快照，与之后的目录价格无关）
type OrderItem struct {
	BookID    string `json:"book_id"`
	Title     string `json:"title,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice Money  `json:"price"`
}

// CreateOrderItem 创建订单时提交的订单项
type CreateOrderItem struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
	Price    Money  `json:"price"`
}

// CreateOrderRequest 创建订单请求体
type CreateOrderRequest struct {
	Items           []CreateOrderItem `json:"items"`
	TotalAmount     Money             `json:"totalAmount"`
	DeliveryOption  string            `json:"deliveryOption"`
	DeliveryAddress string            `json:"deliveryAddress,omitempty"`
	PaymentMethod   string            `json:"paymentMethod"`
	Notes           string            `json:"notes"`
	ContactName     string            `json:"contactName,omitempty"`
	ContactPhone    string            `json:"contactPhone,omitempty"`
	ContactEmail    string            `json:"contactEmail,omitempty"`
}
