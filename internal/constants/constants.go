package constants

// 订单状态常量（后端枚举）
const (
	OrderStatusPending        = "pending"
	OrderStatusProcessing     = "processing"
	OrderStatusPaid           = "paid"
	OrderStatusReadyForPickup = "ready_for_pickup"
	OrderStatusShipped        = "shipped"
	OrderStatusDelivered      = "delivered"
	OrderStatusCompleted      = "completed"
	OrderStatusCancelled      = "cancelled"
	OrderStatusFailed         = "failed"
)

// 订单终态（轮询可在到达后停止）
var TerminalOrderStatuses = map[string]struct{}{
	OrderStatusDelivered: {},
	OrderStatusCompleted: {},
	OrderStatusCancelled: {},
	OrderStatusFailed:    {},
}

// 配送方式常量
const (
	DeliveryOptionPickup   = "pickup"
	DeliveryOptionDelivery = "delivery"
)

// 支付渠道常量
const (
	PaymentProviderPaystack    = "paystack"
	PaymentProviderFlutterwave = "flutterwave"
)

// 支付校验状态常量
const (
	PaymentVerifySuccess = "success"
	PaymentVerifyFailed  = "failed"
)

// 本地持久化键常量
const (
	StorageKeyCartItems = "cart_items"
	StorageKeyAuthToken = "auth_token"
)

// 会话键常量
const (
	SessionKeyPendingOrder = "pending_order"
)

// 通知级别常量
const (
	NotifyLevelSuccess = "success"
	NotifyLevelError   = "error"
	NotifyLevelInfo    = "info"
)

// 视图路径常量
const (
	PathLogin   = "/login"
	PathCart    = "/cart"
	PathCatalog = "/books"
	PathOrders  = "/orders"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "bks"
)

// 币种常量
const (
	CurrencyDefault = "NGN"
)

// 默认运费（主币种单位，配送时收取）
const ShippingFeeDefault = 500
