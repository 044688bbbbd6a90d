package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/campusbooks/storefront/internal/backend"
	"github.com/campusbooks/storefront/internal/cache"
	"github.com/campusbooks/storefront/internal/cart"
	"github.com/campusbooks/storefront/internal/constants"
	"github.com/campusbooks/storefront/internal/logger"
	"github.com/campusbooks/storefront/internal/models"
	"github.com/campusbooks/storefront/internal/notify"
	"github.com/campusbooks/storefront/internal/payment"
	"github.com/campusbooks/storefront/internal/payment/flutterwave"
)

// State 结算流程状态
type State string

const (
	StateDetails      State = "details"
	StatePayment      State = "payment"
	StateConfirmation State = "confirmation"
)

// CartStore 结算依赖的购物车能力
type CartStore interface {
	Items() []models.CartLineItem
	Total() models.Money
	IsEmpty() bool
	ClearSilently(ctx context.Context) error
	RefreshStock(ctx context.Context, books []models.Book) ([]cart.StockAdjustment, error)
}

// Authenticator 登录态
type Authenticator interface {
	IsAuthenticated() bool
}

// OrderBackend 后端下单与目录查询
type OrderBackend interface {
	CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error)
	GetBook(ctx context.Context, id string) (*models.Book, error)
}

// Payments 支付渠道与校验
type Payments interface {
	Gateway(provider payment.Provider) (payment.Gateway, error)
	Verify(ctx context.Context, reference string, provider payment.Provider) (*backend.VerifyResult, error)
}

// Navigator 跳转到外部支付页
type Navigator interface {
	Navigate(ctx context.Context, target string) error
}

// NavigatorFunc 函数适配 Navigator
type NavigatorFunc func(ctx context.Context, target string) error

// Navigate 实现 Navigator
func (f NavigatorFunc) Navigate(ctx context.Context, target string) error {
	return f(ctx, target)
}

// Deps 结算流程依赖
type Deps struct {
	Cart         CartStore
	Auth         Authenticator
	Backend      OrderBackend
	Payments     Payments
	Session      cache.SessionStore
	Navigator    Navigator
	Notifier     notify.Notifier
	ShippingFee  models.Money
	PendingTTL   time.Duration
	RefreshStock bool
}

// Outcome 支付结果
type Outcome struct {
	Mode        payment.Mode  `json:"mode"`
	OrderID     string        `json:"order_id"`
	Reference   string        `json:"reference,omitempty"`
	RedirectURL string        `json:"redirect_url,omitempty"`
	Order       *models.Order `json:"order,omitempty"`
}

// Confirmation 确认页数据
type Confirmation struct {
	OrderID string       `json:"order_id"`
	Total   models.Money `json:"total"`
	Status  string       `json:"status"`
}

// ResumeResult 跳转支付返回后的校验结果
type ResumeResult struct {
	OrderID   string        `json:"order_id"`
	Reference string        `json:"reference"`
	Status    string        `json:"status"`
	Order     *models.Order `json:"order,omitempty"`
}

// Orchestrator 单次结算流程：Details → Payment → Confirmation
type Orchestrator struct {
	deps Deps

	mu      sync.Mutex
	state   State
	ready   bool
	paying  bool
	details Details
	order   *models.Order
	total   models.Money

	submitted models.CreateOrderRequest
}

// New 创建结算流程
func New(deps Deps) *Orchestrator {
	if deps.Notifier == nil {
		deps.Notifier = notify.LogNotifier{}
	}
	if deps.ShippingFee.IsZero() {
		deps.ShippingFee = models.NewMoneyFromInt(constants.ShippingFeeDefault)
	}
	if deps.PendingTTL <= 0 {
		deps.PendingTTL = 30 * time.Minute
	}
	return &Orchestrator{deps: deps, state: StateDetails}
}

// State 当前状态
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Details 已填写的表单
func (o *Orchestrator) Details() Details {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.details
}

// Order 本地订单副本
func (o *Orchestrator) Order() *models.Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.order == nil {
		return nil
	}
	cp := *o.order
	return &cp
}

// Begin 进入结算前的前置检查
func (o *Orchestrator) Begin(ctx context.Context, intended string) error {
	if o.deps.Auth == nil || !o.deps.Auth.IsAuthenticated() {
		if strings.TrimSpace(intended) == "" {
			intended = "/checkout"
		}
		return &RedirectError{Path: constants.PathLogin, ReturnTo: intended, Reason: "login required"}
	}
	if o.deps.Cart.IsEmpty() {
		return &RedirectError{Path: constants.PathCart, Reason: "cart is empty"}
	}
	if o.deps.RefreshStock {
		adjusted, err := o.refreshStock(ctx)
		if err != nil {
			return err
		}
		if len(adjusted) > 0 {
			return &RedirectError{Path: constants.PathCart, Reason: "cart quantities changed"}
		}
		if o.deps.Cart.IsEmpty() {
			return &RedirectError{Path: constants.PathCart, Reason: "cart is empty"}
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateConfirmation {
		return ErrInvalidTransition
	}
	o.state = StateDetails
	o.ready = true
	o.order = nil
	o.submitted = models.CreateOrderRequest{}
	return nil
}

func (o *Orchestrator) refreshStock(ctx context.Context) ([]cart.StockAdjustment, error) {
	items := o.deps.Cart.Items()
	books := make([]models.Book, 0, len(items))
	for _, item := range items {
		book, err := o.deps.Backend.GetBook(ctx, item.BookID)
		switch {
		case err == nil:
			books = append(books, *book)
		case errors.Is(err, backend.ErrNotFound):
			books = append(books, models.Book{ID: item.BookID, Title: item.Title, Price: item.Price})
		default:
			logger.Warnw("checkout_stock_refresh_failed", "book_id", item.BookID, "error", err)
		}
	}
	if len(books) == 0 {
		return nil, nil
	}
	return o.deps.Cart.RefreshStock(ctx, books)
}

// SubmitDetails 校验表单并创建订单
func (o *Orchestrator) SubmitDetails(ctx context.Context, details Details) (*models.Order, error) {
	details.Normalize()
	if err := details.Validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if !o.ready || o.state != StateDetails || o.paying {
		o.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	o.details = details
	o.mu.Unlock()

	items := o.deps.Cart.Items()
	if len(items) == 0 {
		return nil, &RedirectError{Path: constants.PathCart, Reason: "cart is empty"}
	}
	total := GrandTotal(o.deps.Cart.Total(), details.DeliveryOption, o.deps.ShippingFee)
	req := models.CreateOrderRequest{
		Items:          make([]models.CreateOrderItem, 0, len(items)),
		TotalAmount:    total,
		DeliveryOption: details.DeliveryOption,
		PaymentMethod:  details.PaymentMethod,
		Notes:          details.Notes,
		ContactName:    details.ContactName,
		ContactPhone:   details.ContactPhone,
		ContactEmail:   details.ContactEmail,
	}
	if details.DeliveryOption == constants.DeliveryOptionDelivery {
		req.DeliveryAddress = details.DeliveryAddress
	}
	for _, item := range items {
		req.Items = append(req.Items, models.CreateOrderItem{
			BookID:   item.BookID,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}

	o.mu.Lock()
	previous := o.order
	if previous != nil && sameOrderRequest(o.submitted, req) {
		o.state = StatePayment
		cp := *previous
		o.mu.Unlock()
		logger.Infow("checkout_order_reused", "order_id", cp.ID)
		return &cp, nil
	}
	o.mu.Unlock()

	order, err := o.deps.Backend.CreateOrder(ctx, req)
	if err != nil {
		logger.Warnw("checkout_create_order_failed", "error", err, "retryable", backend.IsRetryable(err))
		notify.Error(o.deps.Notifier, failureMessage(err, "Could not place your order"))
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.order = order
	o.total = total
	o.submitted = req
	o.state = StatePayment
	if previous != nil && previous.ID != order.ID {
		logger.Warnw("checkout_order_replaced", "previous_order_id", previous.ID, "order_id", order.ID)
		notify.Info(o.deps.Notifier, "Your order details changed, so a new order was created")
	}
	logger.Infow("checkout_order_created", "order_id", order.ID, "total", total.String(), "payment_method", details.PaymentMethod)
	cp := *order
	return &cp, nil
}

// sameOrderRequest 表单与购物车均未变化时复用已创建的订单
func sameOrderRequest(a, b models.CreateOrderRequest) bool {
	if a.TotalAmount.String() != b.TotalAmount.String() ||
		a.DeliveryOption != b.DeliveryOption ||
		a.DeliveryAddress != b.DeliveryAddress ||
		a.PaymentMethod != b.PaymentMethod ||
		a.Notes != b.Notes ||
		a.ContactName != b.ContactName ||
		a.ContactPhone != b.ContactPhone ||
		a.ContactEmail != b.ContactEmail ||
		len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if a.Items[i].BookID != b.Items[i].BookID ||
			a.Items[i].Quantity != b.Items[i].Quantity ||
			a.Items[i].Price.String() != b.Items[i].Price.String() {
			return false
		}
	}
	return true
}

// Back 从支付返回填写表单
func (o *Orchestrator) Back() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StatePayment || o.paying {
		return ErrInvalidTransition
	}
	o.state = StateDetails
	return nil
}

// Pay 按订单支付方式发起支付
func (o *Orchestrator) Pay(ctx context.Context) (*Outcome, error) {
	o.mu.Lock()
	if o.state != StatePayment || o.order == nil {
		o.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	if o.paying {
		o.mu.Unlock()
		return nil, ErrPaymentInProgress
	}
	o.paying = true
	order := *o.order
	details := o.details
	amount := o.total
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.paying = false
		o.mu.Unlock()
	}()

	if amount.IsZero() {
		amount = order.TotalAmount
	}
	provider := details.Provider()
	gateway, err := o.deps.Payments.Gateway(provider)
	if err != nil {
		return nil, err
	}
	input := payment.InitInput{
		OrderID:  order.ID,
		Email:    details.ContactEmail,
		Amount:   amount,
		Metadata: map[string]string{"delivery_option": details.DeliveryOption},
	}

	switch gateway.Mode() {
	case payment.ModeRedirect:
		return o.payRedirect(ctx, gateway, input)
	default:
		return o.payInline(ctx, gateway, input)
	}
}

func (o *Orchestrator) payRedirect(ctx context.Context, gateway payment.Gateway, input payment.InitInput) (*Outcome, error) {
	attempt, err := gateway.Initialize(ctx, input)
	if err != nil {
		logger.Warnw("checkout_payment_init_failed", "provider", gateway.Provider(), "order_id", input.OrderID, "error", err)
		notify.Error(o.deps.Notifier, failureMessage(err, "Could not start payment"))
		return nil, err
	}
	if o.deps.Session == nil {
		return nil, fmt.Errorf("%w: session store is required for redirect payment", payment.ErrConfigInvalid)
	}
	for _, key := range pendingKeys(attempt.Reference) {
		if err := o.deps.Session.Set(ctx, key, input.OrderID, o.deps.PendingTTL); err != nil {
			logger.Errorw("checkout_pending_order_save_failed", "order_id", input.OrderID, "error", err)
			return nil, err
		}
	}
	if o.deps.Navigator == nil {
		return nil, fmt.Errorf("%w: navigator is required for redirect payment", payment.ErrConfigInvalid)
	}
	if err := o.deps.Navigator.Navigate(ctx, attempt.AuthorizationURL); err != nil {
		logger.Warnw("checkout_navigate_failed", "order_id", input.OrderID, "error", err)
		return nil, err
	}
	if err := o.deps.Cart.ClearSilently(ctx); err != nil {
		logger.Warnw("checkout_cart_clear_failed", "order_id", input.OrderID, "error", err)
	}
	logger.Infow("checkout_redirected", "order_id", input.OrderID, "reference", attempt.Reference)
	return &Outcome{
		Mode:        payment.ModeRedirect,
		OrderID:     input.OrderID,
		Reference:   attempt.Reference,
		RedirectURL: attempt.AuthorizationURL,
	}, nil
}

func (o *Orchestrator) payInline(ctx context.Context, gateway payment.Gateway, input payment.InitInput) (*Outcome, error) {
	provider := gateway.Provider()
	attempt, err := gateway.Initialize(ctx, input)
	if err != nil {
		logger.Warnw("checkout_payment_init_failed", "provider", provider, "order_id", input.OrderID, "error", err)
		notify.Error(o.deps.Notifier, failureMessage(err, "Could not start payment"))
		return nil, err
	}
	result, err := attempt.Wait(ctx)
	if err != nil {
		// 超时或取消后作废本次尝试，释放挂起的弹窗
		attempt.Resolve(payment.Failed("payment window expired"))
		logger.Warnw("checkout_payment_window_expired", "order_id", input.OrderID, "reference", attempt.Reference, "error", err)
		return nil, err
	}
	if perr := result.Err(provider); perr != nil {
		if result.Cancelled {
			notify.Info(o.deps.Notifier, "Payment cancelled")
		} else {
			notify.Error(o.deps.Notifier, "Payment failed: "+result.Reason)
		}
		return nil, perr
	}

	reference := result.Reference
	if reference == "" {
		reference = attempt.Reference
	}
	verified, err := o.deps.Payments.Verify(ctx, reference, provider)
	if err != nil {
		notify.Error(o.deps.Notifier, failureMessage(err, "Could not verify payment"))
		return nil, err
	}
	if !verified.Succeeded() {
		notify.Error(o.deps.Notifier, fmt.Sprintf("Payment verification failed. Please contact support with reference %s", reference))
		return nil, fmt.Errorf("%w: reference %s", ErrVerificationFailed, reference)
	}

	if err := o.deps.Cart.ClearSilently(ctx); err != nil {
		logger.Warnw("checkout_cart_clear_failed", "order_id", input.OrderID, "error", err)
	}

	o.mu.Lock()
	if verified.Order != nil && verified.Order.ID != "" {
		o.order = verified.Order
	}
	o.state = StateConfirmation
	order := *o.order
	o.mu.Unlock()

	notify.Success(o.deps.Notifier, "Payment successful")
	logger.Infow("checkout_payment_confirmed", "order_id", order.ID, "reference", reference)
	return &Outcome{
		Mode:      payment.ModeInline,
		OrderID:   order.ID,
		Reference: reference,
		Order:     &order,
	}, nil
}

// Confirmation 确认页数据，仅在 Confirmation 状态可用
func (o *Orchestrator) Confirmation() (Confirmation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateConfirmation || o.order == nil {
		return Confirmation{}, ErrInvalidTransition
	}
	total := o.order.TotalAmount
	if total.IsZero() {
		total = o.total
	}
	return Confirmation{OrderID: o.order.ID, Total: total, Status: o.order.Status}, nil
}

// ResumeRedirect 跳转支付返回后校验参考号
func (o *Orchestrator) ResumeRedirect(ctx context.Context, provider payment.Provider, query url.Values) (*ResumeResult, error) {
	if provider != payment.ProviderFlutterwave {
		return nil, fmt.Errorf("%w: %s has no redirect return", payment.ErrProviderUnsupported, provider)
	}
	redirect, err := flutterwave.ParseRedirect(query)
	if err != nil {
		return nil, err
	}
	result := payment.FromRedirect(redirect)
	if perr := result.Err(provider); perr != nil {
		if result.Cancelled {
			notify.Info(o.deps.Notifier, "Payment cancelled")
		} else {
			notify.Error(o.deps.Notifier, "Payment failed: "+result.Reason)
		}
		return nil, perr
	}

	orderID := o.pendingOrderID(ctx, result.Reference)
	verified, err := o.deps.Payments.Verify(ctx, result.Reference, provider)
	if err != nil {
		notify.Error(o.deps.Notifier, failureMessage(err, "Could not verify payment"))
		return nil, err
	}
	o.dropPending(ctx, result.Reference)

	if verified.Order != nil && verified.Order.ID != "" {
		orderID = verified.Order.ID
	}
	if !verified.Succeeded() {
		notify.Error(o.deps.Notifier, fmt.Sprintf("Payment verification failed. Please contact support with reference %s", result.Reference))
		return nil, fmt.Errorf("%w: reference %s", ErrVerificationFailed, result.Reference)
	}
	if orderID == "" {
		return nil, ErrNoPendingOrder
	}
	notify.Success(o.deps.Notifier, "Payment successful")
	logger.Infow("checkout_redirect_verified", "order_id", orderID, "reference", result.Reference)
	return &ResumeResult{
		OrderID:   orderID,
		Reference: result.Reference,
		Status:    verified.Status,
		Order:     verified.Order,
	}, nil
}

func (o *Orchestrator) pendingOrderID(ctx context.Context, reference string) string {
	if o.deps.Session == nil {
		return ""
	}
	for _, key := range pendingKeys(reference) {
		value, ok, err := o.deps.Session.Get(ctx, key)
		if err != nil {
			logger.Warnw("checkout_pending_order_read_failed", "key", key, "error", err)
			continue
		}
		if ok && value != "" {
			return value
		}
	}
	return ""
}

func (o *Orchestrator) dropPending(ctx context.Context, reference string) {
	if o.deps.Session == nil {
		return
	}
	for _, key := range pendingKeys(reference) {
		if err := o.deps.Session.Del(ctx, key); err != nil {
			logger.Warnw("checkout_pending_order_delete_failed", "key", key, "error", err)
		}
	}
}

func pendingKeys(reference string) []string {
	keys := []string{cache.PendingOrderKey(reference)}
	if strings.TrimSpace(reference) != "" {
		keys = append(keys, cache.PendingOrderKey(""))
	}
	return keys
}

func failureMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, backend.ErrTimeout):
		return "Request timed out, please try again"
	case backend.IsRetryable(err):
		return fallback + ", please try again"
	default:
		return fallback
	}
}
