package public

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/campusbooks/storefront/internal/checkout"
	"github.com/campusbooks/storefront/internal/http/handlers/shared"
	"github.com/campusbooks/storefront/internal/http/response"
	"github.com/campusbooks/storefront/internal/logger"
	"github.com/campusbooks/storefront/internal/models"
	"github.com/campusbooks/storefront/internal/payment"
	"github.com/campusbooks/storefront/internal/payment/paystack"

	"github.com/gin-gonic/gin"
)

// popupOpenTimeout 等待内嵌弹窗参数就绪的时间
const popupOpenTimeout = 15 * time.Second

var errNoCheckout = errors.New("no checkout in progress")

// payFlight 一次进行中的内嵌支付
type payFlight struct {
	orderID string
	done    chan struct{}
	outcome *checkout.Outcome
	err     error
}

func (f *payFlight) finished() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// checkoutFlow 当前结算流程与进行中的支付
type checkoutFlow struct {
	mu     sync.Mutex
	orch   *checkout.Orchestrator
	flight *payFlight
}

func newCheckoutFlow() *checkoutFlow {
	return &checkoutFlow{}
}

func (f *checkoutFlow) current() (*checkout.Orchestrator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orch == nil {
		return nil, errNoCheckout
	}
	return f.orch, nil
}

func (f *checkoutFlow) replace(orch *checkout.Orchestrator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.flight != nil && !f.flight.finished() {
		return checkout.ErrPaymentInProgress
	}
	f.orch = orch
	f.flight = nil
	return nil
}

// launch 在后台执行内嵌支付，结果由弹窗回调接口取回
func (f *checkoutFlow) launch(orch *checkout.Orchestrator, orderID string, window time.Duration) (*payFlight, error) {
	f.mu.Lock()
	if f.flight != nil && !f.flight.finished() {
		f.mu.Unlock()
		return nil, checkout.ErrPaymentInProgress
	}
	flight := &payFlight{orderID: orderID, done: make(chan struct{})}
	f.flight = flight
	f.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), window)
		defer cancel()
		flight.outcome, flight.err = orch.Pay(ctx)
		close(flight.done)
		if flight.err != nil {
			logger.Infow("checkout_inline_payment_finished", "order_id", orderID, "error", flight.err)
			return
		}
		logger.Infow("checkout_inline_payment_finished", "order_id", orderID, "reference", flight.outcome.Reference)
	}()
	return flight, nil
}

// finishRedirect 跳转支付校验通过后结束对应的结算流程
func (f *checkoutFlow) finishRedirect(orderID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orch == nil {
		return
	}
	if order := f.orch.Order(); order != nil && order.ID == orderID {
		f.orch = nil
		f.flight = nil
	}
}

func (f *checkoutFlow) lastFlight() *payFlight {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flight
}

// BeginCheckoutRequest 进入结算
type BeginCheckoutRequest struct {
	ReturnTo string `json:"return_to"`
}

// CheckoutView 结算流程视图
type CheckoutView struct {
	State        checkout.State         `json:"state"`
	Details      checkout.Details       `json:"details"`
	Order        *models.Order          `json:"order,omitempty"`
	Confirmation *checkout.Confirmation `json:"confirmation,omitempty"`
	Paying       bool                   `json:"paying"`
}

// PayResponse 发起支付响应
type PayResponse struct {
	Mode        payment.Mode           `json:"mode"`
	OrderID     string                 `json:"order_id"`
	Reference   string                 `json:"reference,omitempty"`
	RedirectURL string                 `json:"redirect_url,omitempty"`
	Popup       *paystack.PopupRequest `json:"popup,omitempty"`
	Order       *models.Order          `json:"order,omitempty"`
}

// BeginCheckout 开始新的结算流程
func (h *Handler) BeginCheckout(c *gin.Context) {
	var req BeginCheckoutRequest
	_ = c.ShouldBindJSON(&req)

	orch := h.NewCheckout(checkout.NavigatorFunc(navigateLogged))
	if err := orch.Begin(c.Request.Context(), strings.TrimSpace(req.ReturnTo)); err != nil {
		shared.RespondDomainError(c, err)
		return
	}
	if err := h.flow.replace(orch); err != nil {
		shared.RespondDomainError(c, err)
		return
	}
	response.Success(c, h.checkoutView(orch))
}

// GetCheckout 当前结算流程
func (h *Handler) GetCheckout(c *gin.Context) {
	orch, err := h.flow.current()
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, h.checkoutView(orch))
}

// SubmitCheckoutDetails 提交收货与支付信息并创建订单
func (h *Handler) SubmitCheckoutDetails(c *gin.Context) {
	orch, err := h.flow.current()
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	var details checkout.Details
	if err := c.ShouldBindJSON(&details); err != nil {
		response.BadRequest(c, "invalid checkout details")
		return
	}
	if _, err := orch.SubmitDetails(c.Request.Context(), details); err != nil {
		shared.RespondDomainError(c, err)
		return
	}
	response.Success(c, h.checkoutView(orch))
}

// CheckoutBack 从支付返回表单
func (h *Handler) CheckoutBack(c *gin.Context) {
	orch, err := h.flow.current()
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	if err := orch.Back(); err != nil {
		shared.RespondDomainError(c, err)
		return
	}
	response.Success(c, h.checkoutView(orch))
}

// PayCheckout 发起支付
// 跳转渠道同步返回授权地址；内嵌渠道返回弹窗参数，结果由弹窗回调接口给出。
func (h *Handler) PayCheckout(c *gin.Context) {
	orch, err := h.flow.current()
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	if orch.State() != checkout.StatePayment {
		shared.RespondDomainError(c, checkout.ErrInvalidTransition)
		return
	}
	gateway, err := h.Payments.Gateway(orch.Details().Provider())
	if err != nil {
		shared.RespondDomainError(c, err)
		return
	}

	if gateway.Mode() == payment.ModeRedirect {
		outcome, err := orch.Pay(c.Request.Context())
		if err != nil {
			shared.RespondDomainError(c, err)
			return
		}
		response.Success(c, PayResponse{
			Mode:        outcome.Mode,
			OrderID:     outcome.OrderID,
			Reference:   outcome.Reference,
			RedirectURL: outcome.RedirectURL,
		})
		return
	}

	order := orch.Order()
	if order == nil {
		shared.RespondDomainError(c, checkout.ErrInvalidTransition)
		return
	}
	flight, err := h.flow.launch(orch, order.ID, h.payWindow())
	if err != nil {
		shared.RespondDomainError(c, err)
		return
	}

	waitCtx, cancel := context.WithTimeout(c.Request.Context(), popupOpenTimeout)
	defer cancel()
	opened := make(chan paystack.PopupRequest, 1)
	go func() {
		req, err := h.Popups.AwaitOpen(waitCtx, order.ID)
		if err == nil {
			opened <- req
		}
	}()

	select {
	case req := <-opened:
		response.Accepted(c, PayResponse{
			Mode:      payment.ModeInline,
			OrderID:   order.ID,
			Reference: req.Reference,
			Popup:     &req,
		})
	case <-flight.done:
		if flight.err != nil {
			shared.RespondDomainError(c, flight.err)
			return
		}
		response.Success(c, payResponseOf(flight.outcome))
	case <-waitCtx.Done():
		shared.RespondError(c, response.CodeGatewayTimeout, "payment popup not ready, please try again", waitCtx.Err())
	}
}

func (h *Handler) checkoutView(orch *checkout.Orchestrator) CheckoutView {
	view := CheckoutView{
		State:   orch.State(),
		Details: orch.Details(),
		Order:   orch.Order(),
	}
	if flight := h.flow.lastFlight(); flight != nil && !flight.finished() {
		view.Paying = true
	}
	if view.State == checkout.StateConfirmation {
		if confirmation, err := orch.Confirmation(); err == nil {
			view.Confirmation = &confirmation
		}
	}
	return view
}

func payResponseOf(outcome *checkout.Outcome) PayResponse {
	return PayResponse{
		Mode:        outcome.Mode,
		OrderID:     outcome.OrderID,
		Reference:   outcome.Reference,
		RedirectURL: outcome.RedirectURL,
		Order:       outcome.Order,
	}
}

// navigateLogged 跳转由视图完成，这里只记录目标
func navigateLogged(_ context.Context, target string) error {
	logger.Infow("checkout_navigate", "target", target)
	return nil
}
