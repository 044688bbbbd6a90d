package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/campusbooks/storefront/internal/payment/paystack"
)

type pendingPopup struct {
	request paystack.PopupRequest
	attempt *Attempt
}

// PopupRegistry 进程内弹窗承载：挂起内嵌支付，等待视图回传 SDK 回调
type PopupRegistry struct {
	mu      sync.Mutex
	pending map[string]pendingPopup
	opened  map[string][]chan paystack.PopupRequest
}

// NewPopupRegistry 创建弹窗承载
func NewPopupRegistry() *PopupRegistry {
	return &PopupRegistry{
		pending: make(map[string]pendingPopup),
		opened:  make(map[string][]chan paystack.PopupRequest),
	}
}

// Open 实现 PopupSurface，同一订单此前挂起的弹窗会被作废
func (r *PopupRegistry) Open(_ context.Context, req paystack.PopupRequest, attempt *Attempt) error {
	r.mu.Lock()
	var superseded []*Attempt
	for ref, p := range r.pending {
		if p.attempt.OrderID == attempt.OrderID && ref != req.Reference {
			superseded = append(superseded, p.attempt)
			delete(r.pending, ref)
		}
	}
	r.pending[req.Reference] = pendingPopup{request: req, attempt: attempt}
	waiters := r.opened[attempt.OrderID]
	delete(r.opened, attempt.OrderID)
	r.mu.Unlock()

	for _, old := range superseded {
		old.Resolve(Failed("superseded by a newer payment attempt"))
	}
	attempt.OnResult(func(Result) {
		r.mu.Lock()
		if p, ok := r.pending[req.Reference]; ok && p.attempt == attempt {
			delete(r.pending, req.Reference)
		}
		r.mu.Unlock()
	})
	for _, ch := range waiters {
		ch <- req
	}
	return nil
}

// AwaitOpen 等待指定订单的弹窗被打开
func (r *PopupRegistry) AwaitOpen(ctx context.Context, orderID string) (paystack.PopupRequest, error) {
	r.mu.Lock()
	for _, p := range r.pending {
		if p.attempt.OrderID == orderID {
			r.mu.Unlock()
			return p.request, nil
		}
	}
	ch := make(chan paystack.PopupRequest, 1)
	r.opened[orderID] = append(r.opened[orderID], ch)
	r.mu.Unlock()

	select {
	case req := <-ch:
		return req, nil
	case <-ctx.Done():
		r.dropWaiter(orderID, ch)
		return paystack.PopupRequest{}, ctx.Err()
	}
}

func (r *PopupRegistry) dropWaiter(orderID string, ch chan paystack.PopupRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	waiters := r.opened[orderID]
	for i, w := range waiters {
		if w == ch {
			waiters = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(waiters) == 0 {
		delete(r.opened, orderID)
		return
	}
	r.opened[orderID] = waiters
}

// Waiters 等待弹窗打开的订单数量
func (r *PopupRegistry) Waiters() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.opened)
}

// Pending 查询挂起的弹窗参数
func (r *PopupRegistry) Pending(reference string) (paystack.PopupRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[strings.TrimSpace(reference)]
	return p.request, ok
}

// Report 视图回传 SDK 回调
func (r *PopupRegistry) Report(reference string, raw map[string]interface{}) (Result, error) {
	reference = strings.TrimSpace(reference)
	r.mu.Lock()
	p, ok := r.pending[reference]
	r.mu.Unlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrAttemptUnknown, reference)
	}

	cb, err := paystack.ParseCallback(raw)
	if err != nil {
		return Result{}, err
	}
	if cb.Reference != "" && cb.Successful() && cb.Reference != reference {
		return Result{}, fmt.Errorf("%w: reference mismatch", paystack.ErrCallbackInvalid)
	}
	result := FromCallback(cb)
	if result.Success && result.Reference == "" {
		result.Reference = reference
	}
	if !p.attempt.Resolve(result) {
		return Result{}, ErrAttemptResolved
	}
	return result, nil
}

// Len 挂起数量
func (r *PopupRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
