package payment

import (
	"context"
	"strings"
	"sync"

	"github.com/campusbooks/storefront/internal/models"

	"github.com/google/uuid"
)

// Attempt 一次支付尝试，结果只投递一次
type Attempt struct {
	Reference        string
	Provider         Provider
	OrderID          string
	Amount           models.Money
	Email            string
	AuthorizationURL string

	mu        sync.Mutex
	done      chan struct{}
	result    Result
	resolved  bool
	callbacks []func(Result)
}

// NewReference 生成支付参考号
func NewReference() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "BKS-" + strings.ToUpper(id[:16])
}

// NewAttempt 创建支付尝试
func NewAttempt(provider Provider, orderID string, amount models.Money, email string) *Attempt {
	return &Attempt{
		Reference: NewReference(),
		Provider:  provider,
		OrderID:   orderID,
		Amount:    amount,
		Email:     email,
		done:      make(chan struct{}),
	}
}

// OnResult 注册结果回调，已有结果时立即回调
func (a *Attempt) OnResult(fn func(Result)) {
	if fn == nil {
		return
	}
	a.mu.Lock()
	if a.resolved {
		result := a.result
		a.mu.Unlock()
		fn(result)
		return
	}
	a.callbacks = append(a.callbacks, fn)
	a.mu.Unlock()
}

// Resolve 投递结果，仅第一次生效
func (a *Attempt) Resolve(result Result) bool {
	a.mu.Lock()
	if a.resolved {
		a.mu.Unlock()
		return false
	}
	a.resolved = true
	a.result = result
	callbacks := a.callbacks
	a.callbacks = nil
	close(a.done)
	a.mu.Unlock()

	for _, fn := range callbacks {
		fn(result)
	}
	return true
}

// Result 当前结果
func (a *Attempt) Result() (Result, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result, a.resolved
}

// Done 结果到达时关闭
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Wait 等待结果
func (a *Attempt) Wait(ctx context.Context) (Result, error) {
	select {
	case <-a.done:
		result, _ := a.Result()
		return result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
