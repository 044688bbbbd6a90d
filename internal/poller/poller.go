package poller

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/campusbooks/storefront/internal/constants"
	"github.com/campusbooks/storefront/internal/logger"
	"github.com/campusbooks/storefront/internal/models"
	"github.com/campusbooks/storefront/internal/notify"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrNotAuthenticated = errors.New("order poller requires authentication")
	ErrOrderIDRequired  = errors.New("order poller requires an order id")
)

const defaultInterval = 8 * time.Second

// Fetcher 拉取订单
type Fetcher interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
}

// Authenticator 登录态
type Authenticator interface {
	IsAuthenticated() bool
}

// Ticker 轮询时钟，测试可替换
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// Options 轮询配置
type Options struct {
	Interval  time.Duration
	NewTicker func(d time.Duration) Ticker
}

// Poller 订单状态轮询
type Poller struct {
	fetcher  Fetcher
	notifier notify.Notifier
	auth     Authenticator
	interval time.Duration
	ticker   func(d time.Duration) Ticker
}

// New 创建轮询器
func New(fetcher Fetcher, notifier notify.Notifier, auth Authenticator, opts Options) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	newTicker := opts.NewTicker
	if newTicker == nil {
		newTicker = func(d time.Duration) Ticker { return timeTicker{t: time.NewTicker(d)} }
	}
	return &Poller{
		fetcher:  fetcher,
		notifier: notifier,
		auth:     auth,
		interval: interval,
		ticker:   newTicker,
	}
}

// Start 开始轮询指定订单；ctx 取消或 Handle.Stop 时结束
func (p *Poller) Start(ctx context.Context, orderID string, initial *models.Order) (*Handle, error) {
	if p.auth == nil || !p.auth.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" && initial != nil {
		orderID = initial.ID
	}
	if orderID == "" {
		return nil, ErrOrderIDRequired
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		orderID: orderID,
		cancel:  cancel,
		done:    make(chan struct{}),
		updates: make(chan models.Order, 1),
	}
	if initial != nil {
		cp := *initial
		h.current = &cp
	}
	ticker := p.ticker(p.interval)
	go p.run(runCtx, h, ticker)
	logger.Debugw("order_poller_started", "order_id", orderID, "interval", p.interval)
	return h, nil
}

func (p *Poller) run(ctx context.Context, h *Handle, ticker Ticker) {
	defer close(h.done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Debugw("order_poller_stopped", "order_id", h.orderID)
			return
		case <-ticker.C():
			if p.tick(ctx, h) {
				logger.Debugw("order_poller_terminal", "order_id", h.orderID)
				return
			}
		}
	}
}

// tick 返回 true 表示订单已到终态
func (p *Poller) tick(ctx context.Context, h *Handle) bool {
	fresh, err := p.fetcher.GetOrder(ctx, h.orderID)
	if err != nil {
		logger.Debugw("order_poller_fetch_failed", "order_id", h.orderID, "error", err)
		return false
	}
	if fresh == nil || ctx.Err() != nil {
		return false
	}

	h.mu.Lock()
	previous := h.current
	if previous != nil && reflect.DeepEqual(*previous, *fresh) {
		h.mu.Unlock()
		return isTerminal(fresh.Status)
	}
	cp := *fresh
	h.current = &cp
	h.mu.Unlock()

	h.publish(cp)
	if previous != nil && previous.Status != fresh.Status {
		notify.Info(p.notifier, "Order status updated: "+StatusLabel(fresh.Status))
	}
	return isTerminal(fresh.Status)
}

// StatusLabel 状态的展示文案：ready_for_pickup → Ready For Pickup
func StatusLabel(status string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(strings.TrimSpace(status), "_", " "))
}

func isTerminal(status string) bool {
	_, ok := constants.TerminalOrderStatuses[status]
	return ok
}

// Handle 一次轮询任务
type Handle struct {
	orderID string
	cancel  context.CancelFunc
	done    chan struct{}
	updates chan models.Order

	mu      sync.Mutex
	current *models.Order
}

// OrderID 轮询的订单号
func (h *Handle) OrderID() string { return h.orderID }

// Current 最新订单副本
func (h *Handle) Current() (models.Order, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return models.Order{}, false
	}
	return *h.current, true
}

// Updates 订单变更通知，只保留最新一份
func (h *Handle) Updates() <-chan models.Order {
	return h.updates
}

// Done 轮询结束时关闭
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Stop 停止轮询并等待退出，可重复调用
func (h *Handle) Stop() {
	h.cancel()
	<-h.done
}

func (h *Handle) publish(order models.Order) {
	for {
		select {
		case h.updates <- order:
			return
		default:
		}
		select {
		case <-h.updates:
		default:
		}
	}
}
