package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/campusbooks/storefront/internal/constants"
	"github.com/campusbooks/storefront/internal/logger"
	"github.com/campusbooks/storefront/internal/models"
	"github.com/campusbooks/storefront/internal/notify"
)

// Storage 购物车使用的持久化键值存储
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Options 购物车配置
type Options struct {
	StorageKey string
}

// Snapshot 购物车快照（推送给订阅者）
type Snapshot struct {
	Items     []models.CartLineItem `json:"items"`
	Total     models.Money          `json:"total"`
	ItemCount int                   `json:"item_count"`
	IsOpen    bool                  `json:"is_open"`
}

// Store 持久化购物车
// 所有变更在互斥锁内执行，校验前重新读取当前状态，成功后整体写回存储。
type Store struct {
	mu       sync.Mutex
	storage  Storage
	notifier notify.Notifier
	key      string

	items []models.CartLineItem
	open  bool

	listenerMu sync.Mutex
	listeners  map[int]func(Snapshot)
	nextID     int
}

// NewStore 创建购物车，调用方需再调用 Hydrate 载入持久化数据
func NewStore(storage Storage, notifier notify.Notifier, opts Options) *Store {
	key := opts.StorageKey
	if key == "" {
		key = constants.StorageKeyCartItems
	}
	return &Store{
		storage:   storage,
		notifier:  notifier,
		key:       key,
		listeners: make(map[int]func(Snapshot)),
	}
}

// Hydrate 从持久化存储恢复购物车，任何读取或解析失败都退化为空购物车
func (s *Store) Hydrate(ctx context.Context) {
	items := s.load(ctx)
	s.mu.Lock()
	s.items = items
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
}

func (s *Store) load(ctx context.Context) []models.CartLineItem {
	if s.storage == nil {
		return nil
	}
	raw, ok, err := s.storage.Get(ctx, s.key)
	if err != nil {
		logger.Warnw("cart_hydrate_read_failed", "key", s.key, "error", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	var stored []models.CartLineItem
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		logger.Warnw("cart_hydrate_decode_failed", "key", s.key, "error", err)
		return nil
	}

	items := make([]models.CartLineItem, 0, len(stored))
	seen := make(map[string]struct{}, len(stored))
	dropped := 0
	for _, item := range stored {
		if !item.Valid() {
			dropped++
			continue
		}
		if _, dup := seen[item.BookID]; dup {
			dropped++
			continue
		}
		seen[item.BookID] = struct{}{}
		items = append(items, item)
	}
	if dropped > 0 {
		logger.Warnw("cart_hydrate_items_dropped", "key", s.key, "dropped", dropped)
	}
	return items
}

// Items 返回行项目副本（按加入顺序）
func (s *Store) Items() []models.CartLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// Total 合计金额，每次调用重新计算
func (s *Store) Total() models.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalOf(s.items)
}

// ItemCount 商品件数合计
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countOf(s.items)
}

// IsEmpty 购物车是否为空
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) == 0
}

// Snapshot 当前快照
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// IsOpen 侧边购物车是否展开（不持久化）
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// SetOpen 设置展开状态
func (s *Store) SetOpen(open bool) {
	s.mu.Lock()
	s.open = open
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// Toggle 切换展开状态
func (s *Store) Toggle() bool {
	s.mu.Lock()
	s.open = !s.open
	open := s.open
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
	return open
}

// Subscribe 订阅变更，返回取消订阅函数
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	s.listenerMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenerMu.Unlock()
	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

// Dispose 移除全部订阅者
func (s *Store) Dispose() {
	s.listenerMu.Lock()
	s.listeners = make(map[int]func(Snapshot))
	s.listenerMu.Unlock()
}

// mutate 在锁内基于当前状态计算新状态并写回存储，写入失败时内存状态保持不变
func (s *Store) mutate(ctx context.Context, fn func(current []models.CartLineItem) ([]models.CartLineItem, error)) error {
	s.mu.Lock()
	next, err := fn(cloneItems(s.items))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.persist(ctx, next); err != nil {
		s.mu.Unlock()
		logger.Errorw("cart_persist_failed", "key", s.key, "error", err)
		return err
	}
	s.items = next
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
	return nil
}

func (s *Store) persist(ctx context.Context, items []models.CartLineItem) error {
	if s.storage == nil {
		return nil
	}
	if items == nil {
		items = []models.CartLineItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart failed: %w", err)
	}
	if err := s.storage.Set(ctx, s.key, string(payload)); err != nil {
		return fmt.Errorf("persist cart failed: %w", err)
	}
	return nil
}

func (s *Store) publish(snap Snapshot) {
	s.listenerMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenerMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Items:     cloneItems(s.items),
		Total:     totalOf(s.items),
		ItemCount: countOf(s.items),
		IsOpen:    s.open,
	}
}

func cloneItems(items []models.CartLineItem) []models.CartLineItem {
	out := make([]models.CartLineItem, len(items))
	copy(out, items)
	return out
}

func totalOf(items []models.CartLineItem) models.Money {
	total := models.NewMoneyFromInt(0)
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func countOf(items []models.CartLineItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

func indexOf(items []models.CartLineItem, bookID string) int {
	for i := range items {
		if items[i].BookID == bookID {
			return i
		}
	}
	return -1
}
