package notify

import (
	"sync"
	"time"
)

const subscriberBuffer = 16

// Hub 将提示消息广播给所有在线视图（SSE）
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Notification
}

// NewHub 创建广播中心
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Notification)}
}

// Notify 实现 Notifier，慢订阅者的消息会被丢弃
func (h *Hub) Notify(level, message string) {
	n := Notification{Level: level, Message: message, CreatedAt: time.Now()}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// Subscribe 订阅消息，返回接收通道与取消函数
func (h *Hub) Subscribe() (<-chan Notification, func()) {
	ch := make(chan Notification, subscriberBuffer)
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers 当前订阅数
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
