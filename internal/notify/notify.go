package notify

import (
	"sync"
	"time"

	"github.com/campusbooks/storefront/internal/constants"
	"github.com/campusbooks/storefront/internal/logger"
)

// Notification 面向用户的提示消息
type Notification struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier 提示消息出口
type Notifier interface {
	Notify(level, message string)
}

// Success 发送成功提示
func Success(n Notifier, message string) {
	if n != nil {
		n.Notify(constants.NotifyLevelSuccess, message)
	}
}

// Error 发送错误提示
func Error(n Notifier, message string) {
	if n != nil {
		n.Notify(constants.NotifyLevelError, message)
	}
}

// Info 发送普通提示
func Info(n Notifier, message string) {
	if n != nil {
		n.Notify(constants.NotifyLevelInfo, message)
	}
}

// LogNotifier 写入结构化日志
type LogNotifier struct{}

// Notify 实现 Notifier
func (LogNotifier) Notify(level, message string) {
	logger.Infow("notification", "level", level, "message", message)
}

// Recorder 记录提示消息（测试与诊断）
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Notify 实现 Notifier
func (r *Recorder) Notify(level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Notification{Level: level, Message: message, CreatedAt: time.Now()})
}

// All 返回已记录的消息副本
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Count 按级别统计
func (r *Recorder) Count(level string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, item := range r.items {
		if item.Level == level {
			n++
		}
	}
	return n
}

// Reset 清空记录
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.items = nil
	r.mu.Unlock()
}

// Multi 组合多个出口
type Multi []Notifier

// Notify 实现 Notifier
func (m Multi) Notify(level, message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(level, message)
		}
	}
}
