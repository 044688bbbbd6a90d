package cache

import (
	"context"
	"strings"
	"time"

	"github.com/campusbooks/storefront/internal/config"
	"github.com/campusbooks/storefront/internal/constants"
	"github.com/campusbooks/storefront/internal/logger"
)

// Duration 会话有效期
type Duration = time.Duration

// SessionStore 短期会话状态（跨跳转支付存活，过期自动清除）
type SessionStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl Duration) error
	Del(ctx context.Context, key string) error
}

// NewSessionStore 启用 Redis 时使用 Redis，否则退化为进程内存储
func NewSessionStore(cfg *config.RedisConfig, defaultTTL Duration) SessionStore {
	client := NewRedisClient(cfg)
	if client == nil {
		logger.Infow("session_store_memory_fallback", "ttl", defaultTTL)
		return NewMemorySessionStore(memorySessionSize, defaultTTL)
	}
	return NewRedisSessionStore(client, cfg.Prefix)
}

// PendingOrderKey 待支付订单会话键，reference 为空时使用 current
func PendingOrderKey(reference string) string {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		reference = "current"
	}
	return constants.SessionKeyPendingOrder + ":" + reference
}
