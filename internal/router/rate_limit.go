package router

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/campusbooks/storefront/internal/http/response"
	"github.com/campusbooks/storefront/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const localLimiterSize = 4096

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	Message       string
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// RateLimitMiddleware 频率限制中间件，Redis 未启用时使用进程内令牌桶
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	if rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	local := newLocalLimiter(rule)
	return func(c *gin.Context) {
		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = fmt.Sprintf("%s:%s", rule.Prefix, key)
		}

		var waitSeconds int
		if client == nil {
			waitSeconds = local.check(key)
		} else {
			var err error
			waitSeconds, err = checkRedis(c, client, rule, key)
			if err != nil {
				logger.Warnw("rate_limit_redis_failed", "key", key, "error", err)
				waitSeconds = local.check(key)
			}
		}
		if waitSeconds > 0 {
			msg := strings.TrimSpace(rule.Message)
			if msg == "" {
				msg = "too many requests"
			}
			response.Error(c, response.CodeTooManyRequests, fmt.Sprintf("%s, retry in %ds", msg, waitSeconds))
			c.Abort()
			return
		}
		c.Next()
	}
}

// checkRedis 返回需要等待的秒数，0 表示放行
func checkRedis(c *gin.Context, client *redis.Client, rule RateLimitRule, key string) (int, error) {
	result, err := rateLimitScript.Run(c.Request.Context(), client, []string{key}, rule.WindowSeconds).Result()
	if err != nil {
		return 0, err
	}
	values, ok := result.([]interface{})
	if !ok || len(values) < 2 {
		return 0, fmt.Errorf("unexpected rate limit result %T", result)
	}
	count, ok := toInt64(values[0])
	if !ok {
		return 0, fmt.Errorf("unexpected rate limit count %T", values[0])
	}
	if count <= int64(rule.MaxRequests) {
		return 0, nil
	}
	ttlSeconds, _ := toInt64(values[1])
	wait := int(ttlSeconds)
	if wait < 1 {
		wait = rule.WindowSeconds
	}
	if wait < 1 {
		wait = 1
	}
	return wait, nil
}

// localLimiter 按 key 维护令牌桶，长期不活跃的 key 自动淘汰
type localLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	every    rate.Limit
	burst    int
}

func newLocalLimiter(rule RateLimitRule) *localLimiter {
	window := time.Duration(rule.WindowSeconds) * time.Second
	return &localLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](localLimiterSize, nil, 2*window),
		every:    rate.Every(window / time.Duration(rule.MaxRequests)),
		burst:    rule.MaxRequests,
	}
}

func (l *localLimiter) check(key string) int {
	l.mu.Lock()
	limiter, ok := l.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.every, l.burst)
		l.limiters.Add(key, limiter)
	}
	l.mu.Unlock()

	reservation := limiter.Reserve()
	if !reservation.OK() {
		return 1
	}
	delay := reservation.Delay()
	if delay <= 0 {
		return 0
	}
	reservation.Cancel()
	wait := int(delay.Round(time.Second) / time.Second)
	if wait < 1 {
		wait = 1
	}
	return wait
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByParam 使用路径参数 + IP 作为限流 key
func KeyByParam(name string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.TrimSpace(c.Param(name))
		if value == "" {
			return c.ClientIP()
		}
		return fmt.Sprintf("%s|%s", value, c.ClientIP())
	}
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint8:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
