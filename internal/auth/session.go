package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/campusbooks/storefront/internal/constants"
	"github.com/campusbooks/storefront/internal/logger"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenMalformed 令牌无法解析
	ErrTokenMalformed = errors.New("auth token malformed")
	// ErrTokenExpired 令牌已过期
	ErrTokenExpired = errors.New("auth token expired")
)

// Claims 后端签发的用户声明（仅读取，不校验签名）
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Storage 令牌持久化存储
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Session 当前用户的 bearer 令牌
// 令牌签名由后端校验，这里只读取过期时间与角色用于前置判断。
type Session struct {
	mu      sync.RWMutex
	storage Storage
	token   string
	claims  *Claims
	now     func() time.Time
}

// NewSession 创建会话
func NewSession(storage Storage) *Session {
	return &Session{storage: storage, now: time.Now}
}

// Load 从持久化存储恢复令牌，过期或无法解析的令牌会被删除
func (s *Session) Load(ctx context.Context) {
	if s.storage == nil {
		return
	}
	raw, ok, err := s.storage.Get(ctx, constants.StorageKeyAuthToken)
	if err != nil {
		logger.Warnw("auth_token_load_failed", "error", err)
		return
	}
	if !ok {
		return
	}
	claims, err := s.inspect(raw)
	if err != nil {
		logger.Infow("auth_token_discarded", "reason", err.Error())
		_ = s.storage.Delete(ctx, constants.StorageKeyAuthToken)
		return
	}
	s.mu.Lock()
	s.token = strings.TrimSpace(raw)
	s.claims = claims
	s.mu.Unlock()
}

// SetToken 保存新令牌
func (s *Session) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	claims, err := s.inspect(token)
	if err != nil {
		return err
	}
	if s.storage != nil {
		if err := s.storage.Set(ctx, constants.StorageKeyAuthToken, token); err != nil {
			return fmt.Errorf("persist auth token failed: %w", err)
		}
	}
	s.mu.Lock()
	s.token = token
	s.claims = claims
	s.mu.Unlock()
	return nil
}

// Clear 登出
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.claims = nil
	s.mu.Unlock()
	if s.storage == nil {
		return nil
	}
	return s.storage.Delete(ctx, constants.StorageKeyAuthToken)
}

// Invalidate 后端返回 401 时调用
func (s *Session) Invalidate() {
	if err := s.Clear(context.Background()); err != nil {
		logger.Warnw("auth_token_clear_failed", "error", err)
		return
	}
	logger.Infow("auth_token_invalidated")
}

// Token 返回未过期的令牌，否则为空
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || s.expiredLocked() {
		return ""
	}
	return s.token
}

// IsAuthenticated 是否持有未过期令牌
func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// Claims 当前令牌声明
func (s *Session) Claims() (Claims, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil || s.expiredLocked() {
		return Claims{}, false
	}
	return *s.claims, true
}

// Role 当前用户角色，未登录为空
func (s *Session) Role() string {
	claims, ok := s.Claims()
	if !ok {
		return ""
	}
	return strings.TrimSpace(claims.Role)
}

func (s *Session) expiredLocked() bool {
	if s.claims == nil || s.claims.ExpiresAt == nil {
		return false
	}
	return !s.now().Before(s.claims.ExpiresAt.Time)
}

func (s *Session) inspect(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenMalformed)
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if claims.ExpiresAt != nil && !s.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}
