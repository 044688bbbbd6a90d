package admin

import "github.com/campusbooks/storefront/internal/provider"

// Handler 管理端接口处理器（代理到后端管理接口）
type Handler struct {
	*provider.Container
}

// New 创建管理端处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
