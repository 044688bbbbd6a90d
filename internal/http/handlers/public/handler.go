package public

import (
	"time"

	"github.com/campusbooks/storefront/internal/provider"
)

// Handler 前台接口处理器入口
// 本地视图服务只服务一个浏览会话，结算流程在处理器内只保留一份。
type Handler struct {
	*provider.Container
	flow *checkoutFlow
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{
		Container: c,
		flow:      newCheckoutFlow(),
	}
}

// payWindow 内嵌支付从发起到回调的最长等待时间
func (h *Handler) payWindow() time.Duration {
	return 10 * time.Minute
}
