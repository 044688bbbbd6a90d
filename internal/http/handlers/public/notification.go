package public

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

const notificationKeepAlive = 25 * time.Second

// StreamNotifications 以 SSE 推送提示消息
func (h *Handler) StreamNotifications(c *gin.Context) {
	ch, cancel := h.Notifications.Subscribe()
	defer cancel()

	keepAlive := time.NewTicker(notificationKeepAlive)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	setStreamHeaders(c)
	c.Writer.Flush()
	c.Stream(func(io.Writer) bool {
		select {
		case n, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("notification", n)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-ctx.Done():
			return false
		}
	})
}
