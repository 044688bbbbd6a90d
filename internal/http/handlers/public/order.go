package public

import (
	"io"

	"github.com/campusbooks/storefront/internal/constants"
	"github.com/campusbooks/storefront/internal/http/handlers/shared"
	"github.com/campusbooks/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListOrders 我的订单
func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.Backend.ListMyOrders(c.Request.Context())
	if err != nil {
		shared.RespondDomainError(c, err)
		return
	}
	response.Success(c, orders)
}

// GetOrder 订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.Backend.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		shared.RespondLookupError(c, err, constants.PathOrders)
		return
	}
	response.Success(c, order)
}

// WatchOrder 以 SSE 推送订单变更，连接断开即停止轮询
func (h *Handler) WatchOrder(c *gin.Context) {
	ctx := c.Request.Context()
	initial, err := h.Backend.GetOrder(ctx, c.Param("id"))
	if err != nil {
		shared.RespondLookupError(c, err, constants.PathOrders)
		return
	}
	handle, err := h.Poller.Start(ctx, c.Param("id"), initial)
	if err != nil {
		shared.RespondDomainError(c, err)
		return
	}
	defer handle.Stop()

	setStreamHeaders(c)
	c.SSEvent("order", initial)
	c.Writer.Flush()
	c.Stream(func(io.Writer) bool {
		select {
		case order := <-handle.Updates():
			c.SSEvent("order", order)
			return true
		case <-handle.Done():
			if order, ok := handle.Current(); ok {
				c.SSEvent("done", order)
			}
			return false
		case <-ctx.Done():
			return false
		}
	})
}

func setStreamHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}
