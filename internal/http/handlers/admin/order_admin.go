package admin

import (
	"strings"

	"github.com/campusbooks/storefront/internal/constants"
	"github.com/campusbooks/storefront/internal/http/handlers/shared"
	"github.com/campusbooks/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// UpdateOrderStatusRequest 更新订单状态请求
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

var allowedOrderStatuses = map[string]struct{}{
	constants.OrderStatusPending:        {},
	constants.OrderStatusProcessing:     {},
	constants.OrderStatusPaid:           {},
	constants.OrderStatusReadyForPickup: {},
	constants.OrderStatusShipped:        {},
	constants.OrderStatusDelivered:      {},
	constants.OrderStatusCompleted:      {},
	constants.OrderStatusCancelled:      {},
	constants.OrderStatusFailed:         {},
}

// GetOrder 管理端订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.Backend.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		shared.RespondDomainError(c, err)
		return
	}
	response.Success(c, order)
}

// UpdateOrderStatus 管理端更新订单状态
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "status is required")
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if _, ok := allowedOrderStatuses[status]; !ok {
		response.BadRequest(c, "unknown order status")
		return
	}
	order, err := h.Backend.UpdateOrderStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		shared.RespondDomainError(c, err)
		return
	}
	shared.RequestLog(c).Infow("admin_order_status_updated",
		"order_id", order.ID,
		"status", order.Status,
		"role", shared.GetContextString(c, shared.ContextKeyRole),
	)
	response.Success(c, order)
}
