package public

import (
	"strings"

	"github.com/campusbooks/storefront/internal/http/handlers/shared"
	"github.com/campusbooks/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// CartItemRequest 加入购物车请求
type CartItemRequest struct {
	BookID   string `json:"book_id" binding:"required"`
	Quantity int    `json:"quantity"`
}

// CartQuantityRequest 修改数量请求
type CartQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// GetCart 获取购物车快照
func (h *Handler) GetCart(c *gin.Context) {
	response.Success(c, h.Cart.Snapshot())
}

// AddCartItem 加入购物车，库存以后端最新图书记录为准
func (h *Handler) AddCartItem(c *gin.Context) {
	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "book_id is required")
		return
	}
	book, err := h.Backend.GetBook(c.Request.Context(), strings.TrimSpace(req.BookID))
	if err != nil {
		shared.RespondDomainError(c, err)
		return
	}
	if err := h.Cart.AddItem(c.Request.Context(), *book, req.Quantity); err != nil {
		shared.RespondDomainError(c, err)
		return
	}
	response.Success(c, h.Cart.Snapshot())
}

// SetCartItemQuantity 修改行项目数量，小于 1 时移除
func (h *Handler) SetCartItemQuantity(c *gin.Context) {
	var req CartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "quantity is required")
		return
	}
	if err := h.Cart.SetQuantity(c.Request.Context(), c.Param("book_id"), *req.Quantity); err != nil {
		shared.RespondDomainError(c, err)
		return
	}
	response.Success(c, h.Cart.Snapshot())
}

// RemoveCartItem 移除行项目
func (h *Handler) RemoveCartItem(c *gin.Context) {
	if err := h.Cart.RemoveItem(c.Request.Context(), c.Param("book_id")); err != nil {
		shared.RespondDomainError(c, err)
		return
	}
	response.Success(c, h.Cart.Snapshot())
}

// ClearCart 清空购物车
func (h *Handler) ClearCart(c *gin.Context) {
	if err := h.Cart.Clear(c.Request.Context()); err != nil {
		shared.RespondDomainError(c, err)
		return
	}
	response.Success(c, h.Cart.Snapshot())
}

// ToggleCart 切换购物车抽屉
func (h *Handler) ToggleCart(c *gin.Context) {
	h.Cart.Toggle()
	response.Success(c, h.Cart.Snapshot())
}
