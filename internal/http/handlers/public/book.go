package public

import (
	"strings"

	"github.com/campusbooks/storefront/internal/constants"
	"github.com/campusbooks/storefront/internal/http/handlers/shared"
	"github.com/campusbooks/storefront/internal/http/response"
	"github.com/campusbooks/storefront/internal/models"

	"github.com/gin-gonic/gin"
)

// ListBooks 图书目录
func (h *Handler) ListBooks(c *gin.Context) {
	query := models.BookQuery{
		Search:   strings.TrimSpace(c.Query("search")),
		Category: strings.TrimSpace(c.Query("category")),
		MinPrice: strings.TrimSpace(c.Query("min_price")),
		MaxPrice: strings.TrimSpace(c.Query("max_price")),
		Level:    strings.TrimSpace(c.Query("level")),
	}
	books, err := h.Backend.ListBooks(c.Request.Context(), query)
	if err != nil {
		shared.RespondDomainError(c, err)
		return
	}
	response.Success(c, books)
}

// GetBook 图书详情
func (h *Handler) GetBook(c *gin.Context) {
	book, err := h.Backend.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		shared.RespondLookupError(c, err, constants.PathCatalog)
		return
	}
	response.Success(c, book)
}
