package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/campusbooks/storefront/internal/models"
)

// ListBooks 检索图书
func (c *Client) ListBooks(ctx context.Context, query models.BookQuery) ([]models.Book, error) {
	params := url.Values{}
	setParam(params, "search", query.Search)
	setParam(params, "category", query.Category)
	setParam(params, "minPrice", query.MinPrice)
	setParam(params, "maxPrice", query.MaxPrice)
	setParam(params, "level", query.Level)

	path := "/books"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	books := make([]models.Book, 0)
	if err := c.decode(body, &books, "data", "books"); err != nil {
		return nil, err
	}
	return books, nil
}

// GetBook 获取单本图书
func (c *Client) GetBook(ctx context.Context, id string) (*models.Book, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: book id is required", ErrRequestFailed)
	}
	body, err := c.do(ctx, http.MethodGet, "/books/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var book models.Book
	if err := c.decode(body, &book, "data", "book"); err != nil {
		return nil, err
	}
	return &book, nil
}

func setParam(params url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		params.Set(key, value)
	}
}
