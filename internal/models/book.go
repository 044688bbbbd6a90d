package models

import "strings"

// Book 目录中的图书记录（由后端维护，前台只读）
type Book struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Description   string `json:"description,omitempty"`
	Image         string `json:"image,omitempty"`
	Category      string `json:"category,omitempty"`
	Level         string `json:"level,omitempty"`
	Price         Money  `json:"price"`
	StockQuantity int    `json:"stock_quantity"`
}

// DisplayTitle 返回用于提示文案的书名
func (b Book) DisplayTitle() string {
	title := strings.TrimSpace(b.Title)
	if title == "" {
		return "Item"
	}
	return title
}

// InStock 是否有库存
func (b Book) InStock() bool {
	return b.StockQuantity > 0
}

// BookQuery 图书检索条件
type BookQuery struct {
	Search   string
	Category string
	MinPrice string
	MaxPrice string
	Level    string
}
