package models

// CartLineItem 购物车行项目
// Price 为加入购物车时的单价快照，StockCeiling 为最近一次变更时的库存上限。
type CartLineItem struct {
	BookID       string `json:"book_id"`
	Title        string `json:"title"`
	Author       string `json:"author,omitempty"`
	Image        string `json:"image,omitempty"`
	Price        Money  `json:"price"`
	Quantity     int    `json:"quantity"`
	StockCeiling int    `json:"stock_ceiling"`
}

// Subtotal 行小计
func (i CartLineItem) Subtotal() Money {
	return i.Price.Times(i.Quantity)
}

// Valid 是否满足 1 ≤ 数量 ≤ 库存上限
func (i CartLineItem) Valid() bool {
	return i.BookID != "" && i.Quantity >= 1 && i.Quantity <= i.StockCeiling
}

// NewCartLineItem 由图书快照创建行项目
func NewCartLineItem(book Book, quantity int) CartLineItem {
	return CartLineItem{
		BookID:       book.ID,
		Title:        book.Title,
		Author:       book.Author,
		Image:        book.Image,
		Price:        book.Price,
		Quantity:     quantity,
		StockCeiling: book.StockQuantity,
	}
}
