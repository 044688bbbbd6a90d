package cart

import "errors"

var (
	// ErrStockExceeded 数量超过库存上限（可恢复，购物车保持不变）
	ErrStockExceeded = errors.New("quantity exceeds available stock")
	// ErrItemNotFound 购物车中不存在该图书
	ErrItemNotFound = errors.New("cart item not found")
	// ErrInvalidBook 图书记录缺少必要字段
	ErrInvalidBook = errors.New("invalid book")
)
