package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campusbooks/storefront/internal/models"
	"github.com/campusbooks/storefront/internal/notify"
)

// StockAdjustment 库存同步时被下调的行项目
type StockAdjustment struct {
	BookID    string `json:"book_id"`
	Title     string `json:"title"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// AddItem 加入购物车，quantity ≤ 0 时按 1 处理
// 新行要求 quantity ≤ 库存；已有行要求 已有数量+quantity ≤ 库存，成功后按最新图书记录刷新库存上限。
func (s *Store) AddItem(ctx context.Context, book models.Book, quantity int) error {
	if strings.TrimSpace(book.ID) == "" {
		return ErrInvalidBook
	}
	if quantity <= 0 {
		quantity = 1
	}

	err := s.mutate(ctx, func(items []models.CartLineItem) ([]models.CartLineItem, error) {
		idx := indexOf(items, book.ID)
		if idx < 0 {
			if quantity > book.StockQuantity {
				return nil, stockError(quantity, book.StockQuantity)
			}
			return append(items, models.NewCartLineItem(book, quantity)), nil
		}
		wanted := items[idx].Quantity + quantity
		if wanted > book.StockQuantity {
			return nil, stockError(wanted, book.StockQuantity)
		}
		items[idx].Quantity = wanted
		items[idx].StockCeiling = book.StockQuantity
		return items, nil
	})
	if errors.Is(err, ErrStockExceeded) {
		notify.Error(s.notifier, availabilityMessage(book.StockQuantity, book.DisplayTitle()))
		return err
	}
	if err != nil {
		return err
	}
	notify.Success(s.notifier, fmt.Sprintf("%s added to cart", book.DisplayTitle()))
	return nil
}

// SetQuantity 设置数量，q < 1 等同于移除
func (s *Store) SetQuantity(ctx context.Context, bookID string, quantity int) error {
	if quantity < 1 {
		return s.RemoveItem(ctx, bookID)
	}

	var rejected models.CartLineItem
	err := s.mutate(ctx, func(items []models.CartLineItem) ([]models.CartLineItem, error) {
		idx := indexOf(items, bookID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, bookID)
		}
		if quantity > items[idx].StockCeiling {
			rejected = items[idx]
			return nil, stockError(quantity, items[idx].StockCeiling)
		}
		items[idx].Quantity = quantity
		return items, nil
	})
	if errors.Is(err, ErrStockExceeded) {
		notify.Error(s.notifier, availabilityMessage(rejected.StockCeiling, lineTitle(rejected)))
	}
	return err
}

// RemoveItem 移除行项目，不存在时忽略
func (s *Store) RemoveItem(ctx context.Context, bookID string) error {
	var removed *models.CartLineItem
	err := s.mutate(ctx, func(items []models.CartLineItem) ([]models.CartLineItem, error) {
		idx := indexOf(items, bookID)
		if idx < 0 {
			return nil, errNoop
		}
		item := items[idx]
		removed = &item
		return append(items[:idx], items[idx+1:]...), nil
	})
	if errors.Is(err, errNoop) {
		return nil
	}
	if err != nil {
		return err
	}
	notify.Success(s.notifier, fmt.Sprintf("%s removed from cart", lineTitle(*removed)))
	return nil
}

// Clear 清空购物车并提示一次
func (s *Store) Clear(ctx context.Context) error {
	if err := s.ClearSilently(ctx); err != nil {
		return err
	}
	notify.Success(s.notifier, "Cart cleared")
	return nil
}

// ClearSilently 清空购物车（下单支付完成后使用，不提示）
func (s *Store) ClearSilently(ctx context.Context) error {
	return s.mutate(ctx, func([]models.CartLineItem) ([]models.CartLineItem, error) {
		return []models.CartLineItem{}, nil
	})
}

// RefreshStock 按最新图书记录刷新库存上限；超出新上限的行被下调（上限为 0 时移除）
func (s *Store) RefreshStock(ctx context.Context, books []models.Book) ([]StockAdjustment, error) {
	fresh := make(map[string]models.Book, len(books))
	for _, book := range books {
		if book.ID != "" {
			fresh[book.ID] = book
		}
	}

	var adjustments []StockAdjustment
	err := s.mutate(ctx, func(items []models.CartLineItem) ([]models.CartLineItem, error) {
		adjustments = nil
		next := items[:0]
		for _, item := range items {
			book, ok := fresh[item.BookID]
			if !ok {
				next = append(next, item)
				continue
			}
			item.StockCeiling = book.StockQuantity
			if item.Quantity > item.StockCeiling {
				adjustments = append(adjustments, StockAdjustment{
					BookID:    item.BookID,
					Title:     lineTitle(item),
					Requested: item.Quantity,
					Available: item.StockCeiling,
				})
				item.Quantity = item.StockCeiling
			}
			if item.Quantity < 1 {
				continue
			}
			next = append(next, item)
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	for _, adj := range adjustments {
		notify.Error(s.notifier, availabilityMessage(adj.Available, adj.Title))
	}
	return adjustments, nil
}

var errNoop = errors.New("cart: no change")

func stockError(requested, available int) error {
	return fmt.Errorf("%w: requested %d, available %d", ErrStockExceeded, requested, available)
}

func availabilityMessage(available int, title string) string {
	if available <= 0 {
		return fmt.Sprintf("%s is out of stock", title)
	}
	return fmt.Sprintf("Only %d copies of %s available", available, title)
}

func lineTitle(item models.CartLineItem) string {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return "Item"
	}
	return title
}
