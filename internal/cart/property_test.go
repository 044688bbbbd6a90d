package cart

import (
	"context"
	"testing"

	"github.com/campusbooks/storefront/internal/models"
	"github.com/campusbooks/storefront/internal/notify"

	"pgregory.net/rapid"
)

var propertyCatalog = []models.Book{
	{ID: "b1", Title: "Algorithms", Price: models.MustMoney("3500"), StockQuantity: 3},
	{ID: "b2", Title: "Networks", Price: models.MustMoney("1250.50"), StockQuantity: 1},
	{ID: "b3", Title: "Databases", Price: models.MustMoney("990"), StockQuantity: 7},
	{ID: "b4", Title: "Sold Out", Price: models.MustMoney("100"), StockQuantity: 0},
}

func TestCartQuantityBoundsHoldForAnySequence(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		storage := newMemoryStorage()
		store := NewStore(storage, &notify.Recorder{}, Options{})
		store.Hydrate(ctx)

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			b := rapid.SampledFrom(propertyCatalog).Draw(rt, "book")
			qty := rapid.IntRange(-2, 9).Draw(rt, "qty")
			if rapid.Bool().Draw(rt, "add") {
				_ = store.AddItem(ctx, b, qty)
			} else {
				_ = store.SetQuantity(ctx, b.ID, qty)
			}

			expected := models.NewMoneyFromInt(0)
			for _, item := range store.Items() {
				if item.Quantity < 1 || item.Quantity > item.StockCeiling {
					rt.Fatalf("quantity out of bounds for %s: quantity=%d ceiling=%d", item.BookID, item.Quantity, item.StockCeiling)
				}
				expected = expected.Add(item.Price.Times(item.Quantity))
			}
			if !store.Total().Equal(expected.Decimal) {
				rt.Fatalf("total mismatch: got=%s expected=%s", store.Total(), expected)
			}
		}

		reloaded := NewStore(storage, nil, Options{})
		reloaded.Hydrate(ctx)
		if len(reloaded.Items()) != len(store.Items()) {
			rt.Fatalf("reload mismatch: got=%d expected=%d", len(reloaded.Items()), len(store.Items()))
		}
	})
}
