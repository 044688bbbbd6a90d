package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/campusbooks/storefront/internal/constants"
	"github.com/campusbooks/storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddItemNewLineAnnounces(t *testing.T) {
	store, _, rec := newTestStore(t)
	require.NoError(t, store.AddItem(context.Background(), book("b1", "Linear Algebra", "1800", 4), 0))

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, 4, items[0].StockCeiling)
	all := rec.All()
	require.Len(t, all, 1)
	assert.Equal(t, constants.NotifyLevelSuccess, all[0].Level)
	assert.Equal(t, "Linear Algebra added to cart", all[0].Message)
}

func TestAddItemRejectsNewLineOverStock(t *testing.T) {
	store, _, rec := newTestStore(t)
	err := store.AddItem(context.Background(), book("b1", "Linear Algebra", "1800", 2), 3)
	require.ErrorIs(t, err, ErrStockExceeded)
	assert.Empty(t, store.Items())
	assert.Equal(t, 1, rec.Count(constants.NotifyLevelError))
	assert.Equal(t, "Only 2 copies of Linear Algebra available", rec.All()[0].Message)
}

func TestAddSameBookTwiceOverCeilingKeepsPriorState(t *testing.T) {
	store, _, rec := newTestStore(t)
	ctx := context.Background()
	b := book("b1", "Organic Chemistry", "4200", 3)

	require.NoError(t, store.AddItem(ctx, b, 2))
	before := store.Items()
	rec.Reset()

	err := store.AddItem(ctx, b, 2)
	require.ErrorIs(t, err, ErrStockExceeded)
	assert.Equal(t, before, store.Items())
	assert.Equal(t, 1, rec.Count(constants.NotifyLevelError))
	assert.Len(t, rec.All(), 1)
}

func TestAddItemRefreshesCeilingFromFreshBook(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, book("b1", "Economics", "900", 2), 1))
	require.NoError(t, store.AddItem(ctx, book("b1", "Economics", "950", 6), 1))

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 6, items[0].StockCeiling)
	assert.Equal(t, "900.00", items[0].Price.String())
}

func TestAddItemRejectsBookWithoutID(t *testing.T) {
	store, _, _ := newTestStore(t)
	err := store.AddItem(context.Background(), models.Book{Title: "Ghost"}, 1)
	assert.ErrorIs(t, err, ErrInvalidBook)
}

func TestSetQuantityBelowOneRemoves(t *testing.T) {
	store, _, rec := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, book("b1", "Biology", "700", 3), 2))
	rec.Reset()

	require.NoError(t, store.SetQuantity(ctx, "b1", 0))
	assert.Empty(t, store.Items())
	require.Len(t, rec.All(), 1)
	assert.Equal(t, "Biology removed from cart", rec.All()[0].Message)
}

func TestSetQuantityOverCeilingRejects(t *testing.T) {
	store, _, rec := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, book("b1", "Biology", "700", 3), 2))
	rec.Reset()

	err := store.SetQuantity(ctx, "b1", 4)
	require.ErrorIs(t, err, ErrStockExceeded)
	assert.Equal(t, 2, store.Items()[0].Quantity)
	require.Len(t, rec.All(), 1)
	assert.Equal(t, "Only 3 copies of Biology available", rec.All()[0].Message)
}

func TestSetQuantityValidIsSilent(t *testing.T) {
	store, _, rec := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, book("b1", "Biology", "700", 3), 1))
	rec.Reset()

	require.NoError(t, store.SetQuantity(ctx, "b1", 3))
	assert.Equal(t, 3, store.ItemCount())
	assert.Empty(t, rec.All())
}

func TestSetQuantityUnknownItem(t *testing.T) {
	store, _, rec := newTestStore(t)
	err := store.SetQuantity(context.Background(), "missing", 2)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Empty(t, rec.All())
}

func TestRemoveMissingItemIsNoop(t *testing.T) {
	store, storage, rec := newTestStore(t)
	require.NoError(t, store.RemoveItem(context.Background(), "missing"))
	assert.Empty(t, rec.All())
	assert.Zero(t, storage.writes)
}

func TestClearAnnouncesOnceAndClearSilentlyDoesNot(t *testing.T) {
	store, _, rec := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, book("b1", "History", "500", 3), 1))
	rec.Reset()

	require.NoError(t, store.Clear(ctx))
	require.Len(t, rec.All(), 1)
	assert.Equal(t, "Cart cleared", rec.All()[0].Message)

	require.NoError(t, store.AddItem(ctx, book("b1", "History", "500", 3), 1))
	rec.Reset()
	require.NoError(t, store.ClearSilently(ctx))
	assert.Empty(t, rec.All())
	assert.True(t, store.IsEmpty())
}

func TestRefreshStockClampsAndReports(t *testing.T) {
	store, _, rec := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, book("b1", "Art", "300", 5), 4))
	require.NoError(t, store.AddItem(ctx, book("b2", "Music", "300", 5), 2))
	require.NoError(t, store.AddItem(ctx, book("b3", "Drama", "300", 5), 1))
	rec.Reset()

	adjustments, err := store.RefreshStock(ctx, []models.Book{
		book("b1", "Art", "300", 2),
		book("b2", "Music", "300", 0),
		book("b3", "Drama", "300", 9),
	})
	require.NoError(t, err)
	require.Len(t, adjustments, 2)
	assert.Equal(t, StockAdjustment{BookID: "b1", Title: "Art", Requested: 4, Available: 2}, adjustments[0])

	items := store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "b3", items[1].BookID)
	assert.Equal(t, 9, items[1].StockCeiling)
	assert.Equal(t, 2, rec.Count(constants.NotifyLevelError))
}

func TestConcurrentIncrementsNeverExceedCeiling(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	b := book("b1", "Philosophy", "650", 5)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.AddItem(ctx, b, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, store.ItemCount())
}
