package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/campusbooks/storefront/internal/constants"
	"github.com/campusbooks/storefront/internal/models"
	"github.com/campusbooks/storefront/internal/notify"
	"github.com/campusbooks/storefront/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memoryStorage struct {
	mu      sync.Mutex
	data    map[string]string
	failSet error
	failGet error
	writes  int
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{data: make(map[string]string)}
}

func (m *memoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return "", false, m.failGet
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.writes++
	m.data[key] = value
	return nil
}

func newTestStore(t *testing.T) (*Store, *memoryStorage, *notify.Recorder) {
	t.Helper()
	storage := newMemoryStorage()
	rec := &notify.Recorder{}
	store := NewStore(storage, rec, Options{})
	store.Hydrate(context.Background())
	return store, storage, rec
}

func book(id, title string, price string, stock int) models.Book {
	return models.Book{ID: id, Title: title, Price: models.MustMoney(price), StockQuantity: stock}
}

func TestHydrateMissingKeyYieldsEmptyStore(t *testing.T) {
	store, _, _ := newTestStore(t)
	assert.Empty(t, store.Items())
	assert.Equal(t, "0.00", store.Total().String())
}

func TestHydrateMalformedJSONYieldsEmptyStore(t *testing.T) {
	storage := newMemoryStorage()
	storage.data[constants.StorageKeyCartItems] = "{not json"
	store := NewStore(storage, nil, Options{})
	store.Hydrate(context.Background())
	assert.Empty(t, store.Items())
}

func TestHydrateReadFailureYieldsEmptyStore(t *testing.T) {
	storage := newMemoryStorage()
	storage.failGet = errors.New("disk gone")
	store := NewStore(storage, nil, Options{})
	store.Hydrate(context.Background())
	assert.Equal(t, 0, store.ItemCount())
}

func TestHydrateDropsInvalidAndDuplicateItems(t *testing.T) {
	storage := newMemoryStorage()
	storage.data[constants.StorageKeyCartItems] = `[
		{"book_id":"b1","title":"Calculus","price":"1200.00","quantity":2,"stock_ceiling":5},
		{"book_id":"b2","title":"Zero","price":"100.00","quantity":0,"stock_ceiling":5},
		{"book_id":"b3","title":"Over","price":"100.00","quantity":9,"stock_ceiling":2},
		{"book_id":"","title":"NoID","price":"100.00","quantity":1,"stock_ceiling":2},
		{"book_id":"b1","title":"Calculus","price":"1200.00","quantity":1,"stock_ceiling":5}
	]`
	store := NewStore(storage, nil, Options{})
	store.Hydrate(context.Background())

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "b1", items[0].BookID)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestClearThenHydrateRoundTripsEmpty(t *testing.T) {
	store, storage, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, book("b1", "Physics", "2500", 3), 2))
	require.NoError(t, store.Clear(ctx))
	assert.Equal(t, "[]", storage.data[constants.StorageKeyCartItems])

	reloaded := NewStore(storage, nil, Options{})
	reloaded.Hydrate(ctx)
	assert.Empty(t, reloaded.Items())
}

func TestMutationPersistsFullArray(t *testing.T) {
	store, storage, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, book("b1", "Physics", "2500", 3), 1))
	require.NoError(t, store.AddItem(ctx, book("b2", "Chemistry", "1500", 3), 2))

	reloaded := NewStore(storage, nil, Options{})
	reloaded.Hydrate(ctx)
	items := reloaded.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "b1", items[0].BookID)
	assert.Equal(t, "b2", items[1].BookID)
	assert.Equal(t, 2, items[1].Quantity)
	assert.Equal(t, "5500.00", reloaded.Total().String())
}

func TestPersistFailureRollsBack(t *testing.T) {
	store, storage, rec := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, book("b1", "Physics", "2500", 3), 1))
	rec.Reset()

	storage.failSet = errors.New("write failed")
	err := store.AddItem(ctx, book("b1", "Physics", "2500", 3), 1)
	require.Error(t, err)
	assert.Equal(t, 1, store.ItemCount())
	assert.Empty(t, rec.All())
}

func TestTotalIsRecomputedAfterEveryMutation(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, book("b1", "Physics", "2500", 5), 2))
	assert.Equal(t, "5000.00", store.Total().String())
	require.NoError(t, store.SetQuantity(ctx, "b1", 3))
	assert.Equal(t, "7500.00", store.Total().String())
	require.NoError(t, store.RemoveItem(ctx, "b1"))
	assert.Equal(t, "0.00", store.Total().String())
}

func TestSubscribersReceiveSnapshots(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	var got []Snapshot
	unsubscribe := store.Subscribe(func(s Snapshot) { got = append(got, s) })
	require.NoError(t, store.AddItem(ctx, book("b1", "Physics", "2500", 5), 2))
	store.Toggle()
	unsubscribe()
	require.NoError(t, store.Clear(ctx))

	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].ItemCount)
	assert.False(t, got[0].IsOpen)
	assert.True(t, got[1].IsOpen)
}

func TestDisposeDropsSubscribers(t *testing.T) {
	store, _, _ := newTestStore(t)
	calls := 0
	store.Subscribe(func(Snapshot) { calls++ })
	store.Dispose()
	store.SetOpen(true)
	assert.Zero(t, calls)
	assert.True(t, store.IsOpen())
}

func TestOpenFlagIsNotPersisted(t *testing.T) {
	store, storage, _ := newTestStore(t)
	store.Toggle()
	assert.Zero(t, storage.writes)
}

func TestStoreOnSQLiteRepository(t *testing.T) {
	dsn := fmt.Sprintf("file:cart_store_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	repo := repository.NewLocalStorageRepository(db)
	ctx := context.Background()

	store := NewStore(repo, nil, Options{})
	store.Hydrate(ctx)
	require.NoError(t, store.AddItem(ctx, book("b9", "Statistics", "3100.50", 4), 2))

	reloaded := NewStore(repo, nil, Options{})
	reloaded.Hydrate(ctx)
	require.Len(t, reloaded.Items(), 1)
	assert.Equal(t, "6201.00", reloaded.Total().String())
}
