package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/campusbooks/storefront/internal/backend"
	"github.com/campusbooks/storefront/internal/cache"
	"github.com/campusbooks/storefront/internal/cart"
	"github.com/campusbooks/storefront/internal/constants"
	"github.com/campusbooks/storefront/internal/models"
	"github.com/campusbooks/storefront/internal/notify"
	"github.com/campusbooks/storefront/internal/payment"
	"github.com/campusbooks/storefront/internal/payment/flutterwave"
	"github.com/campusbooks/storefront/internal/payment/paystack"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kvStorage struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *kvStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *kvStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

type staticAuth bool

func (a staticAuth) IsAuthenticated() bool { return bool(a) }

type fakeBackend struct {
	mu        sync.Mutex
	books     map[string]models.Book
	created   []models.CreateOrderRequest
	createErr error
	initURL   string
	initRef   string
	verify    *backend.VerifyResult
	verifyErr error
	verified  []string
}

func (f *fakeBackend) CreateOrder(_ context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	return &models.Order{
		ID:             fmt.Sprintf("ord-%d", len(f.created)),
		TotalAmount:    req.TotalAmount,
		DeliveryOption: req.DeliveryOption,
		PaymentMethod:  req.PaymentMethod,
		Status:         constants.OrderStatusPending,
	}, nil
}

func (f *fakeBackend) GetBook(_ context.Context, id string) (*models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[id]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return &b, nil
}

func (f *fakeBackend) InitializePayment(_ context.Context, orderID, method string) (*backend.PaymentInit, error) {
	return &backend.PaymentInit{AuthorizationURL: f.initURL, Reference: f.initRef}, nil
}

func (f *fakeBackend) VerifyPayment(_ context.Context, reference, provider string) (*backend.VerifyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, reference)
	return f.verify, f.verifyErr
}

// autoPopup 打开弹窗后立即回调固定结果
type autoPopup struct {
	result payment.Result
	opened []paystack.PopupRequest
}

func (p *autoPopup) Open(_ context.Context, req paystack.PopupRequest, attempt *payment.Attempt) error {
	p.opened = append(p.opened, req)
	result := p.result
	if result.Success && result.Reference == "" {
		result.Reference = attempt.Reference
	}
	go attempt.Resolve(result)
	return nil
}

type recordingNavigator struct {
	targets []string
	err     error
}

func (n *recordingNavigator) Navigate(_ context.Context, target string) error {
	if n.err != nil {
		return n.err
	}
	n.targets = append(n.targets, target)
	return nil
}

type fixture struct {
	orch    *Orchestrator
	cart    *cart.Store
	backend *fakeBackend
	popup   *autoPopup
	nav     *recordingNavigator
	session *cache.MemorySessionStore
	notes   *notify.Recorder
	auth    staticAuth
}

func newFixture(t *testing.T, authenticated bool) *fixture {
	t.Helper()
	ctx := context.Background()
	notes := &notify.Recorder{}
	store := cart.NewStore(&kvStorage{data: map[string]string{}}, notes, cart.Options{})
	store.Hydrate(ctx)

	fb := &fakeBackend{
		books:   map[string]models.Book{},
		initURL: "https://checkout.flutterwave.com/v3/hosted/pay/abc",
		initRef: "FLW-REF-1",
		verify:  &backend.VerifyResult{Status: constants.PaymentVerifySuccess},
	}
	popup := &autoPopup{result: payment.Succeeded("")}

	f := &fixture{
		cart:    store,
		backend: fb,
		popup:   popup,
		nav:     &recordingNavigator{},
		session: cache.NewMemorySessionStore(16, time.Hour),
		notes:   notes,
		auth:    staticAuth(authenticated),
	}
	f.orch = f.build(t, popup)
	return f
}

// build 以指定弹窗承载组装结算流程
func (f *fixture) build(t *testing.T, surface payment.PopupSurface) *Orchestrator {
	t.Helper()
	psGateway, err := payment.NewPaystackGateway(&paystack.Config{PublicKey: "pk_test_123", Currency: "NGN"}, surface)
	require.NoError(t, err)
	flwGateway, err := payment.NewFlutterwaveGateway(&flutterwave.Config{RedirectURL: "http://localhost:8090/return"}, f.backend)
	require.NoError(t, err)
	return New(Deps{
		Cart:         f.cart,
		Auth:         f.auth,
		Backend:      f.backend,
		Payments:     payment.NewClient(f.backend, psGateway, flwGateway),
		Session:      f.session,
		Navigator:    f.nav,
		Notifier:     f.notes,
		ShippingFee:  models.NewMoneyFromInt(500),
		PendingTTL:   time.Minute,
		RefreshStock: true,
	})
}

func (f *fixture) addBook(t *testing.T, id, price string, stock, qty int) {
	t.Helper()
	b := models.Book{ID: id, Title: "Book " + id, Price: models.MustMoney(price), StockQuantity: stock}
	f.backend.books[id] = b
	require.NoError(t, f.cart.AddItem(context.Background(), b, qty))
}

func details(method, option string) Details {
	d := Details{
		DeliveryOption: option,
		PaymentMethod:  method,
		ContactName:    "Ada Obi",
		ContactEmail:   "ada@student.example.edu",
	}
	if option == constants.DeliveryOptionDelivery {
		d.DeliveryAddress = "Hall 3, Room 12"
	}
	return d
}

func TestBeginRedirectsUnauthenticatedToLogin(t *testing.T) {
	f := newFixture(t, false)
	err := f.orch.Begin(context.Background(), "/checkout")
	var redirect *RedirectError
	require.True(t, errors.As(err, &redirect))
	assert.Equal(t, constants.PathLogin, redirect.Path)
	assert.Equal(t, "/checkout", redirect.ReturnTo)
}

func TestBeginRedirectsEmptyCartToCart(t *testing.T) {
	f := newFixture(t, true)
	err := f.orch.Begin(context.Background(), "/checkout")
	var redirect *RedirectError
	require.True(t, errors.As(err, &redirect))
	assert.Equal(t, constants.PathCart, redirect.Path)
}

func TestBeginRedirectsWhenStockShrank(t *testing.T) {
	f := newFixture(t, true)
	f.addBook(t, "b1", "2500", 5, 4)
	shrunk := f.backend.books["b1"]
	shrunk.StockQuantity = 2
	f.backend.books["b1"] = shrunk

	err := f.orch.Begin(context.Background(), "/checkout")
	var redirect *RedirectError
	require.True(t, errors.As(err, &redirect))
	assert.Equal(t, constants.PathCart, redirect.Path)
	assert.Equal(t, 2, f.cart.Items()[0].Quantity)
}

func TestSubmitDetailsRequiresBegin(t *testing.T) {
	f := newFixture(t, true)
	f.addBook(t, "b1", "2500", 5, 2)
	_, err := f.orch.SubmitDetails(context.Background(), details("paystack", "pickup"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSubmitDetailsAddsShippingForDelivery(t *testing.T) {
	f := newFixture(t, true)
	f.addBook(t, "b1", "2500", 5, 2)
	require.NoError(t, f.orch.Begin(context.Background(), "/checkout"))

	order, err := f.orch.SubmitDetails(context.Background(), details("paystack", "delivery"))
	require.NoError(t, err)
	assert.Equal(t, "5500.00", order.TotalAmount.String())
	assert.Equal(t, StatePayment, f.orch.State())

	req := f.backend.created[0]
	assert.Equal(t, "5500.00", req.TotalAmount.String())
	assert.Equal(t, "Hall 3, Room 12", req.DeliveryAddress)
	require.Len(t, req.Items, 1)
	assert.Equal(t, 2, req.Items[0].Quantity)
	assert.Equal(t, "2500.00", req.Items[0].Price.String())
}

func TestSubmitDetailsPickupHasNoShipping(t *testing.T) {
	f := newFixture(t, true)
	f.addBook(t, "b1", "2500", 5, 2)
	require.NoError(t, f.orch.Begin(context.Background(), "/checkout"))

	order, err := f.orch.SubmitDetails(context.Background(), details("paystack", "pickup"))
	require.NoError(t, err)
	assert.Equal(t, "5000.00", order.TotalAmount.String())
}

func TestSubmitDetailsValidation(t *testing.T) {
	f := newFixture(t, true)
	f.addBook(t, "b1", "2500", 5, 1)
	require.NoError(t, f.orch.Begin(context.Background(), "/checkout"))

	bad := details("paystack", "delivery")
	bad.DeliveryAddress = ""
	_, err := f.orch.SubmitDetails(context.Background(), bad)
	assert.ErrorIs(t, err, ErrDetailsInvalid)

	_, err = f.orch.SubmitDetails(context.Background(), details("stripe", "pickup"))
	assert.ErrorIs(t, err, ErrDetailsInvalid)

	noEmail := details("paystack", "pickup")
	noEmail.ContactEmail = "not-an-email"
	_, err = f.orch.SubmitDetails(context.Background(), noEmail)
	assert.ErrorIs(t, err, ErrDetailsInvalid)
	assert.Equal(t, StateDetails, f.orch.State())
}

func TestSubmitDetailsFailureKeepsCart(t *testing.T) {
	f := newFixture(t, true)
	f.addBook(t, "b1", "2500", 5, 1)
	require.NoError(t, f.orch.Begin(context.Background(), "/checkout"))
	f.backend.createErr = backend.ErrTimeout

	_, err := f.orch.SubmitDetails(context.Background(), details("paystack", "pickup"))
	assert.ErrorIs(t, err, backend.ErrTimeout)
	assert.Equal(t, StateDetails, f.orch.State())
	assert.False(t, f.cart.IsEmpty())
	assert.Equal(t, 1, f.notes.Count(constants.NotifyLevelError))
}

func TestBackKeepsDetails(t *testing.T) {
	f := newFixture(t, true)
	f.addBook(t, "b1", "2500", 5, 1)
	require.NoError(t, f.orch.Begin(context.Background(), "/checkout"))
	assert.ErrorIs(t, f.orch.Back(), ErrInvalidTransition)

	_, err := f.orch.SubmitDetails(context.Background(), details("paystack", "pickup"))
	require.NoError(t, err)
	require.NoError(t, f.orch.Back())
	assert.Equal(t, StateDetails, f.orch.State())
	assert.Equal(t, "Ada Obi", f.orch.Details().ContactName)
}

func TestResubmitUnchangedDetailsReusesOrder(t *testing.T) {
	f := newFixture(t, true)
	f.addBook(t, "b1", "2500", 5, 1)
	ctx := context.Background()
	require.NoError(t, f.orch.Begin(ctx, "/checkout"))

	first, err := f.orch.SubmitDetails(ctx, details("paystack", "pickup"))
	require.NoError(t, err)
	require.NoError(t, f.orch.Back())
	second, err := f.orch.SubmitDetails(ctx, details("paystack", "pickup"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.backend.created, 1)
	assert.Equal(t, StatePayment, f.orch.State())
}

func TestResubmitChangedDetailsReplacesOrder(t *testing.T) {
	f := newFixture(t, true)
	f.addBook(t, "b1", "2500", 5, 1)
	ctx := context.Background()
	require.NoError(t, f.orch.Begin(ctx, "/checkout"))

	first, err := f.orch.SubmitDetails(ctx, details("paystack", "pickup"))
	require.NoError(t, err)
	require.NoError(t, f.orch.Back())
	second, err := f.orch.SubmitDetails(ctx, details("paystack", "delivery"))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, f.backend.created, 2)
	assert.Equal(t, second.ID, f.orch.Order().ID)
	assert.Equal(t, "3000.00", second.TotalAmount.String())
	assert.Equal(t, 1, f.notes.Count(constants.NotifyLevelInfo))
}

func TestPayInlineExpiredWindowReleasesPopup(t *testing.T) {
	f := newFixture(t, true)
	registry := payment.NewPopupRegistry()
	f.orch = f.build(t, registry)
	f.addBook(t, "b1", "2500", 5, 1)
	ctx := context.Background()
	require.NoError(t, f.orch.Begin(ctx, "/checkout"))
	order, err := f.orch.SubmitDetails(ctx, details("paystack", "pickup"))
	require.NoError(t, err)

	payCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = f.orch.Pay(payCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, registry.Len())
	assert.Equal(t, StatePayment, f.orch.State())

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Pay(ctx)
		done <- err
	}()
	openCtx, openCancel := context.WithTimeout(ctx, time.Second)
	defer openCancel()
	req, err := registry.AwaitOpen(openCtx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, registry.Len())

	_, err = registry.Report(req.Reference, map[string]interface{}{"status": "success", "reference": req.Reference})
	require.NoError(t, err)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("retried payment did not finish")
	}
	assert.Equal(t, StateConfirmation, f.orch.State())
	assert.Equal(t, []string{req.Reference}, f.backend.verified)
}

func TestPayInlineSuccessClearsCartAndConfirms(t *testing.T) {
	f := newFixture(t, true)
	f.addBook(t, "b1", "2500", 5, 2)
	ctx := context.Background()
	require.NoError(t, f.orch.Begin(ctx, "/checkout"))
	_, err := f.orch.SubmitDetails(ctx, details("paystack", "delivery"))
	require.NoError(t, err)
	f.backend.verify = &backend.VerifyResult{
		Status: constants.PaymentVerifySuccess,
		Order:  &models.Order{ID: "ord-1", Status: constants.OrderStatusPaid, TotalAmount: models.MustMoney("5500")},
	}

	outcome, err := f.orch.Pay(ctx)
	require.NoError(t, err)
	assert.Equal(t, payment.ModeInline, outcome.Mode)
	assert.True(t, f.cart.IsEmpty())
	assert.Equal(t, StateConfirmation, f.orch.State())
	require.Len(t, f.popup.opened, 1)
	assert.Equal(t, int64(550000), f.popup.opened[0].Amount)

	conf, err := f.orch.Confirmation()
	require.NoError(t, err)
	assert.Equal(t, "ord-1", conf.OrderID)
	assert.Equal(t, "5500.00", conf.Total.String())
	assert.Equal(t, constants.OrderStatusPaid, conf.Status)
}

func TestPayInlineVerificationFailureLeavesState(t *testing.T) {
	f := newFixture(t, true)
	f.addBook(t, "b1", "2500", 5, 2)
	ctx := context.Background()
	require.NoError(t, f.orch.Begin(ctx, "/checkout"))
	_, err := f.orch.SubmitDetails(ctx, details("paystack", "pickup"))
	require.NoError(t, err)
	f.backend.verify = &backend.VerifyResult{Status: constants.PaymentVerifyFailed}

	_, err = f.orch.Pay(ctx)
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.False(t, f.cart.IsEmpty())
	assert.Equal(t, StatePayment, f.orch.State())
	assert.Equal(t, constants.OrderStatusPending, f.orch.Order().Status)
	_, err = f.orch.Confirmation()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPayInlineCancelIsProviderError(t *testing.T) {
	f := newFixture(t, true)
	f.addBook(t, "b1", "2500", 5, 1)
	f.popup.result = payment.Cancelled()
	ctx := context.Background()
	require.NoError(t, f.orch.Begin(ctx, "/checkout"))
	_, err := f.orch.SubmitDetails(ctx, details("paystack", "pickup"))
	require.NoError(t, err)

	_, err = f.orch.Pay(ctx)
	var perr *payment.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.Cancelled)
	assert.NotErrorIs(t, err, ErrVerificationFailed)
	assert.Empty(t, f.backend.verified)
	assert.False(t, f.cart.IsEmpty())
}

func TestPayRedirectPersistsPendingOrderThenClearsCart(t *testing.T) {
	f := newFixture(t, true)
	f.addBook(t, "b1", "2500", 5, 1)
	ctx := context.Background()
	require.NoError(t, f.orch.Begin(ctx, "/checkout"))
	_, err := f.orch.SubmitDetails(ctx, details("flutterwave", "pickup"))
	require.NoError(t, err)

	outcome, err := f.orch.Pay(ctx)
	require.NoError(t, err)
	assert.Equal(t, payment.ModeRedirect, outcome.Mode)
	assert.Equal(t, f.backend.initURL, outcome.RedirectURL)
	assert.Equal(t, []string{f.backend.initURL}, f.nav.targets)
	assert.True(t, f.cart.IsEmpty())
	assert.Equal(t, StatePayment, f.orch.State())

	orderID, ok, err := f.session.Get(ctx, cache.PendingOrderKey("FLW-REF-1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ord-1", orderID)
}

func TestPayRedirectNavigationFailureKeepsCart(t *testing.T) {
	f := newFixture(t, true)
	f.addBook(t, "b1", "2500", 5, 1)
	f.nav.err = errors.New("view closed")
	ctx := context.Background()
	require.NoError(t, f.orch.Begin(ctx, "/checkout"))
	_, err := f.orch.SubmitDetails(ctx, details("flutterwave", "pickup"))
	require.NoError(t, err)

	_, err = f.orch.Pay(ctx)
	assert.Error(t, err)
	assert.False(t, f.cart.IsEmpty())
}

func TestResumeRedirectVerifiesAndDropsPendingOrder(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	require.NoError(t, f.session.Set(ctx, cache.PendingOrderKey("FLW-REF-1"), "ord-9", time.Minute))

	query := url.Values{"status": {"successful"}, "tx_ref": {"FLW-REF-1"}, "transaction_id": {"777"}}
	res, err := f.orch.ResumeRedirect(ctx, payment.ProviderFlutterwave, query)
	require.NoError(t, err)
	assert.Equal(t, "ord-9", res.OrderID)
	assert.Equal(t, constants.PaymentVerifySuccess, res.Status)
	assert.Equal(t, []string{"FLW-REF-1"}, f.backend.verified)

	_, ok, err := f.session.Get(ctx, cache.PendingOrderKey("FLW-REF-1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResumeRedirectCancelledSkipsVerification(t *testing.T) {
	f := newFixture(t, true)
	query := url.Values{"status": {"cancelled"}, "tx_ref": {"FLW-REF-1"}}
	_, err := f.orch.ResumeRedirect(context.Background(), payment.ProviderFlutterwave, query)
	var perr *payment.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.Cancelled)
	assert.Empty(t, f.backend.verified)
}

func TestResumeRedirectWithoutPendingOrder(t *testing.T) {
	f := newFixture(t, true)
	query := url.Values{"status": {"successful"}, "tx_ref": {"FLW-UNKNOWN"}}
	_, err := f.orch.ResumeRedirect(context.Background(), payment.ProviderFlutterwave, query)
	assert.ErrorIs(t, err, ErrNoPendingOrder)
}

func TestGrandTotal(t *testing.T) {
	fee := models.NewMoneyFromInt(500)
	assert.Equal(t, "5500.00", GrandTotal(models.MustMoney("5000"), "delivery", fee).String())
	assert.Equal(t, "5000.00", GrandTotal(models.MustMoney("5000"), "pickup", fee).String())
}
