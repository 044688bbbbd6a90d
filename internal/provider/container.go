package provider

import (
	"context"
	"fmt"

	"github.com/campusbooks/storefront/internal/auth"
	"github.com/campusbooks/storefront/internal/authz"
	"github.com/campusbooks/storefront/internal/backend"
	"github.com/campusbooks/storefront/internal/cache"
	"github.com/campusbooks/storefront/internal/cart"
	"github.com/campusbooks/storefront/internal/checkout"
	"github.com/campusbooks/storefront/internal/config"
	"github.com/campusbooks/storefront/internal/logger"
	"github.com/campusbooks/storefront/internal/models"
	"github.com/campusbooks/storefront/internal/notify"
	"github.com/campusbooks/storefront/internal/payment"
	"github.com/campusbooks/storefront/internal/payment/flutterwave"
	"github.com/campusbooks/storefront/internal/payment/paystack"
	"github.com/campusbooks/storefront/internal/poller"
	"github.com/campusbooks/storefront/internal/repository"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config *config.Config
	DB     *gorm.DB

	// Storage
	StorageRepo  repository.LocalStorageRepository
	SessionStore cache.SessionStore
	RedisClient  *redis.Client

	// Domain
	Session       *auth.Session
	Backend       *backend.Client
	Notifications *notify.Hub
	Notifier      notify.Notifier
	Cart          *cart.Store
	Popups        *payment.PopupRegistry
	Payments      *payment.Client
	Poller        *poller.Poller
	AuthzService  *authz.Service
}

// NewContainer 初始化容器，db 为已迁移的本地存储
func NewContainer(ctx context.Context, cfg *config.Config, db *gorm.DB) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if db == nil {
		db = models.DB
	}
	if db == nil {
		return nil, fmt.Errorf("storage not initialized")
	}
	c := &Container{Config: cfg, DB: db}

	c.initStorage()
	c.initSession(ctx)
	c.initBackend()
	c.initCart(ctx)
	if err := c.initPayments(); err != nil {
		return nil, err
	}
	c.Poller = poller.New(c.Backend, c.Notifier, c.Session, poller.Options{Interval: cfg.Poller.Interval()})
	if err := c.initAuthz(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initStorage() {
	c.StorageRepo = repository.NewLocalStorageRepository(c.DB)
	c.RedisClient = cache.NewRedisClient(&c.Config.Redis)
	if c.RedisClient != nil {
		c.SessionStore = cache.NewRedisSessionStore(c.RedisClient, c.Config.Redis.Prefix)
		return
	}
	c.SessionStore = cache.NewSessionStore(&c.Config.Redis, c.Config.Checkout.PendingOrderTTL())
}

func (c *Container) initSession(ctx context.Context) {
	c.Notifications = notify.NewHub()
	c.Notifier = notify.Multi{c.Notifications, notify.LogNotifier{}}
	c.Session = auth.NewSession(c.StorageRepo)
	c.Session.Load(ctx)
}

func (c *Container) initBackend() {
	c.Backend = backend.New(backend.Options{
		BaseURL: c.Config.Backend.BaseURL,
		Timeout: c.Config.Backend.Timeout(),
		Tokens:  c.Session,
		OnUnauthorized: func() {
			notify.Error(c.Notifier, "Your session has expired, please log in again")
		},
	})
}

func (c *Container) initCart(ctx context.Context) {
	c.Cart = cart.NewStore(c.StorageRepo, c.Notifier, cart.Options{})
	c.Cart.Hydrate(ctx)
}

func (c *Container) initPayments() error {
	c.Popups = payment.NewPopupRegistry()
	var gateways []payment.Gateway

	psCfg := &paystack.Config{
		PublicKey: c.Config.Payment.Paystack.PublicKey,
		Currency:  c.Config.Payment.Paystack.Currency,
		Channels:  c.Config.Payment.Paystack.Channels,
	}
	psCfg.Normalize()
	if psCfg.PublicKey == "" {
		logger.Warnw("provider_paystack_disabled", "reason", "public_key_missing")
	} else {
		gw, err := payment.NewPaystackGateway(psCfg, c.Popups)
		if err != nil {
			return fmt.Errorf("init paystack gateway failed: %w", err)
		}
		gateways = append(gateways, gw)
	}

	flwCfg := &flutterwave.Config{
		PublicKey:   c.Config.Payment.Flutterwave.PublicKey,
		RedirectURL: c.Config.Payment.Flutterwave.RedirectURL,
		Currency:    c.Config.Payment.Flutterwave.Currency,
	}
	flwCfg.Normalize()
	if flwCfg.RedirectURL == "" {
		logger.Warnw("provider_flutterwave_disabled", "reason", "redirect_url_missing")
	} else {
		gw, err := payment.NewFlutterwaveGateway(flwCfg, c.Backend)
		if err != nil {
			return fmt.Errorf("init flutterwave gateway failed: %w", err)
		}
		gateways = append(gateways, gw)
	}

	c.Payments = payment.NewClient(c.Backend, gateways...)
	logger.Infow("provider_payments_ready", "providers", c.Payments.Providers())
	return nil
}

func (c *Container) initAuthz() error {
	svc, err := authz.NewService(c.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return err
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		return err
	}
	c.AuthzService = svc
	return nil
}

// NewCheckout 创建一次结算流程
func (c *Container) NewCheckout(nav checkout.Navigator) *checkout.Orchestrator {
	return checkout.New(checkout.Deps{
		Cart:         c.Cart,
		Auth:         c.Session,
		Backend:      c.Backend,
		Payments:     c.Payments,
		Session:      c.SessionStore,
		Navigator:    nav,
		Notifier:     c.Notifier,
		ShippingFee:  models.NewMoneyFromInt(c.Config.Checkout.ShippingFee),
		PendingTTL:   c.Config.Checkout.PendingOrderTTL(),
		RefreshStock: c.Config.Checkout.RefreshStock,
	})
}

// Close 释放外部连接
func (c *Container) Close() error {
	c.Cart.Dispose()
	if c.RedisClient != nil {
		return c.RedisClient.Close()
	}
	return nil
}
