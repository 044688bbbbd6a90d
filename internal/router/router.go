package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/campusbooks/storefront/internal/authz"
	"github.com/campusbooks/storefront/internal/config"
	"github.com/campusbooks/storefront/internal/constants"
	adminhandlers "github.com/campusbooks/storefront/internal/http/handlers/admin"
	publichandlers "github.com/campusbooks/storefront/internal/http/handlers/public"
	"github.com/campusbooks/storefront/internal/http/response"
	"github.com/campusbooks/storefront/internal/logger"
	"github.com/campusbooks/storefront/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	payRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:pay", redisPrefix),
		WindowSeconds: cfg.RateLimit.Pay.WindowSeconds,
		MaxRequests:   cfg.RateLimit.Pay.MaxRequests,
		Message:       "too many payment attempts",
	}
	popupRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:popup", redisPrefix),
		WindowSeconds: cfg.RateLimit.Popup.WindowSeconds,
		MaxRequests:   cfg.RateLimit.Popup.MaxRequests,
		Message:       "too many payment callbacks",
	}
	if !cfg.RateLimit.Enabled {
		payRule = RateLimitRule{}
		popupRule = RateLimitRule{}
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(TracingMiddleware())
	r.Use(LoggerMiddleware(logger.Z()))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/books", publicHandler.ListBooks)
		apiV1.GET("/books/:id", publicHandler.GetBook)

		cart := apiV1.Group("/cart")
		{
			cart.GET("", publicHandler.GetCart)
			cart.POST("/items", publicHandler.AddCartItem)
			cart.PUT("/items/:book_id", publicHandler.SetCartItemQuantity)
			cart.DELETE("/items/:book_id", publicHandler.RemoveCartItem)
			cart.DELETE("", publicHandler.ClearCart)
			cart.POST("/toggle", publicHandler.ToggleCart)
		}

		session := apiV1.Group("/session")
		{
			session.GET("", publicHandler.GetSession)
			session.POST("/token", publicHandler.SetSessionToken)
			session.DELETE("/token", publicHandler.ClearSessionToken)
		}

		apiV1.GET("/notifications/stream", publicHandler.StreamNotifications)

		// 进入结算时由编排器自行判断登录态并返回跳转
		checkoutGroup := apiV1.Group("/checkout")
		{
			checkoutGroup.GET("", publicHandler.GetCheckout)
			checkoutGroup.POST("/begin", publicHandler.BeginCheckout)
			checkoutGroup.POST("/details", publicHandler.SubmitCheckoutDetails)
			checkoutGroup.POST("/back", publicHandler.CheckoutBack)
			checkoutGroup.POST("/pay", RateLimitMiddleware(c.RedisClient, payRule, KeyByIP), publicHandler.PayCheckout)
		}

		payments := apiV1.Group("/payments")
		{
			payments.POST("/popup/:reference", RateLimitMiddleware(c.RedisClient, popupRule, KeyByParam("reference")), publicHandler.ReportPopup)
			payments.GET("/callback/:provider", publicHandler.PaymentCallback)
		}

		orders := apiV1.Group("/orders")
		orders.Use(SessionAuthMiddleware(c.Session))
		{
			orders.GET("", publicHandler.ListOrders)
			orders.GET("/:id", publicHandler.GetOrder)
			orders.GET("/:id/watch", publicHandler.WatchOrder)
		}

		admin := apiV1.Group("/admin")
		admin.Use(AdminRBACMiddleware(c.AuthzService, c.Session))
		{
			admin.GET("/orders/:id", adminHandler.GetOrder)
			admin.PUT("/orders/:id/status", adminHandler.UpdateOrderStatus)
			admin.GET("/authz/permissions", adminPermissionCatalogHandler(r, c))
		}
	}

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
	Granted    bool   `json:"granted"`
}

type adminPermissionCatalog struct {
	Role     string                       `json:"role"`
	Policies []authz.Policy               `json:"policies"`
	Items    []adminPermissionCatalogItem `json:"items"`
}

// adminPermissionCatalogHandler 列出管理端路由权限，role 参数缺省为当前会话角色
func adminPermissionCatalogHandler(engine *gin.Engine, c *provider.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		role := strings.TrimSpace(ctx.Query("role"))
		if role == "" {
			role = c.Session.Role()
		}
		subject, err := authz.NormalizeRole(role)
		if err != nil {
			response.BadRequest(ctx, "role is required")
			return
		}
		policies, err := c.AuthzService.RolePolicies(subject)
		if err != nil {
			logger.Errorw("admin_permission_catalog_failed", "role", subject, "error", err)
			response.Error(ctx, response.CodeInternal, "internal error")
			return
		}
		items := buildAdminPermissionCatalog(engine)
		for i := range items {
			granted, err := c.AuthzService.EnforceRole(subject, items[i].Object, items[i].Method)
			if err != nil {
				logger.Warnw("admin_permission_enforce_failed", "role", subject, "permission", items[i].Permission, "error", err)
				continue
			}
			items[i].Granted = granted
		}
		response.Success(ctx, adminPermissionCatalog{Role: subject, Policies: policies, Items: items})
	}
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 || segments[0] != "admin" {
		return segments[0]
	}
	return segments[1]
}
