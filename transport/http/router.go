package http

import (
	"github.com/gin-gonic/gin"
	"github.com/layer-3/stockflow/devapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// APIPrefix is where the API routes are mounted
const APIPrefix = "/api/v1"

// RouterConfig configures the development API router
type RouterConfig struct {
	// SecureCookies marks the session cookies Secure; disable for plain HTTP.
	SecureCookies bool

	// Gatherer, when set, is exposed on /metrics.
	Gatherer prometheus.Gatherer
}

// SetupRouter sets up the Gin router
func SetupRouter(log logrus.FieldLogger, issuer *devapi.Issuer, inventory *devapi.Inventory, cfg RouterConfig) *gin.Engine {
	log = log.WithField("component", "devapi")

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))

	// Create handlers
	auth := NewAuthHandlers(log, issuer, cfg.SecureCookies)
	inv := NewInventoryHandlers(inventory)

	api := router.Group(APIPrefix)

	// Auth routes
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login/access-token", auth.Login)
		authGroup.POST("/refresh-token", auth.Refresh)
		authGroup.POST("/logout", auth.Logout)
	}

	// Protected API routes
	protected := api.Group("")
	protected.Use(AuthMiddleware(issuer))
	{
		protected.GET("/auth/me", auth.Me)

		protected.GET("/products", inv.ListProducts)
		protected.GET("/products/:id", inv.GetProduct)
		protected.GET("/purchase-orders", inv.ListPurchaseOrders)
		protected.POST("/purchase-orders", inv.CreatePurchaseOrder)
		protected.POST("/orders", inv.CreateOrder)
		protected.GET("/vendors", inv.ListVendors)
		protected.GET("/organizations", inv.ListOrganizations)
		protected.GET("/alerts", inv.ListAlerts)
		protected.POST("/alerts/:id/read", inv.MarkAlertRead)
	}

	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	return router
}
