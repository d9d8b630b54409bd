package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/pharmadesk/station/api/handler"
)

type Handlers struct {
	Auth      *apiHandler.AuthHandler
	Catalog   *apiHandler.CatalogHandler
	Cart      *apiHandler.CartHandler
	Dashboard *apiHandler.DashboardHandler
	Audit     *apiHandler.AuditHandler
	Health    *apiHandler.HealthHandler
}

func New(handlers Handlers, gate func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Auth routes sit outside the gate; login is what opens a session.
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/logout", handlers.Auth.Logout)

	// Gated routes
	r.GET("/api/v1/catalog", gate(handlers.Catalog.GetCatalog))

	r.GET("/api/v1/cart", gate(handlers.Cart.ViewCart))
	r.POST("/api/v1/cart/items", gate(handlers.Cart.AddItem))
	r.PUT("/api/v1/cart/items/{id}", gate(handlers.Cart.UpdateItem))
	r.DELETE("/api/v1/cart/items/{id}", gate(handlers.Cart.RemoveItem))
	r.POST("/api/v1/checkout", gate(handlers.Cart.Checkout))

	r.GET("/api/v1/notifications", gate(handlers.Dashboard.Notifications))
	r.POST("/api/v1/notifications/read", gate(handlers.Dashboard.MarkRead))
	r.GET("/api/v1/reports/summary", gate(handlers.Dashboard.ReportsSummary))

	r.GET("/api/v1/audit", gate(handlers.Audit.List))

	return r
}
