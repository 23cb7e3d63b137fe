// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-storefront/internal/handler"
	"github.com/iliyamo/online-storefront/internal/middleware"
	"github.com/iliyamo/online-storefront/internal/model"
)

// Handlers bundles every handler the router needs. All fields must be
// non-nil.
type Handlers struct {
	Auth      *handler.AuthHandler
	Catalog   *handler.CatalogHandler
	Products  *handler.ProductAdminHandler
	Inventory *handler.InventoryHandler
	Orders    *handler.OrderHandler
}

// Register attaches all routes to the Echo instance.
//
// Route map:
//
//	GET  /healthz                                    public
//	POST /v1/auth/register, /v1/auth/login           public, rate limited
//	GET  /v1/products, /v1/products/:id              public, cached
//	GET  /v1/me                                      authenticated
//	POST /v1/orders  GET /v1/orders(/:id)            authenticated
//	/v1/admin/products*, /v1/admin/inventory*        admin only
func Register(e *echo.Echo, db *sql.DB, h Handlers, jwtSecret []byte, rateLimit, cache echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health(db))

	// Credential endpoints get the rate limiter so password guessing is
	// throttled per client IP.
	auth := e.Group("/v1/auth")
	if rateLimit != nil {
		auth.Use(rateLimit)
	}
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	// Public catalog; the cache middleware serves repeat reads from Redis.
	catalog := e.Group("/v1/products")
	if cache != nil {
		catalog.Use(cache)
	}
	catalog.GET("", h.Catalog.ListProducts)
	catalog.GET("/:id", h.Catalog.GetProduct)

	// Everything below requires a valid access token.
	authed := e.Group("/v1")
	authed.Use(middleware.JWTAuth(jwtSecret))
	authed.GET("/me", h.Auth.Me)

	authed.POST("/orders", h.Orders.Place)
	authed.GET("/orders", h.Orders.List)
	authed.GET("/orders/:id", h.Orders.Get)

	// Admin surface: product CRUD and the stock ledger.
	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.GET("/products", h.Products.List)
	admin.POST("/products", h.Products.Create)
	admin.PUT("/products/:id", h.Products.Update)
	admin.DELETE("/products/:id", h.Products.Delete)

	admin.GET("/inventory/:id", h.Inventory.Get)
	admin.POST("/inventory/:id/increment", h.Inventory.Increment)
	admin.POST("/inventory/:id/decrement", h.Inventory.Decrement)
	admin.PUT("/inventory/:id/quantity", h.Inventory.SetQuantity)
	admin.PUT("/inventory/:id/min-quantity", h.Inventory.SetMinQuantity)
	admin.GET("/inventory/:id/movements", h.Inventory.History)
}
