package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-storefront/internal/repository"
)

// CatalogHandler serves the public, unauthenticated product catalog.
// Responses expose availability as a boolean only; exact quantities are
// admin-facing information.
type CatalogHandler struct {
	Products *repository.ProductRepo
	Stock    *repository.StockRepo
}

// NewCatalogHandler constructs a CatalogHandler with the provided
// repositories. All dependencies must be non-nil.
func NewCatalogHandler(products *repository.ProductRepo, stock *repository.StockRepo) *CatalogHandler {
	if products == nil || stock == nil {
		panic("nil repository passed to NewCatalogHandler")
	}
	return &CatalogHandler{Products: products, Stock: stock}
}

// ListProducts handles GET /v1/products. The route is wrapped by the
// catalog cache middleware, so slightly stale availability is expected.
func (h *CatalogHandler) ListProducts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Products.ListCatalog(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"products": items})
}

// GetProduct handles GET /v1/products/:id.
func (h *CatalogHandler) GetProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !p.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}
	qty, err := h.Stock.GetQuantity(ctx, p.ID)
	if err != nil && err != repository.ErrStockNotFound {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, repository.CatalogItem{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		InStock:     qty > 0,
	})
}
