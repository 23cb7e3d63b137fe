package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-storefront/internal/model"
	"github.com/iliyamo/online-storefront/internal/repository"
)

// ProductAdminHandler implements the admin product CRUD endpoints. All
// methods assume JWT authentication and the admin role check have already
// been performed by middleware.
type ProductAdminHandler struct {
	Products *repository.ProductRepo
	Stock    *repository.StockRepo
}

// NewProductAdminHandler constructs a ProductAdminHandler with the
// provided repositories. All dependencies must be non-nil.
func NewProductAdminHandler(products *repository.ProductRepo, stock *repository.StockRepo) *ProductAdminHandler {
	if products == nil || stock == nil {
		panic("nil repository passed to NewProductAdminHandler")
	}
	return &ProductAdminHandler{Products: products, Stock: stock}
}

type productReq struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	PriceCents      uint32 `json:"price_cents"`
	IsActive        *bool  `json:"is_active"`
	InitialQuantity int64  `json:"initial_quantity"` // create only
	MinQuantity     int64  `json:"min_quantity"`     // create only
}

type productResp struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  uint32 `json:"price_cents"`
	IsActive    bool   `json:"is_active"`
}

// Create handles POST /v1/admin/products. The product row and its stock
// row are inserted in one transaction so every product has a stock record
// from birth.
func (h *ProductAdminHandler) Create(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req productReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.InitialQuantity < 0 || req.MinQuantity < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantities must not be negative"})
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Products.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	p := model.Product{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		IsActive:    active,
	}
	if err := h.Products.CreateTx(ctx, tx, &p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create product failed"})
	}
	if err := h.Stock.CreateTx(ctx, tx, p.ID, req.InitialQuantity, req.MinQuantity, actorID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "seed stock failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	return c.JSON(http.StatusCreated, productResp{
		ID: p.ID, Name: p.Name, Description: p.Description,
		PriceCents: p.PriceCents, IsActive: p.IsActive,
	})
}

// Update handles PUT /v1/admin/products/:id.
func (h *ProductAdminHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	var req productReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	existing, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	existing.Name = req.Name
	existing.Description = req.Description
	existing.PriceCents = req.PriceCents
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	if err := h.Products.Update(ctx, existing); err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update product failed"})
	}
	return c.JSON(http.StatusOK, productResp{
		ID: existing.ID, Name: existing.Name, Description: existing.Description,
		PriceCents: existing.PriceCents, IsActive: existing.IsActive,
	})
}

// Delete handles DELETE /v1/admin/products/:id. Products are deactivated,
// not removed: order history and the stock ledger keep referencing them.
func (h *ProductAdminHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Products.Deactivate(ctx, id); err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete product failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// List handles GET /v1/admin/products and returns every product,
// including inactive ones.
func (h *ProductAdminHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	products, err := h.Products.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]productResp, 0, len(products))
	for _, p := range products {
		out = append(out, productResp{
			ID: p.ID, Name: p.Name, Description: p.Description,
			PriceCents: p.PriceCents, IsActive: p.IsActive,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"products": out})
}
