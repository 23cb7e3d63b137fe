package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-storefront/internal/repository"
)

// InventoryHandler exposes the stock ledger to administrators: current
// quantity, increments/decrements, direct overwrites and movement history.
// All methods assume JWT authentication and the admin role check have
// already been performed by middleware.
type InventoryHandler struct {
	Stock *repository.StockRepo
}

// NewInventoryHandler constructs an InventoryHandler. The repository must
// be non-nil.
func NewInventoryHandler(stock *repository.StockRepo) *InventoryHandler {
	if stock == nil {
		panic("nil repository passed to NewInventoryHandler")
	}
	return &InventoryHandler{Stock: stock}
}

type adjustReq struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

type stockResp struct {
	ProductID   uint64 `json:"product_id"`
	Quantity    int64  `json:"quantity"`
	MinQuantity int64  `json:"min_quantity"`
}

// Get handles GET /v1/admin/inventory/:id and returns the stock record.
func (h *InventoryHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Stock.Get(ctx, id)
	if err != nil {
		if err == repository.ErrStockNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "stock record not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, stockResp{
		ProductID: rec.ProductID, Quantity: rec.Quantity, MinQuantity: rec.MinQuantity,
	})
}

// Increment handles POST /v1/admin/inventory/:id/increment.
func (h *InventoryHandler) Increment(c echo.Context) error {
	return h.adjust(c, false)
}

// Decrement handles POST /v1/admin/inventory/:id/decrement.
func (h *InventoryHandler) Decrement(c echo.Context) error {
	return h.adjust(c, true)
}

// adjust is the shared body of Increment and Decrement; the two endpoints
// differ only in direction and in the failure modes a decrement can hit.
func (h *InventoryHandler) adjust(c echo.Context, down bool) error {
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	var req adjustReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "adjustment"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var after int64
	if down {
		after, err = h.Stock.Decrement(ctx, id, req.Amount, reason, actorID)
	} else {
		after, err = h.Stock.Increment(ctx, id, req.Amount, reason, actorID)
	}
	if err != nil {
		var insufficient *repository.InsufficientStockError
		switch {
		case err == repository.ErrNonPositiveAmount:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
		case err == repository.ErrStockNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "stock record not found"})
		case errors.As(err, &insufficient):
			return c.JSON(http.StatusConflict, echo.Map{
				"error":      "insufficient stock",
				"product_id": insufficient.ProductID,
				"requested":  insufficient.Requested,
				"available":  insufficient.Available,
			})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"product_id": id, "quantity": after})
}

// SetQuantity handles PUT /v1/admin/inventory/:id/quantity.
func (h *InventoryHandler) SetQuantity(c echo.Context) error {
	return h.set(c, "quantity")
}

// SetMinQuantity handles PUT /v1/admin/inventory/:id/min-quantity.
func (h *InventoryHandler) SetMinQuantity(c echo.Context) error {
	return h.set(c, "min_quantity")
}

func (h *InventoryHandler) set(c echo.Context, field string) error {
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	var req struct {
		Quantity    *int64 `json:"quantity"`
		MinQuantity *int64 `json:"min_quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch field {
	case "quantity":
		if req.Quantity == nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity is required"})
		}
		err = h.Stock.SetQuantity(ctx, id, *req.Quantity, actorID)
	default:
		if req.MinQuantity == nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "min_quantity is required"})
		}
		err = h.Stock.SetMinQuantity(ctx, id, *req.MinQuantity, actorID)
	}
	if err != nil {
		switch err {
		case repository.ErrNegativeQuantity:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "value must not be negative"})
		case repository.ErrStockNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "stock record not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	rec, err := h.Stock.Get(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, stockResp{
		ProductID: rec.ProductID, Quantity: rec.Quantity, MinQuantity: rec.MinQuantity,
	})
}

// History handles GET /v1/admin/inventory/:id/movements. The optional
// ?order=asc|desc parameter selects oldest-first or newest-first (the
// default), ?limit caps the row count.
func (h *InventoryHandler) History(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	newestFirst := !strings.EqualFold(c.QueryParam("order"), "asc")
	limit := 0
	if s := c.QueryParam("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	movements, err := h.Stock.History(ctx, id, newestFirst, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	type movementResp struct {
		ID            uint64 `json:"id"`
		Delta         int64  `json:"delta"`
		QuantityAfter int64  `json:"quantity_after"`
		Reason        string `json:"reason"`
		ActorID       uint64 `json:"actor_id"`
		CreatedAt     string `json:"created_at"`
	}
	out := make([]movementResp, 0, len(movements))
	for _, m := range movements {
		out = append(out, movementResp{
			ID:            m.ID,
			Delta:         m.Delta,
			QuantityAfter: m.QuantityAfter,
			Reason:        m.Reason,
			ActorID:       m.ActorID,
			CreatedAt:     m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"product_id": id, "movements": out})
}
