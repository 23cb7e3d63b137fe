package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-storefront/internal/model"
	"github.com/iliyamo/online-storefront/internal/queue"
	"github.com/iliyamo/online-storefront/internal/repository"
	queue_publisher "github.com/iliyamo/online-storefront/internal/service"
)

// OrderHandler implements order placement and the customer's order views.
// Placement is the one path that must hold the all-or-nothing contract:
// the order row, its line items and every stock decrement share a single
// transaction, so an unfulfillable line item rolls everything back and
// leaves no trace. Methods assume JWT authentication has been performed
// by middleware.
type OrderHandler struct {
	Orders   *repository.OrderRepo
	Products *repository.ProductRepo
	Stock    *repository.StockRepo
	Users    *repository.UserRepo
}

// NewOrderHandler constructs an OrderHandler with the provided
// repositories. All dependencies must be non-nil.
func NewOrderHandler(orders *repository.OrderRepo, products *repository.ProductRepo, stock *repository.StockRepo, users *repository.UserRepo) *OrderHandler {
	if orders == nil || products == nil || stock == nil || users == nil {
		panic("nil repository passed to NewOrderHandler")
	}
	return &OrderHandler{Orders: orders, Products: products, Stock: stock, Users: users}
}

type placeOrderReq struct {
	Items []struct {
		ProductID uint64 `json:"product_id"`
		Quantity  int64  `json:"quantity"`
	} `json:"items"`
}

// Place handles POST /v1/orders.
func (h *OrderHandler) Place(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req placeOrderReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "items is required"})
	}
	// Merge duplicate product lines so each product is decremented once.
	merged := make(map[uint64]int64, len(req.Items))
	order := make([]uint64, 0, len(req.Items))
	for _, it := range req.Items {
		if it.ProductID == 0 || it.Quantity <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "each item needs a product_id and a positive quantity"})
		}
		if _, seen := merged[it.ProductID]; !seen {
			order = append(order, it.ProductID)
		}
		merged[it.ProductID] += it.Quantity
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	prices, err := h.Products.PricesFor(ctx, order)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	lines := make([]repository.OrderLine, 0, len(order))
	var total uint64
	for _, pid := range order {
		price, ok := prices[pid]
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown product", "product_id": pid})
		}
		qty := merged[pid]
		lines = append(lines, repository.OrderLine{ProductID: pid, Quantity: qty})
		total += uint64(price) * uint64(qty)
	}

	tx, err := h.Orders.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	o := model.Order{UserID: userID, Status: model.OrderStatusPlaced, TotalCents: total}
	if err := h.Orders.CreateTx(ctx, tx, &o); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create order failed"})
	}
	items := make([]model.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, model.OrderItem{
			OrderID:        o.ID,
			ProductID:      l.ProductID,
			Quantity:       l.Quantity,
			UnitPriceCents: prices[l.ProductID],
		})
	}
	if err := h.Orders.CreateItemsBulkTx(ctx, tx, items); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create order items failed"})
	}
	if err := h.Stock.PlaceOrderDecrementsTx(ctx, tx, lines, userID); err != nil {
		var insufficient *repository.InsufficientStockError
		switch {
		case errors.As(err, &insufficient):
			return c.JSON(http.StatusConflict, echo.Map{
				"error":      "insufficient stock",
				"product_id": insufficient.ProductID,
				"requested":  insufficient.Requested,
				"available":  insufficient.Available,
			})
		case err == repository.ErrStockNotFound:
			return c.JSON(http.StatusConflict, echo.Map{"error": "product out of stock"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	// Best-effort notification: the order is committed, so a broker outage
	// must not fail the request.
	if u, err := h.Users.GetByID(ctx, userID); err != nil {
		log.Printf("order %d: user %d lookup for order.placed failed: %v", o.ID, userID, err)
	} else {
		ev := queue.OrderPlacedEvent{
			OrderID:       o.ID,
			UserID:        userID,
			CustomerName:  u.Name,
			CustomerEmail: u.Email,
			TotalCents:    total,
			PlacedAt:      time.Now().UTC().Format(time.RFC3339),
		}
		for _, it := range items {
			name := ""
			if p, perr := h.Products.GetByID(ctx, it.ProductID); perr == nil {
				name = p.Name
			}
			ev.Items = append(ev.Items, queue.OrderItemEvent{
				ProductID:      it.ProductID,
				ProductName:    name,
				Quantity:       it.Quantity,
				UnitPriceCents: it.UnitPriceCents,
			})
		}
		if perr := queue_publisher.PublishOrderPlaced(ctx, ev); perr != nil {
			log.Printf("order %d: publish order.placed failed: %v", o.ID, perr)
		}
	}

	det, err := h.Orders.GetByIDForUser(ctx, o.ID, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, det)
}

// Get handles GET /v1/orders/:id for the order's owner.
func (h *OrderHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	det, err := h.Orders.GetByIDForUser(ctx, id, userID)
	if err != nil {
		if err == repository.ErrOrderNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, det)
}

// List handles GET /v1/orders and returns the caller's orders, newest
// first.
func (h *OrderHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	orders, err := h.Orders.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}
