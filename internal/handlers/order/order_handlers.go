package order

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/cart_order_api/internal/logging"
	"github.com/Skotchmaster/cart_order_api/internal/models"
	"github.com/Skotchmaster/cart_order_api/internal/mykafka"
)

type OrderHandler struct {
	DB        *gorm.DB
	Producer  *mykafka.Producer
	JWTSecret []byte
}

type orderSummary struct {
	ID         uint    `json:"id"`
	TotalPrice float64 `json:"total_price"`
	Status     string  `json:"status"`
}

// Checkout converts the user's cart into an order. Stock is not touched
// here: every line already holds a reservation taken when it entered the
// cart, and checkout consumes it. Order insert, order-item inserts and
// cart-line deletes commit as one unit.
func (h *OrderHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_checkout")

	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var order models.Order
	txErr := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []models.CartItem
		if err := tx.Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "cart empty")
		}

		var total float64
		orderItems := make([]models.OrderItem, 0, len(items))
		for _, it := range items {
			var p models.Product
			if err := tx.First(&p, it.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					// Product deleted from the catalog after the line was
					// added. The dead line is dropped instead of blocking the
					// rest of the cart.
					if err := tx.Delete(&models.CartItem{}, it.ID).Error; err != nil {
						return err
					}
					continue
				}
				return err
			}
			total += float64(it.Quantity) * p.Price
			orderItems = append(orderItems, models.OrderItem{
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				UnitPrice: p.Price,
			})
		}
		if len(orderItems) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "cart empty")
		}

		order = models.Order{
			UserID:     userID,
			TotalPrice: total,
			Status:     "pending",
			CreatedAt:  time.Now().Unix(),
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for i := range orderItems {
			orderItems[i].OrderID = order.ID
			if err := tx.Create(&orderItems[i]).Error; err != nil {
				return err
			}
		}

		return tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
	})
	if txErr != nil {
		var he *echo.HTTPError
		if errors.As(txErr, &he) {
			l.Warn("checkout_failed", "status", he.Code, "error", txErr)
			return he
		}
		l.Error("checkout_failed", "status", 500, "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]any{
		"type":    "order_created",
		"userID":  userID,
		"orderID": order.ID,
		"total":   order.TotalPrice,
	})

	l.Info("checkout_success", "order_id", order.ID, "total", order.TotalPrice)
	return c.JSON(http.StatusOK, echo.Map{
		"order_id":    order.ID,
		"total_price": order.TotalPrice,
		"status":      order.Status,
	})
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_list")

	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var orders []models.Order
	if err := h.DB.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&orders).Error; err != nil {
		l.Error("list_orders_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	out := make([]orderSummary, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderSummary{ID: o.ID, TotalPrice: o.TotalPrice, Status: o.Status})
	}

	l.Info("list_orders_success", "count", len(out))
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_get")

	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	orderID, err := strconv.Atoi(c.Param("orderId"))
	if err != nil || orderID <= 0 {
		l.Warn("get_order_failed", "status", 400, "reason", "invalid_order_id")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var order models.Order
	if err := h.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("get_order_failed", "status", 404, "order_id", orderID)
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		l.Error("get_order_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("get_order_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, orderSummary{ID: order.ID, TotalPrice: order.TotalPrice, Status: order.Status})
}

// UpdateStatus overwrites the order status with whatever string the caller
// supplies. There is no transition graph; "shipped" to "pending" is accepted.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_update_status")

	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	orderID, err := strconv.Atoi(c.Param("orderId"))
	if err != nil || orderID <= 0 {
		l.Warn("update_status_failed", "status", 400, "reason", "invalid_order_id")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil || req.Status == "" {
		l.Warn("update_status_failed", "status", 400, "reason", "invalid_body")
		return echo.NewHTTPError(http.StatusBadRequest, "status required")
	}

	var order models.Order
	if err := h.DB.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("update_status_failed", "status", 404, "order_id", orderID)
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		l.Error("update_status_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	order.Status = req.Status
	if err := h.DB.WithContext(ctx).Save(&order).Error; err != nil {
		l.Error("update_status_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]any{
		"type":    "order_status_updated",
		"userID":  userID,
		"orderID": order.ID,
		"status":  order.Status,
	})

	l.Info("update_status_success", "order_id", order.ID, "new_status", order.Status)
	return c.JSON(http.StatusOK, echo.Map{"id": order.ID, "status": order.Status})
}
