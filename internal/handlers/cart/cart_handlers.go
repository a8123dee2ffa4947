package cart

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/cart_order_api/internal/logging"
	"github.com/Skotchmaster/cart_order_api/internal/models"
	"github.com/Skotchmaster/cart_order_api/internal/mykafka"
	"github.com/Skotchmaster/cart_order_api/internal/stock"
)

type CartHandler struct {
	DB        *gorm.DB
	Producer  *mykafka.Producer
	JWTSecret []byte
}

// CartLine is a cart row joined with its product, as returned to clients.
type CartLine struct {
	ID        uint    `json:"id"`
	ProductID uint    `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  uint    `json:"quantity"`
	Total     float64 `json:"total"`
}

type addToCartResponse struct {
	CartLine
	User string `json:"user"`
}

// AddToCart creates or grows the (user, product) line and reserves the same
// quantity from stock. The stock check, stock write and line write happen in
// one transaction; a failure at any step leaves all three untouched.
func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_add")

	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  int  `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity <= 0 {
		l.Warn("add_to_cart_failed", "status", 400, "reason", "non_positive_quantity")
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be positive")
	}
	quantity := uint(req.Quantity)

	var line CartLine
	txErr := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := stock.Reserve(tx, req.ProductID, quantity); err != nil {
			return err
		}

		var item models.CartItem
		res := tx.Where("user_id = ? AND product_id = ?", userID, req.ProductID).First(&item)
		switch {
		case res.Error == nil:
			item.Quantity += quantity
			if err := tx.Save(&item).Error; err != nil {
				return err
			}
		case errors.Is(res.Error, gorm.ErrRecordNotFound):
			item = models.CartItem{UserID: userID, ProductID: req.ProductID, Quantity: quantity}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		default:
			return res.Error
		}

		var product models.Product
		if err := tx.First(&product, req.ProductID).Error; err != nil {
			return err
		}

		line = CartLine{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  item.Quantity,
			Total:     float64(item.Quantity) * product.Price,
		}
		return nil
	})
	if txErr != nil {
		return h.cartError(c, l, "add_to_cart_failed", txErr)
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		l.Warn("add_to_cart_user_lookup_failed", "error", err)
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": req.ProductID,
		"quantity":  line.Quantity,
	})

	l.Info("add_to_cart_success", "product_id", req.ProductID, "quantity", line.Quantity)
	return c.JSON(http.StatusOK, addToCartResponse{CartLine: line, User: user.Email})
}

// RemoveFromCart deletes the line and returns its full quantity to stock.
func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_remove")

	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil || productID <= 0 {
		l.Warn("remove_from_cart_failed", "status", 400, "reason", "invalid_product_id")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	txErr := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.CartItem
		if err := tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
			}
			return err
		}

		// The product may have been deleted from the catalog since the line
		// was added; there is no stock row to return to, the line still goes.
		if err := stock.Release(tx, item.ProductID, item.Quantity); err != nil && !errors.Is(err, stock.ErrProductNotFound) {
			return err
		}
		return tx.Delete(&item).Error
	})
	if txErr != nil {
		return h.cartError(c, l, "remove_from_cart_failed", txErr)
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_removed",
		"userID":    userID,
		"productID": productID,
	})

	l.Info("remove_from_cart_success", "product_id", productID)
	return c.JSON(http.StatusOK, echo.Map{"message": "item removed from cart"})
}

// UpdateCartItem resizes the line to the requested quantity, reserving or
// releasing the difference. No partial delta is ever applied.
func (h *CartHandler) UpdateCartItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_update")

	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil || productID <= 0 {
		l.Warn("update_cart_failed", "status", 400, "reason", "invalid_product_id")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("update_cart_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity <= 0 {
		l.Warn("update_cart_failed", "status", 400, "reason", "non_positive_quantity")
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be positive")
	}

	var item models.CartItem
	txErr := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
			}
			return err
		}

		delta := req.Quantity - int(item.Quantity)
		switch {
		case delta > 0:
			if err := stock.Reserve(tx, item.ProductID, uint(delta)); err != nil {
				return err
			}
		case delta < 0:
			if err := stock.Release(tx, item.ProductID, uint(-delta)); err != nil {
				return err
			}
		}

		item.Quantity = uint(req.Quantity)
		return tx.Save(&item).Error
	})
	if txErr != nil {
		return h.cartError(c, l, "update_cart_failed", txErr)
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_updated",
		"userID":    userID,
		"productID": productID,
		"quantity":  item.Quantity,
	})

	l.Info("update_cart_success", "product_id", productID, "quantity", item.Quantity)
	return c.JSON(http.StatusOK, item)
}

// GetCart lists the user's lines joined with product name and price.
func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_get")

	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var lines []CartLine
	if err := h.DB.WithContext(ctx).
		Table("cart_items").
		Select("cart_items.id, cart_items.product_id, products.name, products.price, cart_items.quantity").
		Joins("JOIN products ON products.id = cart_items.product_id").
		Where("cart_items.user_id = ?", userID).
		Order("cart_items.id ASC").
		Scan(&lines).Error; err != nil {
		l.Error("get_cart_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	for i := range lines {
		lines[i].Total = float64(lines[i].Quantity) * lines[i].Price
	}

	l.Info("get_cart_success", "items", len(lines))
	return c.JSON(http.StatusOK, lines)
}

// cartError maps ledger sentinels and embedded HTTP errors onto responses;
// everything else stays an opaque 500.
func (h *CartHandler) cartError(c echo.Context, l *slog.Logger, op string, err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		l.Warn(op, "status", he.Code, "error", err)
		return he
	case errors.Is(err, stock.ErrProductNotFound):
		l.Warn(op, "status", 404, "reason", "product_not_found")
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	case errors.Is(err, stock.ErrInsufficientStock):
		l.Warn(op, "status", 400, "reason", "insufficient_stock")
		return echo.NewHTTPError(http.StatusBadRequest, "insufficient stock")
	default:
		l.Error(op, "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
