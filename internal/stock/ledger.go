// Package stock guards the non-negativity invariant on Product.Stock.
// Reserve and Release take the caller's transaction handle so a stock delta
// commits or rolls back together with the cart or order writes around it.
package stock

import (
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/cart_order_api/internal/models"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Reserve decrements the product's stock by quantity. The decrement and the
// stock check are a single conditional UPDATE, so two concurrent reservations
// for the same product cannot both pass a check that only one should pass:
// the row is updated only where stock >= quantity, and the second writer sees
// the already-decremented value.
func Reserve(tx *gorm.DB, productID uint, quantity uint) error {
	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var p models.Product
		if err := tx.First(&p, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		return ErrInsufficientStock
	}
	return nil
}

// Release returns quantity to the product's stock. It is not re-validated
// against any ceiling; callers only release what they reserved earlier.
func Release(tx *gorm.DB, productID uint, quantity uint) error {
	res := tx.Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}
