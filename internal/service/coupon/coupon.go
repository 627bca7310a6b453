package coupon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/models"
)

var (
	ErrNotFound = errors.New("coupon not found")
	ErrNotValid = errors.New("coupon no longer valid")
)

// MinPurchaseError rejects a coupon for this cart only: the coupon itself
// stays usable for larger carts.
type MinPurchaseError struct {
	Required float64
}

func (e *MinPurchaseError) Error() string {
	return fmt.Sprintf("minimum purchase of %.2f required for this coupon", e.Required)
}

// Normalize upper-cases a code. Applied on both write and read so lookups
// are case-insensitive.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func IsValid(c *models.Coupon, now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return false
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	return true
}

func Discount(c *models.Coupon, subtotal float64) float64 {
	if c.DiscountType == "percentage" {
		return subtotal * (c.DiscountValue / 100)
	}
	// fixed: never discount below a zero total
	if c.DiscountValue > subtotal {
		return subtotal
	}
	return c.DiscountValue
}

// Evaluate prices a coupon code against a cart subtotal. It returns the
// coupon and the discount amount, or one of ErrNotFound, ErrNotValid,
// *MinPurchaseError. Evaluation never mutates the coupon; Redeem does.
func Evaluate(db *gorm.DB, code string, subtotal float64) (*models.Coupon, float64, error) {
	var c models.Coupon
	if err := db.Where("code = ?", Normalize(code)).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("coupon lookup: %w", err)
	}

	if !IsValid(&c, time.Now().UTC()) {
		return nil, 0, ErrNotValid
	}

	if subtotal < c.MinPurchase {
		return nil, 0, &MinPurchaseError{Required: c.MinPurchase}
	}

	return &c, Discount(&c, subtotal), nil
}

// Redeem consumes one use of the coupon. The guarded update keeps
// used_count within max_uses even when two settlements race on the same
// code; callers run it inside the settlement transaction so a failed order
// never consumes coupon usage.
func Redeem(tx *gorm.DB, c *models.Coupon) error {
	res := tx.Model(&models.Coupon{}).
		Where("id = ? AND (max_uses = 0 OR used_count < max_uses)", c.ID).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return fmt.Errorf("coupon redeem: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotValid
	}
	c.UsedCount++
	return nil
}
