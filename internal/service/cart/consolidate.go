package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/models"
	"github.com/quartier-aromes/shop/internal/session"
)

// Consolidator folds a visitor's transient session cart into the persistent
// per-user cart at the moment of login.
type Consolidator struct {
	DB       *gorm.DB
	Sessions *session.CartStore
	Log      *slog.Logger
}

// Merge is invoked once, synchronously, when a session turns authenticated.
// The session hash is cleared whether or not the merge fully succeeds so a
// retried login cannot double-merge; a partially merged cart is preferred
// over a duplicated one.
func (c *Consolidator) Merge(ctx context.Context, userID uint, sessionID string) error {
	if c.Sessions == nil || sessionID == "" {
		return nil
	}

	items, err := c.Sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	defer func() {
		if err := c.Sessions.Clear(ctx, sessionID); err != nil && c.Log != nil {
			c.Log.Error("session cart clear failed", "session_id", sessionID, "error", err)
		}
	}()

	if len(items) == 0 {
		return nil
	}

	return MergeMap(c.DB, userID, items)
}

// MergeMap sums session quantities into existing cart rows and creates rows
// for products the user has not carted before. No stock or price validation
// happens here; settlement owns that.
func MergeMap(db *gorm.DB, userID uint, items map[uint]uint) error {
	for productID, quantity := range items {
		if quantity == 0 {
			continue
		}

		var item models.CartItem
		err := db.Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error
		switch {
		case err == nil:
			item.Quantity += quantity
			if err := db.Save(&item).Error; err != nil {
				return fmt.Errorf("cart merge update: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.CartItem{
				UserID:    userID,
				ProductID: productID,
				Quantity:  quantity,
				AddedAt:   time.Now().UTC(),
			}
			if err := db.Create(&item).Error; err != nil {
				return fmt.Errorf("cart merge create: %w", err)
			}
		default:
			return fmt.Errorf("cart merge lookup: %w", err)
		}
	}
	return nil
}
