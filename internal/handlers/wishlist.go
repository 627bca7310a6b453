package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/models"
)

type WishlistHandler struct {
	DB *gorm.DB
}

func (h *WishlistHandler) GetWishlist(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	var items []models.WishlistItem
	if err := h.DB.Where("user_id = ?", userID).Order("added_at DESC").
		Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	type entry struct {
		ItemID  uint           `json:"item_id"`
		AddedAt time.Time      `json:"added_at"`
		Product models.Product `json:"product"`
	}
	entries := make([]entry, 0, len(items))
	for _, item := range items {
		var p models.Product
		if err := h.DB.First(&p, item.ProductID).Error; err != nil {
			continue
		}
		entries = append(entries, entry{ItemID: item.ID, AddedAt: item.AddedAt, Product: p})
	}
	return c.JSON(http.StatusOK, entries)
}

// Toggle adds the product if absent, removes it if present.
func (h *WishlistHandler) Toggle(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint `json:"product_id"`
	}
	if err := c.Bind(&req); err != nil || req.ProductID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	var item models.WishlistItem
	err = h.DB.Where("user_id = ? AND product_id = ?", userID, req.ProductID).
		First(&item).Error
	if err == nil {
		if err := h.DB.Delete(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, echo.Map{"in_wishlist": false})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	item = models.WishlistItem{UserID: userID, ProductID: req.ProductID, AddedAt: time.Now().UTC()}
	if err := h.DB.Create(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"in_wishlist": true})
}
