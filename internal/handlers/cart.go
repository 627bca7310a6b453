package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/models"
	"github.com/quartier-aromes/shop/internal/mykafka"
	"github.com/quartier-aromes/shop/internal/service/cart"
	"github.com/quartier-aromes/shop/internal/session"
)

// CartHandler serves both cart flavors: persistent rows for authenticated
// users and the Redis session hash for anonymous visitors.
type CartHandler struct {
	DB       *gorm.DB
	Sessions *session.CartStore
	Producer *mykafka.Producer
}

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *CartHandler) sessionID(c echo.Context, create bool) string {
	if cookie, err := c.Cookie("cartSession"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if !create {
		return ""
	}
	id := uuid.NewString()
	c.SetCookie(CreateCookie("cartSession", id, "/", time.Now().Add(7*24*time.Hour)))
	return id
}

func (h *CartHandler) GetCart(c echo.Context) error {
	if userID, err := GetID(c); err == nil {
		return h.getUserCart(c, userID)
	}
	return h.getSessionCart(c)
}

func (h *CartHandler) getUserCart(c echo.Context, userID uint) error {
	var items []models.CartItem
	if err := h.DB.Where("user_id = ?", userID).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	lines := make([]cart.Line, 0, len(items))
	var total float64
	for _, item := range items {
		var p models.Product
		if err := h.DB.First(&p, item.ProductID).Error; err != nil {
			continue
		}
		line := cart.PersistedLine(item, p)
		lines = append(lines, line)
		total += line.LineTotal
	}

	return c.JSON(http.StatusOK, map[string]any{"items": lines, "total": total})
}

func (h *CartHandler) getSessionCart(c echo.Context) error {
	sessionID := h.sessionID(c, false)
	if sessionID == "" || h.Sessions == nil {
		return c.JSON(http.StatusOK, map[string]any{"items": []cart.Line{}, "total": 0.0})
	}

	mapping, err := h.Sessions.Get(c.Request().Context(), sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cart unavailable")
	}

	lines := make([]cart.Line, 0, len(mapping))
	var total float64
	for productID, quantity := range mapping {
		var p models.Product
		if err := h.DB.First(&p, productID).Error; err != nil {
			continue
		}
		line := cart.TransientLine(p, quantity)
		lines = append(lines, line)
		total += line.LineTotal
	}

	return c.JSON(http.StatusOK, map[string]any{"items": lines, "total": total})
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	if userID, err := GetID(c); err == nil {
		return h.addToUserCart(c, userID, product, req.Quantity)
	}

	if h.Sessions == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "cart unavailable")
	}
	sessionID := h.sessionID(c, true)
	if err := h.Sessions.Add(c.Request().Context(), sessionID, product.ID, req.Quantity); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cart unavailable")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": fmt.Sprintf("%s a été ajouté au panier", product.Name)})
}

func (h *CartHandler) addToUserCart(c echo.Context, userID uint, product models.Product, quantity uint) error {
	var item models.CartItem
	tx := h.DB.Where("user_id = ? AND product_id = ?", userID, product.ID).First(&item)
	if tx.Error == nil {
		item.Quantity += quantity
		if err := h.DB.Save(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		h.publish(c, map[string]any{
			"type":      "cart_item_added",
			"userID":    userID,
			"productID": product.ID,
			"quantity":  item.Quantity,
		})
		return c.JSON(http.StatusOK, item)
	}
	if !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, tx.Error.Error())
	}

	newItem := models.CartItem{
		UserID:    userID,
		ProductID: product.ID,
		Quantity:  quantity,
		AddedAt:   time.Now().UTC(),
	}
	if err := h.DB.Create(&newItem).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.publish(c, map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": product.ID,
		"quantity":  newItem.Quantity,
	})
	return c.JSON(http.StatusOK, newItem)
}

// UpdateQuantity sets an exact quantity; zero removes the line.
func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  *int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil || req.Quantity == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}
	if *req.Quantity < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	if userID, err := GetID(c); err == nil {
		if *req.Quantity == 0 {
			if err := h.DB.Where("user_id = ? AND product_id = ?", userID, req.ProductID).
				Delete(&models.CartItem{}).Error; err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
			return c.NoContent(http.StatusNoContent)
		}
		res := h.DB.Model(&models.CartItem{}).
			Where("user_id = ? AND product_id = ?", userID, req.ProductID).
			Update("quantity", *req.Quantity)
		if res.Error != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
		}
		if res.RowsAffected == 0 {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return c.NoContent(http.StatusNoContent)
	}

	if h.Sessions == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "cart unavailable")
	}
	sessionID := h.sessionID(c, false)
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusNotFound, "item not found")
	}
	if err := h.Sessions.SetQuantity(c.Request().Context(), sessionID, req.ProductID, uint(*req.Quantity)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cart unavailable")
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveFromCart deletes a line by ref: a row id for persisted lines, a
// "session_<productID>" ref for transient ones.
func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	ref := c.Param("ref")

	if productIDStr, ok := strings.CutPrefix(ref, "session_"); ok {
		productID, err := strconv.ParseUint(productIDStr, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid ref")
		}
		sessionID := h.sessionID(c, false)
		if sessionID == "" || h.Sessions == nil {
			return c.NoContent(http.StatusNoContent)
		}
		if err := h.Sessions.Remove(c.Request().Context(), sessionID, uint(productID)); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "cart unavailable")
		}
		return c.NoContent(http.StatusNoContent)
	}

	userID, err := GetID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(ref)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ref")
	}

	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.CartItem{}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":         "cart_item_deleted",
		"userID":       userID,
		"deleted_item": id,
	})
	return c.NoContent(http.StatusNoContent)
}
