package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/models"
	"github.com/quartier-aromes/shop/internal/service/checkout"
)

type CheckoutHandler struct {
	DB       *gorm.DB
	Checkout *checkout.Service
}

type checkoutRequest struct {
	CouponCode      string `json:"coupon_code"`
	ShippingAddress string `json:"shipping_address"`
	Phone           string `json:"phone"`
	PaymentMethod   string `json:"payment_method"`
	Notes           string `json:"notes"`
	WhatsAppHandoff bool   `json:"whatsapp_handoff"`
}

func checkoutError(err error) error {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		return echo.NewHTTPError(http.StatusBadRequest, "Votre panier est vide")
	case errors.Is(err, checkout.ErrInvalidQuantity):
		return echo.NewHTTPError(http.StatusBadRequest, "Quantité invalide dans le panier")
	case errors.Is(err, checkout.ErrProductNotFound):
		return echo.NewHTTPError(http.StatusConflict, "Un produit du panier n'existe plus")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "checkout failed")
	}
}

// Quote prices the cart without committing anything, so the client can show
// totals and coupon feedback before the user confirms.
func (h *CheckoutHandler) Quote(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	res, err := h.Checkout.Quote(userID, c.QueryParam("coupon_code"))
	if err != nil {
		return checkoutError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"subtotal":      res.Subtotal,
		"discount":      res.Discount,
		"shipping_fee":  res.ShippingFee,
		"total":         res.Subtotal - res.Discount + res.ShippingFee,
		"points_earned": res.PointsEarned,
		"coupon_notice": res.CouponNotice,
	})
}

// Settle turns the cart into an order.
func (h *CheckoutHandler) Settle(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if req.ShippingAddress == "" || req.Phone == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Adresse et téléphone sont obligatoires")
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	res, err := h.Checkout.Settle(c.Request().Context(), user, checkout.Request{
		CouponCode:      req.CouponCode,
		ShippingAddress: req.ShippingAddress,
		Phone:           req.Phone,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		WhatsAppHandoff: req.WhatsAppHandoff,
	})
	if err != nil {
		return checkoutError(err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"order":         res.Order,
		"items":         res.Items,
		"subtotal":      res.Subtotal,
		"discount":      res.Discount,
		"shipping_fee":  res.ShippingFee,
		"points_earned": res.PointsEarned,
		"coupon_notice": res.CouponNotice,
		"whatsapp_url":  res.WhatsAppURL,
	})
}

// GetOrders lists the caller's orders, newest first.
func (h *CheckoutHandler) GetOrders(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	var orders []models.Order
	if err := h.DB.Preload("Items").Where("user_id = ?", userID).
		Order("created_at DESC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *CheckoutHandler) GetOrder(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	var order models.Order
	if err := h.DB.Preload("Items").
		Where("id = ? AND user_id = ?", c.Param("id"), userID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, order)
}
