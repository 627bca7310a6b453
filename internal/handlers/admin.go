package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/mailer"
	"github.com/quartier-aromes/shop/internal/models"
	"github.com/quartier-aromes/shop/internal/notify"
	"github.com/quartier-aromes/shop/internal/service/coupon"
	"github.com/quartier-aromes/shop/internal/service/loginguard"
)

type AdminHandler struct {
	DB       *gorm.DB
	Guard    *loginguard.Guard
	Notifier *notify.Notifier
	Mailer   *mailer.Mailer
}

// Statuses move forward only; cancellation is allowed until shipment.
var statusRank = map[string]int{
	"pending":    0,
	"processing": 1,
	"shipped":    2,
	"delivered":  3,
}

func statusTransitionAllowed(from, to string) bool {
	if to == "cancelled" {
		return from == "pending" || from == "processing"
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// Dashboard aggregates sales figures over a period given in days
// (default 30).
func (h *AdminHandler) Dashboard(c echo.Context) error {
	days := parseIntDefault(c.QueryParam("days"), 30)
	if days < 1 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	var orderCount int64
	var revenue float64
	h.DB.Model(&models.Order{}).Where("created_at >= ?", since).Count(&orderCount)
	h.DB.Model(&models.Order{}).Where("created_at >= ? AND status != ?", since, "cancelled").
		Select("COALESCE(SUM(total_amount), 0)").Scan(&revenue)

	var userCount, productCount, pendingOrders, unreadMessages int64
	h.DB.Model(&models.User{}).Count(&userCount)
	h.DB.Model(&models.Product{}).Count(&productCount)
	h.DB.Model(&models.Order{}).Where("status = ?", "pending").Count(&pendingOrders)
	h.DB.Model(&models.ContactMessage{}).Where("is_read = ?", false).Count(&unreadMessages)

	type topProduct struct {
		ProductID uint    `json:"product_id"`
		Name      string  `json:"name"`
		Sold      int64   `json:"sold"`
		Revenue   float64 `json:"revenue"`
	}
	var top []topProduct
	h.DB.Model(&models.OrderItem{}).
		Select("order_items.product_id, products.name, SUM(order_items.quantity) AS sold, SUM(order_items.quantity * order_items.price) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("orders.created_at >= ? AND orders.status != ?", since, "cancelled").
		Group("order_items.product_id, products.name").
		Order("sold DESC").Limit(5).
		Scan(&top)

	var lowStock []models.Product
	h.DB.Where("stock <= ?", 5).Order("stock ASC").Limit(10).Find(&lowStock)

	var settledOrders int64
	h.DB.Model(&models.Order{}).Where("created_at >= ? AND status != ?", since, "cancelled").
		Count(&settledOrders)
	avgOrderValue := 0.0
	if settledOrders > 0 {
		avgOrderValue = revenue / float64(settledOrders)
	}

	var recent []models.Order
	h.DB.Where("created_at >= ?", since).Order("created_at DESC").Limit(10).Find(&recent)

	return c.JSON(http.StatusOK, map[string]any{
		"period_days":     days,
		"orders":          orderCount,
		"revenue":         revenue,
		"avg_order_value": avgOrderValue,
		"users":           userCount,
		"products":        productCount,
		"pending_orders":  pendingOrders,
		"unread_messages": unreadMessages,
		"top_products":    top,
		"low_stock":       lowStock,
		"recent_orders":   recent,
	})
}

func (h *AdminHandler) GetUsers(c echo.Context) error {
	var users []models.User
	if err := h.DB.Order("created_at DESC").Find(&users).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) GetOrders(c echo.Context) error {
	query := h.DB.Preload("Items").Order("created_at DESC")
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *AdminHandler) UpdateOrderStatus(c echo.Context) error {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	var order models.Order
	if err := h.DB.First(&order, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if !statusTransitionAllowed(order.Status, req.Status) {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, req.Status))
	}

	order.Status = req.Status
	if req.Status == "delivered" {
		order.PaymentStatus = "paid"
	}
	if err := h.DB.Save(&order).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, order)
}

// AcceptOrder is the one-click pending to processing shortcut.
func (h *AdminHandler) AcceptOrder(c echo.Context) error {
	res := h.DB.Model(&models.Order{}).
		Where("id = ? AND status = ?", c.Param("id"), "pending").
		Update("status", "processing")
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusConflict, "order is not pending")
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "processing"})
}

func (h *AdminHandler) DeleteOrder(c echo.Context) error {
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, c.Param("id")).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type couponRequest struct {
	Code          string     `json:"code"`
	DiscountType  string     `json:"discount_type"`
	DiscountValue float64    `json:"discount_value"`
	MinPurchase   float64    `json:"min_purchase"`
	MaxUses       int        `json:"max_uses"`
	ValidFrom     *time.Time `json:"valid_from"`
	ValidUntil    *time.Time `json:"valid_until"`
}

func (r *couponRequest) validate() error {
	if r.Code == "" {
		return errors.New("code is required")
	}
	if r.DiscountType != "percentage" && r.DiscountType != "fixed" {
		return errors.New("discount_type must be percentage or fixed")
	}
	if r.DiscountValue <= 0 {
		return errors.New("discount_value must be positive")
	}
	if r.DiscountType == "percentage" && r.DiscountValue > 100 {
		return errors.New("percentage discount cannot exceed 100")
	}
	return nil
}

func (h *AdminHandler) GetCoupons(c echo.Context) error {
	var coupons []models.Coupon
	if err := h.DB.Order("created_at DESC").Find(&coupons).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, coupons)
}

func (h *AdminHandler) CreateCoupon(c echo.Context) error {
	var req couponRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	newCoupon := models.Coupon{
		Code:          coupon.Normalize(req.Code),
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		MinPurchase:   req.MinPurchase,
		MaxUses:       req.MaxUses,
		IsActive:      true,
		ValidFrom:     req.ValidFrom,
		ValidUntil:    req.ValidUntil,
	}
	if err := h.DB.Create(&newCoupon).Error; err != nil {
		return echo.NewHTTPError(http.StatusConflict, "coupon code already exists")
	}
	return c.JSON(http.StatusCreated, newCoupon)
}

func (h *AdminHandler) UpdateCoupon(c echo.Context) error {
	var existing models.Coupon
	if err := h.DB.First(&existing, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "coupon not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var req couponRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	existing.Code = coupon.Normalize(req.Code)
	existing.DiscountType = req.DiscountType
	existing.DiscountValue = req.DiscountValue
	existing.MinPurchase = req.MinPurchase
	existing.MaxUses = req.MaxUses
	existing.ValidFrom = req.ValidFrom
	existing.ValidUntil = req.ValidUntil
	if err := h.DB.Save(&existing).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, existing)
}

func (h *AdminHandler) ToggleCoupon(c echo.Context) error {
	var existing models.Coupon
	if err := h.DB.First(&existing, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "coupon not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	existing.IsActive = !existing.IsActive
	if err := h.DB.Save(&existing).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, existing)
}

func (h *AdminHandler) DeleteCoupon(c echo.Context) error {
	res := h.DB.Delete(&models.Coupon{}, c.Param("id"))
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "coupon not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// SecurityDashboard summarizes recent login activity: failures in the last
// 24h, currently locked IPs, the busiest source addresses and the latest
// attempts.
func (h *AdminHandler) SecurityDashboard(c echo.Context) error {
	now := time.Now().UTC()
	dayAgo := now.Add(-24 * time.Hour)
	windowStart := now.Add(-loginguard.LockoutWindow)

	var failed24h int64
	h.DB.Model(&models.LoginAttempt{}).
		Where("attempt_time >= ? AND success = ?", dayAgo, false).
		Count(&failed24h)

	type lockedIP struct {
		IPAddress string `json:"ip_address"`
		Failures  int64  `json:"failures"`
	}
	var locked []lockedIP
	h.DB.Model(&models.LoginAttempt{}).
		Select("ip_address, COUNT(*) AS failures").
		Where("attempt_time >= ? AND success = ?", windowStart, false).
		Group("ip_address").
		Having("COUNT(*) >= ?", loginguard.MaxAttempts).
		Scan(&locked)

	var topSources []lockedIP
	h.DB.Model(&models.LoginAttempt{}).
		Select("ip_address, COUNT(*) AS failures").
		Where("attempt_time >= ? AND success = ?", dayAgo, false).
		Group("ip_address").
		Order("failures DESC").Limit(10).
		Scan(&topSources)

	var recent []models.LoginAttempt
	h.DB.Order("attempt_time DESC").Limit(50).Find(&recent)

	return c.JSON(http.StatusOK, map[string]any{
		"failed_24h":      failed24h,
		"locked_ips":      locked,
		"top_sources":     topSources,
		"recent_attempts": recent,
	})
}

// ClearOldAttempts purges login attempts older than the given retention in
// days (default 30).
func (h *AdminHandler) ClearOldAttempts(c echo.Context) error {
	days := parseIntDefault(c.QueryParam("days"), 30)
	if days < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid retention")
	}

	removed, err := h.Guard.PurgeOlderThan(days)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"removed": removed})
}

func (h *AdminHandler) GetNotifications(c echo.Context) error {
	var notifications []models.Notification
	if err := h.DB.Order("created_at DESC").Limit(100).
		Find(&notifications).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, notifications)
}

func (h *AdminHandler) MarkNotificationRead(c echo.Context) error {
	res := h.DB.Model(&models.Notification{}).
		Where("id = ?", c.Param("id")).
		Update("is_read", true)
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "notification not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// SendNewsletter delivers a campaign to a recipient segment: "all" users,
// "active" users with at least one order, or "vip" users whose lifetime
// spend exceeds 5000 DH. Admin accounts are never mailed.
func (h *AdminHandler) SendNewsletter(c echo.Context) error {
	var req struct {
		Subject    string `json:"subject"`
		Content    string `json:"content"`
		Recipients string `json:"recipients"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if req.Subject == "" || req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject and content are required")
	}

	query := h.DB.Model(&models.User{}).Where("role != ?", "admin")
	switch req.Recipients {
	case "", "all":
	case "active":
		query = query.Where("id IN (?)",
			h.DB.Model(&models.Order{}).Select("DISTINCT user_id"))
	case "vip":
		query = query.Where("id IN (?)",
			h.DB.Model(&models.Order{}).
				Select("user_id").
				Where("status != ?", "cancelled").
				Group("user_id").
				Having("SUM(total_amount) > ?", 5000.0))
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "recipients must be all, active or vip")
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	sent := 0
	for _, u := range users {
		if h.Mailer.Send(req.Subject, u.Email, req.Content) {
			sent++
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"recipients": len(users),
		"sent":       sent,
	})
}

func (h *AdminHandler) GetContactMessages(c echo.Context) error {
	var messages []models.ContactMessage
	if err := h.DB.Order("created_at DESC").Find(&messages).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, messages)
}

func (h *AdminHandler) MarkMessageRead(c echo.Context) error {
	res := h.DB.Model(&models.ContactMessage{}).
		Where("id = ?", c.Param("id")).
		Update("is_read", true)
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "message not found")
	}
	return c.NoContent(http.StatusNoContent)
}
