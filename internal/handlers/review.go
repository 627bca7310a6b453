package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/models"
)

type ReviewHandler struct {
	DB *gorm.DB
}

// CreateReview upserts the caller's review for a product. One review per
// user per product; posting again overwrites the previous one.
func (h *ReviewHandler) CreateReview(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint   `json:"product_id"`
		Rating    int    `json:"rating"`
		Comment   string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return echo.NewHTTPError(http.StatusBadRequest, "La note doit être entre 1 et 5")
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	// A completed order for this product marks the review as verified.
	var verified int64
	h.DB.Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND order_items.product_id = ? AND orders.status IN ?",
			userID, req.ProductID, []string{"delivered", "completed"}).
		Count(&verified)

	var review models.Review
	err = h.DB.Where("product_id = ? AND user_id = ?", req.ProductID, userID).First(&review).Error
	if err == nil {
		review.Rating = req.Rating
		review.Comment = req.Comment
		review.IsVerified = verified > 0
		if err := h.DB.Save(&review).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, review)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	review = models.Review{
		ProductID:  req.ProductID,
		UserID:     userID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		IsVerified: verified > 0,
	}
	if err := h.DB.Create(&review).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) DeleteReview(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	res := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).
		Delete(&models.Review{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "review not found")
	}
	return c.NoContent(http.StatusNoContent)
}
