package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/metrics"
	"github.com/quartier-aromes/shop/internal/models"
	"github.com/quartier-aromes/shop/internal/service/loyalty"
)

type LoyaltyHandler struct {
	DB      *gorm.DB
	Loyalty *loyalty.Service
}

// GetAccount returns the caller's loyalty account with its derived tier and
// recent ledger entries.
func (h *LoyaltyHandler) GetAccount(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	account, err := loyalty.GetOrCreate(h.DB, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var transactions []models.LoyaltyTransaction
	if err := h.DB.Where("account_id = ?", account.ID).
		Order("created_at DESC").Limit(20).Find(&transactions).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"account":      account,
		"tier":         loyalty.TierFor(account.TotalEarned),
		"transactions": transactions,
	})
}

// GetRewards lists active rewards together with whether the caller can
// afford each one.
func (h *LoyaltyHandler) GetRewards(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	account, err := loyalty.GetOrCreate(h.DB, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var rewards []models.LoyaltyReward
	if err := h.DB.Where("is_active = ?", true).
		Order("points_required ASC").Find(&rewards).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	type rewardView struct {
		models.LoyaltyReward
		Affordable bool `json:"affordable"`
	}
	views := make([]rewardView, 0, len(rewards))
	for _, r := range rewards {
		views = append(views, rewardView{
			LoyaltyReward: r,
			Affordable:    account.Points >= r.PointsRequired,
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"points":  account.Points,
		"rewards": views,
	})
}

// RedeemReward spends points on a reward. Discount rewards mint a fresh
// single-use coupon returned in the response.
func (h *LoyaltyHandler) RedeemReward(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	var req struct {
		RewardID uint `json:"reward_id"`
	}
	if err := c.Bind(&req); err != nil || req.RewardID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	reward, coupon, err := h.Loyalty.RedeemReward(userID, req.RewardID)
	switch {
	case errors.Is(err, loyalty.ErrRewardNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Récompense introuvable")
	case errors.Is(err, loyalty.ErrInsufficientPoints):
		return echo.NewHTTPError(http.StatusBadRequest, "Points insuffisants")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "redeem failed")
	}

	metrics.LoyaltyPointsRedeemedTotal.Add(float64(reward.PointsRequired))

	resp := map[string]any{
		"message": "Récompense échangée avec succès",
		"reward":  reward,
	}
	if coupon != nil {
		resp["coupon_code"] = coupon.Code
	}
	return c.JSON(http.StatusOK, resp)
}
