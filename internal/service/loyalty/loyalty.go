package loyalty

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/models"
)

var (
	ErrInsufficientPoints = errors.New("insufficient loyalty points")
	ErrValidation         = errors.New("validation")
	ErrRewardNotFound     = errors.New("reward not found")
)

// Tier thresholds over lifetime points earned.
const (
	TierSilver   = 500
	TierGold     = 1000
	TierPlatinum = 2000
)

// TierFor derives the membership tier from lifetime earned points. The tier
// is never stored, which keeps it from drifting out of sync with the ledger.
func TierFor(totalEarned int) string {
	switch {
	case totalEarned >= TierPlatinum:
		return "platinum"
	case totalEarned >= TierGold:
		return "gold"
	case totalEarned >= TierSilver:
		return "silver"
	default:
		return "bronze"
	}
}

// GetOrCreate fetches the user's loyalty account, creating it lazily on
// first need.
func GetOrCreate(db *gorm.DB, userID uint) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	err := db.Where("user_id = ?", userID).First(&account).Error
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("loyalty account lookup: %w", err)
	}

	account = models.LoyaltyAccount{UserID: userID}
	if err := db.Create(&account).Error; err != nil {
		return nil, fmt.Errorf("loyalty account create: %w", err)
	}
	return &account, nil
}

// Earn credits points to the account and appends the matching ledger row.
// Run inside the caller's transaction so balance and ledger move together.
func Earn(tx *gorm.DB, account *models.LoyaltyAccount, points int, txType, description string, orderID *uint) error {
	if points <= 0 {
		return fmt.Errorf("earn requires positive points: %w", ErrValidation)
	}

	account.Points += points
	account.TotalEarned += points
	account.UpdatedAt = time.Now().UTC()
	if err := tx.Save(account).Error; err != nil {
		return fmt.Errorf("loyalty earn: %w", err)
	}

	entry := models.LoyaltyTransaction{
		AccountID:   account.ID,
		Points:      points,
		Type:        txType,
		Description: description,
		OrderID:     orderID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("loyalty ledger append: %w", err)
	}
	return nil
}

// Redeem debits points. When the balance is short it fails with
// ErrInsufficientPoints and mutates nothing.
func Redeem(tx *gorm.DB, account *models.LoyaltyAccount, points int, txType, description string) error {
	if points <= 0 {
		return fmt.Errorf("redeem requires positive points: %w", ErrValidation)
	}
	if account.Points < points {
		return ErrInsufficientPoints
	}

	account.Points -= points
	account.TotalSpent += points
	account.UpdatedAt = time.Now().UTC()
	if err := tx.Save(account).Error; err != nil {
		return fmt.Errorf("loyalty redeem: %w", err)
	}

	entry := models.LoyaltyTransaction{
		AccountID:   account.ID,
		Points:      -points,
		Type:        txType,
		Description: description,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("loyalty ledger append: %w", err)
	}
	return nil
}

const (
	couponCodePrefix   = "FIDELITE"
	couponCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	couponCodeLen      = 6
	mintedCouponDays   = 30
)

func mintCode() string {
	b := make([]byte, couponCodeLen)
	for i := range b {
		b[i] = couponCodeAlphabet[rand.IntN(len(couponCodeAlphabet))]
	}
	return couponCodePrefix + string(b)
}

type Service struct {
	DB *gorm.DB
}

// RedeemReward exchanges points for a reward. A "discount" reward mints a
// single-use coupon valid 30 days; the mint commits in the same transaction
// as the ledger debit.
func (s *Service) RedeemReward(userID, rewardID uint) (*models.LoyaltyReward, *models.Coupon, error) {
	var reward models.LoyaltyReward
	var minted *models.Coupon

	txErr := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND is_active = ?", rewardID, true).First(&reward).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRewardNotFound
			}
			return fmt.Errorf("reward lookup: %w", err)
		}

		account, err := GetOrCreate(tx, userID)
		if err != nil {
			return err
		}

		if err := Redeem(tx, account, reward.PointsRequired, "redemption",
			fmt.Sprintf("Échange - %s", reward.Name)); err != nil {
			return err
		}

		if err := tx.Model(&reward).Update("times_redeemed", gorm.Expr("times_redeemed + 1")).Error; err != nil {
			return fmt.Errorf("reward counter: %w", err)
		}

		if reward.RewardType == "discount" {
			discountType := "percentage"
			if reward.RewardValue > 100 {
				discountType = "fixed"
			}
			until := time.Now().UTC().AddDate(0, 0, mintedCouponDays)
			c := models.Coupon{
				Code:          mintCode(),
				DiscountType:  discountType,
				DiscountValue: reward.RewardValue,
				MaxUses:       1,
				ValidUntil:    &until,
				IsActive:      true,
			}
			if err := tx.Create(&c).Error; err != nil {
				return fmt.Errorf("coupon mint: %w", err)
			}
			minted = &c
		}
		return nil
	})
	if txErr != nil {
		return nil, nil, txErr
	}
	return &reward, minted, nil
}
