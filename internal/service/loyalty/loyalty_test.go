package loyalty

import (
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.LoyaltyAccount{},
		&models.LoyaltyTransaction{},
		&models.LoyaltyReward{},
		&models.Coupon{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func ledgerSum(t *testing.T, db *gorm.DB, accountID uint) int {
	var sum int
	require.NoError(t, db.Model(&models.LoyaltyTransaction{}).
		Where("account_id = ?", accountID).
		Select("COALESCE(SUM(points), 0)").Scan(&sum).Error)
	return sum
}

func TestTierFor(t *testing.T) {
	require.Equal(t, "bronze", TierFor(0))
	require.Equal(t, "bronze", TierFor(499))
	require.Equal(t, "silver", TierFor(500))
	require.Equal(t, "gold", TierFor(1000))
	require.Equal(t, "platinum", TierFor(2000))
	require.Equal(t, "platinum", TierFor(99999))
}

func TestGetOrCreateIsLazy(t *testing.T) {
	db := initTestDB(t)

	a, err := GetOrCreate(db, 7)
	require.NoError(t, err)
	require.EqualValues(t, 7, a.UserID)
	require.Equal(t, 0, a.Points)

	b, err := GetOrCreate(db, 7)
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)

	var count int64
	require.NoError(t, db.Model(&models.LoyaltyAccount{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestEarnAndRedeemKeepLedgerInSync(t *testing.T) {
	db := initTestDB(t)

	account, err := GetOrCreate(db, 1)
	require.NoError(t, err)

	orderID := uint(42)
	require.NoError(t, Earn(db, account, 165, "purchase", "Achat - Commande ORD-20260831-0042", &orderID))
	require.NoError(t, Earn(db, account, 35, "purchase", "Achat", nil))
	require.NoError(t, Redeem(db, account, 100, "redemption", "Échange - Bon de réduction"))

	require.Equal(t, 100, account.Points)
	require.Equal(t, 200, account.TotalEarned)
	require.Equal(t, 100, account.TotalSpent)

	// The balance is always the signed sum of the ledger.
	require.Equal(t, account.Points, ledgerSum(t, db, account.ID))
	require.Equal(t, account.TotalEarned-account.TotalSpent, account.Points)
}

func TestEarnRejectsNonPositivePoints(t *testing.T) {
	db := initTestDB(t)
	account, err := GetOrCreate(db, 1)
	require.NoError(t, err)

	require.ErrorIs(t, Earn(db, account, 0, "purchase", "", nil), ErrValidation)
	require.ErrorIs(t, Earn(db, account, -10, "purchase", "", nil), ErrValidation)
}

func TestRedeemInsufficientMutatesNothing(t *testing.T) {
	db := initTestDB(t)

	account, err := GetOrCreate(db, 1)
	require.NoError(t, err)
	require.NoError(t, Earn(db, account, 50, "purchase", "", nil))

	err = Redeem(db, account, 80, "redemption", "")
	require.ErrorIs(t, err, ErrInsufficientPoints)

	var stored models.LoyaltyAccount
	require.NoError(t, db.First(&stored, account.ID).Error)
	require.Equal(t, 50, stored.Points)
	require.Equal(t, 0, stored.TotalSpent)
	require.Equal(t, 50, ledgerSum(t, db, account.ID))
}

func TestRedeemRewardMintsCoupon(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}

	account, err := GetOrCreate(db, 1)
	require.NoError(t, err)
	require.NoError(t, Earn(db, account, 300, "purchase", "", nil))

	reward := models.LoyaltyReward{
		Name:           "Bon de 15%",
		PointsRequired: 200,
		RewardType:     "discount",
		RewardValue:    15,
		IsActive:       true,
	}
	require.NoError(t, db.Create(&reward).Error)

	got, minted, err := svc.RedeemReward(1, reward.ID)
	require.NoError(t, err)
	require.Equal(t, reward.ID, got.ID)
	require.NotNil(t, minted)

	require.True(t, strings.HasPrefix(minted.Code, "FIDELITE"))
	require.Len(t, minted.Code, len("FIDELITE")+6)
	require.Equal(t, "percentage", minted.DiscountType)
	require.InDelta(t, 15.0, minted.DiscountValue, 1e-9)
	require.Equal(t, 1, minted.MaxUses)
	require.NotNil(t, minted.ValidUntil)
	require.True(t, minted.IsActive)

	var stored models.LoyaltyAccount
	require.NoError(t, db.First(&stored, account.ID).Error)
	require.Equal(t, 100, stored.Points)

	var storedReward models.LoyaltyReward
	require.NoError(t, db.First(&storedReward, reward.ID).Error)
	require.Equal(t, 1, storedReward.TimesRedeemed)
}

func TestRedeemRewardFixedWhenValueOver100(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}

	account, err := GetOrCreate(db, 1)
	require.NoError(t, err)
	require.NoError(t, Earn(db, account, 500, "purchase", "", nil))

	reward := models.LoyaltyReward{
		Name:           "Bon de 150 DH",
		PointsRequired: 400,
		RewardType:     "discount",
		RewardValue:    150,
		IsActive:       true,
	}
	require.NoError(t, db.Create(&reward).Error)

	_, minted, err := svc.RedeemReward(1, reward.ID)
	require.NoError(t, err)
	require.NotNil(t, minted)
	require.Equal(t, "fixed", minted.DiscountType)
}

func TestRedeemRewardFailuresRollBack(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}

	account, err := GetOrCreate(db, 1)
	require.NoError(t, err)
	require.NoError(t, Earn(db, account, 100, "purchase", "", nil))

	_, _, err = svc.RedeemReward(1, 999)
	require.ErrorIs(t, err, ErrRewardNotFound)

	reward := models.LoyaltyReward{
		Name:           "Trop cher",
		PointsRequired: 1000,
		RewardType:     "discount",
		RewardValue:    50,
		IsActive:       true,
	}
	require.NoError(t, db.Create(&reward).Error)

	_, _, err = svc.RedeemReward(1, reward.ID)
	require.ErrorIs(t, err, ErrInsufficientPoints)

	var stored models.LoyaltyAccount
	require.NoError(t, db.First(&stored, account.ID).Error)
	require.Equal(t, 100, stored.Points)

	var coupons int64
	require.NoError(t, db.Model(&models.Coupon{}).Count(&coupons).Error)
	require.EqualValues(t, 0, coupons)

	var storedReward models.LoyaltyReward
	require.NoError(t, db.First(&storedReward, reward.ID).Error)
	require.Equal(t, 0, storedReward.TimesRedeemed)
}

func TestInactiveRewardNotRedeemable(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}

	account, err := GetOrCreate(db, 1)
	require.NoError(t, err)
	require.NoError(t, Earn(db, account, 500, "purchase", "", nil))

	reward := models.LoyaltyReward{
		Name:           "Retiré",
		PointsRequired: 100,
		RewardType:     "discount",
		RewardValue:    10,
		IsActive:       false,
	}
	require.NoError(t, db.Create(&reward).Error)

	_, _, err = svc.RedeemReward(1, reward.ID)
	require.ErrorIs(t, err, ErrRewardNotFound)
}
