package cart

import (
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
	if err := db.AutoMigrate(&models.CartItem{}, &models.Product{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func TestMergeMapSumsExistingRows(t *testing.T) {
	db := initTestDB(t)

	require.NoError(t, db.Create(&models.CartItem{
		UserID:    1,
		ProductID: 10,
		Quantity:  2,
	}).Error)

	require.NoError(t, MergeMap(db, 1, map[uint]uint{10: 1}))

	var item models.CartItem
	require.NoError(t, db.Where("user_id = ? AND product_id = ?", 1, 10).First(&item).Error)
	require.EqualValues(t, 3, item.Quantity)

	var rows int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&rows).Error)
	require.EqualValues(t, 1, rows)
}

func TestMergeMapCreatesMissingRows(t *testing.T) {
	db := initTestDB(t)

	require.NoError(t, MergeMap(db, 1, map[uint]uint{20: 2}))

	var item models.CartItem
	require.NoError(t, db.Where("user_id = ? AND product_id = ?", 1, 20).First(&item).Error)
	require.EqualValues(t, 2, item.Quantity)
}

func TestMergeMapMixedAndZeroQuantities(t *testing.T) {
	db := initTestDB(t)

	require.NoError(t, db.Create(&models.CartItem{
		UserID:    1,
		ProductID: 10,
		Quantity:  2,
	}).Error)

	require.NoError(t, MergeMap(db, 1, map[uint]uint{10: 1, 20: 2, 30: 0}))

	var a, b models.CartItem
	require.NoError(t, db.Where("user_id = ? AND product_id = ?", 1, 10).First(&a).Error)
	require.EqualValues(t, 3, a.Quantity)
	require.NoError(t, db.Where("user_id = ? AND product_id = ?", 1, 20).First(&b).Error)
	require.EqualValues(t, 2, b.Quantity)

	// Zero-quantity entries never materialize.
	err := db.Where("user_id = ? AND product_id = ?", 1, 30).First(&models.CartItem{}).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMergeMapScopedToUser(t *testing.T) {
	db := initTestDB(t)

	require.NoError(t, db.Create(&models.CartItem{
		UserID:    2,
		ProductID: 10,
		Quantity:  5,
	}).Error)

	require.NoError(t, MergeMap(db, 1, map[uint]uint{10: 1}))

	var other models.CartItem
	require.NoError(t, db.Where("user_id = ? AND product_id = ?", 2, 10).First(&other).Error)
	require.EqualValues(t, 5, other.Quantity)
}

func TestMergeWithoutSessionStoreIsNoop(t *testing.T) {
	db := initTestDB(t)
	c := &Consolidator{DB: db}

	require.NoError(t, c.Merge(t.Context(), 1, "some-session"))
	require.NoError(t, (&Consolidator{DB: db}).Merge(t.Context(), 1, ""))

	var rows int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&rows).Error)
	require.EqualValues(t, 0, rows)
}
