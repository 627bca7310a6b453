package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/models"
	"github.com/quartier-aromes/shop/internal/service/loginguard"
)

func initAdminTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Coupon{},
		&models.BlogPost{},
		&models.ContactMessage{},
		&models.Notification{},
		&models.LoginAttempt{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func newAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{DB: db, Guard: &loginguard.Guard{DB: db}}
}

func seedUser(t *testing.T, db *gorm.DB, username, role string) models.User {
	t.Helper()
	u := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

var seedOrderSeq int

func seedOrder(t *testing.T, db *gorm.DB, userID uint, status string, total float64) models.Order {
	t.Helper()
	seedOrderSeq++
	o := models.Order{
		UserID:      userID,
		OrderNumber: fmt.Sprintf("TEST-%04d", seedOrderSeq),
		Status:      status,
		TotalAmount: total,
	}
	require.NoError(t, db.Create(&o).Error)
	return o
}

func TestUpdateOrderStatusForwardOnly(t *testing.T) {
	db := initAdminTestDB(t)
	h := newAdminHandler(db)
	e := echo.New()

	u := seedUser(t, db, "buyer", "user")
	order := seedOrder(t, db, u.ID, "pending", 100)

	move := func(orderID uint, status string) error {
		c, _ := postJSON(e, "/admin/orders", map[string]string{"status": status})
		c.SetParamNames("id")
		c.SetParamValues(fmt.Sprint(orderID))
		return h.UpdateOrderStatus(c)
	}

	require.NoError(t, move(order.ID, "processing"))
	require.NoError(t, move(order.ID, "shipped"))

	// Backwards moves are refused once shipped.
	err := move(order.ID, "processing")
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, he.Code)

	// So is cancellation.
	err = move(order.ID, "cancelled")
	he, ok = err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, he.Code)

	require.NoError(t, move(order.ID, "delivered"))

	var stored models.Order
	require.NoError(t, db.First(&stored, order.ID).Error)
	require.Equal(t, "delivered", stored.Status)
	require.Equal(t, "paid", stored.PaymentStatus)
}

func TestUpdateOrderStatusAllowsEarlyCancel(t *testing.T) {
	db := initAdminTestDB(t)
	h := newAdminHandler(db)
	e := echo.New()

	u := seedUser(t, db, "buyer", "user")
	order := seedOrder(t, db, u.ID, "processing", 100)

	c, _ := postJSON(e, "/admin/orders", map[string]string{"status": "cancelled"})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(order.ID))
	require.NoError(t, h.UpdateOrderStatus(c))

	var stored models.Order
	require.NoError(t, db.First(&stored, order.ID).Error)
	require.Equal(t, "cancelled", stored.Status)
}

func TestAcceptOrder(t *testing.T) {
	db := initAdminTestDB(t)
	h := newAdminHandler(db)
	e := echo.New()

	u := seedUser(t, db, "buyer", "user")
	order := seedOrder(t, db, u.ID, "pending", 100)

	c, rec := postJSON(e, "/admin/orders", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(order.ID))
	require.NoError(t, h.AcceptOrder(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Order
	require.NoError(t, db.First(&stored, order.ID).Error)
	require.Equal(t, "processing", stored.Status)

	// A second accept finds nothing pending.
	c2, _ := postJSON(e, "/admin/orders", nil)
	c2.SetParamNames("id")
	c2.SetParamValues(fmt.Sprint(order.ID))
	err := h.AcceptOrder(c2)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusConflict, he.Code)
}

func TestSendNewsletterSegments(t *testing.T) {
	db := initAdminTestDB(t)
	h := newAdminHandler(db)
	e := echo.New()

	admin := seedUser(t, db, "boss", "admin")
	seedUser(t, db, "quiet", "user")
	casual := seedUser(t, db, "casual", "user")
	whale := seedUser(t, db, "whale", "user")

	seedOrder(t, db, casual.ID, "delivered", 150)
	// Cancelled spend does not count towards VIP.
	seedOrder(t, db, casual.ID, "cancelled", 10000)
	seedOrder(t, db, whale.ID, "delivered", 3000)
	seedOrder(t, db, whale.ID, "delivered", 2500)
	// Admin accounts never receive campaigns.
	seedOrder(t, db, admin.ID, "delivered", 9000)

	send := func(segment string) map[string]any {
		c, rec := postJSON(e, "/admin/newsletter", map[string]string{
			"subject":    "Nouveautés",
			"content":    "<p>Découvrez nos nouveaux parfums.</p>",
			"recipients": segment,
		})
		require.NoError(t, h.SendNewsletter(c))
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body
	}

	require.Equal(t, float64(3), send("all")["recipients"])
	require.Equal(t, float64(2), send("active")["recipients"])
	require.Equal(t, float64(1), send("vip")["recipients"])
	// No SMTP host configured, nothing actually goes out.
	require.Equal(t, float64(0), send("all")["sent"])

	c, _ := postJSON(e, "/admin/newsletter", map[string]string{
		"subject": "Nouveautés", "content": "x", "recipients": "everyone",
	})
	err := h.SendNewsletter(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, he.Code)

	c, _ = postJSON(e, "/admin/newsletter", map[string]string{"subject": "Nouveautés"})
	err = h.SendNewsletter(c)
	he, ok = err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestBlogAdminCRUD(t *testing.T) {
	db := initAdminTestDB(t)
	h := &BlogHandler{DB: db}
	e := echo.New()

	c, rec := postJSON(e, "/admin/blog", map[string]any{
		"title":         "Guide des Parfums 2026",
		"content":       "Les notes fraîches dominent la saison.",
		"blog_category": "guides",
		"is_published":  true,
	})
	require.NoError(t, h.CreatePost(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.BlogPost
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "guide-des-parfums-2026", created.Slug)

	// Duplicate slug is refused.
	cDup, _ := postJSON(e, "/admin/blog", map[string]any{
		"title":   "Autre titre",
		"slug":    created.Slug,
		"content": "x",
	})
	err := h.CreatePost(cDup)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusConflict, he.Code)

	cUpd, recUpd := postJSON(e, "/admin/blog", map[string]any{
		"title":        "Guide mis à jour",
		"slug":         "guide-ete",
		"content":      "Version révisée.",
		"is_published": false,
	})
	cUpd.SetParamNames("id")
	cUpd.SetParamValues(fmt.Sprint(created.ID))
	require.NoError(t, h.UpdatePost(cUpd))
	require.Equal(t, http.StatusOK, recUpd.Code)

	var updated models.BlogPost
	require.NoError(t, db.First(&updated, created.ID).Error)
	require.Equal(t, "guide-ete", updated.Slug)
	require.False(t, updated.IsPublished)

	cDel, _ := postJSON(e, "/admin/blog", nil)
	cDel.SetParamNames("id")
	cDel.SetParamValues(fmt.Sprint(created.ID))
	require.NoError(t, h.DeletePost(cDel))

	var count int64
	db.Model(&models.BlogPost{}).Count(&count)
	require.Zero(t, count)
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "parfum-de-nuit", slugify("Parfum de Nuit"))
	require.Equal(t, "top-10-2026", slugify("Top 10 (2026)!"))
	require.Equal(t, "", slugify("---"))
}
