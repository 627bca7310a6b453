package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/hash"
	"github.com/quartier-aromes/shop/internal/models"
	"github.com/quartier-aromes/shop/internal/mykafka"
	"github.com/quartier-aromes/shop/internal/service/loginguard"
	"github.com/quartier-aromes/shop/internal/service/token"
)

func InitTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.CartItem{},
		&models.RefreshToken{},
		&models.LoginAttempt{},
		&models.PasswordReset{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func newAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{
		DB:       db,
		Tokens:   &token.Service{DB: db, JWTSecret: []byte("jwt-test"), RefreshSecret: []byte("refresh-test")},
		Guard:    &loginguard.Guard{DB: db},
		Producer: &mykafka.Producer{},
	}
}

func postJSON(e *echo.Echo, path string, payload any) (echo.Context, *httptest.ResponseRecorder) {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRegister(t *testing.T) {
	db := InitTestDB(t)
	h := newAuthHandler(db)
	e := echo.New()

	c, rec := postJSON(e, "/register", map[string]string{
		"username": "test_user",
		"email":    "test@example.com",
		"password": "password",
	})
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "test_user", created.Username)
	require.Equal(t, "user", created.Role)
	require.NotEmpty(t, created.ID)

	var stored models.User
	require.NoError(t, db.First(&stored, created.ID).Error)
	require.NotEqual(t, "password", stored.PasswordHash)

	// Same email again: conflict.
	cDup, _ := postJSON(e, "/register", map[string]string{
		"username": "other_user",
		"email":    "test@example.com",
		"password": "password",
	})
	err := h.Register(cDup)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusConflict, he.Code)
}

func TestRegisterValidation(t *testing.T) {
	db := InitTestDB(t)
	h := newAuthHandler(db)
	e := echo.New()

	c, _ := postJSON(e, "/register", map[string]string{"username": "x"})
	err := h.Register(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, he.Code)

	c, _ = postJSON(e, "/register", map[string]string{
		"username":         "x",
		"email":            "x@example.com",
		"password":         "one",
		"confirm_password": "two",
	})
	err = h.Register(c)
	he, ok = err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func seedLoginUser(t *testing.T, db *gorm.DB) models.User {
	pwHash, err := hash.HashPassword("password")
	require.NoError(t, err)
	user := models.User{
		Username:     "test_user",
		Email:        "test@example.com",
		PasswordHash: pwHash,
		Role:         "user",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestLogin(t *testing.T) {
	db := InitTestDB(t)
	h := newAuthHandler(db)
	e := echo.New()
	seedLoginUser(t, db)

	c, rec := postJSON(e, "/login", map[string]string{
		"email":    "test@example.com",
		"password": "password",
	})
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access_token"])
	require.NotEmpty(t, resp["refresh_token"])
	require.Equal(t, false, resp["is_admin"])

	cookies := rec.Result().Cookies()
	names := make(map[string]bool, len(cookies))
	for _, ck := range cookies {
		names[ck.Name] = true
	}
	require.True(t, names["accessToken"])
	require.True(t, names["refreshToken"])

	var stored models.RefreshToken
	require.NoError(t, db.First(&stored).Error)
	require.False(t, stored.Revoked)
}

func TestLoginWrongPasswordReportsRemaining(t *testing.T) {
	db := InitTestDB(t)
	h := newAuthHandler(db)
	e := echo.New()
	seedLoginUser(t, db)

	c, _ := postJSON(e, "/login", map[string]string{
		"email":    "test@example.com",
		"password": "wrong",
	})
	err := h.Login(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, he.Code)
	require.Contains(t, fmt.Sprint(he.Message), "Il vous reste 4 tentative(s)")
}

func TestLoginLockout(t *testing.T) {
	db := InitTestDB(t)
	h := newAuthHandler(db)
	e := echo.New()
	seedLoginUser(t, db)

	for i := 0; i < loginguard.MaxAttempts; i++ {
		c, _ := postJSON(e, "/login", map[string]string{
			"email":    "test@example.com",
			"password": "wrong",
		})
		err := h.Login(c)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		require.Equal(t, http.StatusUnauthorized, he.Code)
	}

	// Sixth try is refused before any credential check, even with the
	// right password.
	c, _ := postJSON(e, "/login", map[string]string{
		"email":    "test@example.com",
		"password": "password",
	})
	err := h.Login(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusTooManyRequests, he.Code)

	// The refused try recorded nothing.
	var attempts int64
	require.NoError(t, db.Model(&models.LoginAttempt{}).Count(&attempts).Error)
	require.EqualValues(t, loginguard.MaxAttempts, attempts)
}

func TestLoginSuccessResetsGuard(t *testing.T) {
	db := InitTestDB(t)
	h := newAuthHandler(db)
	e := echo.New()
	seedLoginUser(t, db)

	for i := 0; i < loginguard.MaxAttempts-1; i++ {
		c, _ := postJSON(e, "/login", map[string]string{
			"email":    "test@example.com",
			"password": "wrong",
		})
		require.Error(t, h.Login(c))
	}

	c, rec := postJSON(e, "/login", map[string]string{
		"email":    "test@example.com",
		"password": "password",
	})
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var failed int64
	require.NoError(t, db.Model(&models.LoginAttempt{}).
		Where("success = ?", false).Count(&failed).Error)
	require.EqualValues(t, 0, failed)
}

func TestForgotAndResetPassword(t *testing.T) {
	db := InitTestDB(t)
	h := newAuthHandler(db)
	e := echo.New()
	user := seedLoginUser(t, db)

	c, rec := postJSON(e, "/forgot-password", map[string]string{"email": "test@example.com"})
	require.NoError(t, h.ForgotPassword(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// Unknown addresses get the same answer.
	cUnknown, recUnknown := postJSON(e, "/forgot-password", map[string]string{"email": "ghost@example.com"})
	require.NoError(t, h.ForgotPassword(cUnknown))
	require.Equal(t, rec.Body.String(), recUnknown.Body.String())

	var reset models.PasswordReset
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&reset).Error)

	cReset, recReset := postJSON(e, "/reset-password/"+reset.Token, map[string]string{"password": "newpassword"})
	cReset.SetParamNames("token")
	cReset.SetParamValues(reset.Token)
	require.NoError(t, h.ResetPassword(cReset))
	require.Equal(t, http.StatusOK, recReset.Code)

	var updated models.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	require.True(t, hash.CheckPassword(updated.PasswordHash, "newpassword"))

	// The link is single use.
	cAgain, _ := postJSON(e, "/reset-password/"+reset.Token, map[string]string{"password": "another"})
	cAgain.SetParamNames("token")
	cAgain.SetParamValues(reset.Token)
	err := h.ResetPassword(cAgain)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, he.Code)
}
