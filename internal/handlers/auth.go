package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/hash"
	"github.com/quartier-aromes/shop/internal/mailer"
	"github.com/quartier-aromes/shop/internal/metrics"
	"github.com/quartier-aromes/shop/internal/models"
	"github.com/quartier-aromes/shop/internal/mykafka"
	"github.com/quartier-aromes/shop/internal/service/cart"
	"github.com/quartier-aromes/shop/internal/service/loginguard"
	"github.com/quartier-aromes/shop/internal/service/token"
)

type AuthHandler struct {
	DB           *gorm.DB
	Tokens       *token.Service
	Guard        *loginguard.Guard
	Consolidator *cart.Consolidator
	Mailer       *mailer.Mailer
	Producer     *mykafka.Producer
}

func (h *AuthHandler) publish(c echo.Context, topic string, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, topic, fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Username        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
		FirstName       string `json:"first_name"`
		LastName        string `json:"last_name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username, email and password are required")
	}
	if req.ConfirmPassword != "" && req.Password != req.ConfirmPassword {
		return echo.NewHTTPError(http.StatusBadRequest, "passwords do not match")
	}

	var existing models.User
	err := h.DB.Where("email = ? OR username = ?", req.Email, req.Username).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusConflict, "email or username already in use")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}

	firstName := req.FirstName
	if firstName == "" {
		firstName = req.Username
	}

	// New accounts are always customers, never admins.
	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: pwHash,
		FirstName:    firstName,
		LastName:     req.LastName,
		Role:         "user",
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}

	if h.Mailer != nil {
		h.Mailer.SendWelcome(user.Email, user.FirstName)
	}

	h.publish(c, "user_events", map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	ip := c.RealIP()
	userAgent := c.Request().UserAgent()

	if err := h.Guard.Check(ip); err != nil {
		if errors.Is(err, loginguard.ErrLockedOut) {
			metrics.LoginLockoutsTotal.Inc()
			return echo.NewHTTPError(http.StatusTooManyRequests,
				"Trop de tentatives de connexion. Veuillez réessayer dans 15 minutes.")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	var user models.User
	lookupErr := h.DB.Where("email = ?", req.Email).First(&user).Error
	authenticated := lookupErr == nil && hash.CheckPassword(user.PasswordHash, req.Password)

	attemptedAs := req.Email
	if authenticated {
		attemptedAs = user.Username
	}
	if err := h.Guard.Record(ip, attemptedAs, userAgent, authenticated); err != nil {
		c.Logger().Errorf("recording login attempt: %v", err)
	}

	if !authenticated {
		remaining, err := h.Guard.Remaining(ip)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
		}
		if remaining == 0 {
			return echo.NewHTTPError(http.StatusUnauthorized,
				"Trop de tentatives de connexion. Veuillez réessayer dans 15 minutes.")
		}
		return echo.NewHTTPError(http.StatusUnauthorized,
			fmt.Sprintf("Email ou mot de passe incorrect. Il vous reste %d tentative(s).", remaining))
	}

	// Fold the visitor's session cart into the persistent one. A merge
	// failure doesn't block the login.
	if h.Consolidator != nil {
		if cookie, err := c.Cookie("cartSession"); err == nil {
			if err := h.Consolidator.Merge(c.Request().Context(), user.ID, cookie.Value); err != nil {
				c.Logger().Errorf("cart consolidation: %v", err)
			}
			c.SetCookie(CreateCookie("cartSession", "", "/", time.Now().Add(-time.Hour)))
		}
	}

	access, refresh, err := h.Tokens.IssuePair(user.ID, user.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	c.SetCookie(CreateCookie("accessToken", access, "/", time.Now().Add(token.AccessTTL)))
	c.SetCookie(CreateCookie("refreshToken", refresh, "/", time.Now().Add(token.RefreshTTL)))

	h.publish(c, "user_events", map[string]any{
		"type":     "user_logged_in",
		"userID":   user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"is_admin":      user.Role == "admin",
	})
}

func (h *AuthHandler) LogOut(c echo.Context) error {
	refreshCookie, err := c.Cookie("refreshToken")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "not logged in")
	}

	if err := h.Tokens.Revoke(refreshCookie.Value); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "logout failed")
	}

	expired := time.Now().Add(-1 * time.Hour)
	c.SetCookie(CreateCookie("accessToken", "", "/", expired))
	c.SetCookie(CreateCookie("refreshToken", "", "/", expired))

	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

const resetTokenTTL = time.Hour

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	// Same response whether or not the account exists.
	resp := echo.Map{"message": "Si cet email existe, un lien de réinitialisation a été envoyé."}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return c.JSON(http.StatusOK, resp)
	}

	reset := models.PasswordReset{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().UTC().Add(resetTokenTTL),
	}
	if err := h.DB.Create(&reset).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "reset failed")
	}

	if h.Mailer != nil {
		resetURL := fmt.Sprintf("%s://%s/reset-password/%s", c.Scheme(), c.Request().Host, reset.Token)
		h.Mailer.SendPasswordReset(user.Email, resetURL)
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "password is required")
	}

	var reset models.PasswordReset
	err := h.DB.Where("token = ? AND used = ? AND expires_at > ?",
		c.Param("token"), false, time.Now().UTC()).First(&reset).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired reset link")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "reset failed")
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", reset.UserID).
			Update("password_hash", pwHash).Error; err != nil {
			return err
		}
		return tx.Model(&reset).Update("used", true).Error
	})
	if txErr != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "reset failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
