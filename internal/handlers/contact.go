package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/notify"
)

type ContactHandler struct {
	DB       *gorm.DB
	Notifier *notify.Notifier
}

func (h *ContactHandler) SubmitMessage(c echo.Context) error {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	if req.Name == "" || req.Email == "" || req.Subject == "" || req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Tous les champs sont obligatoires")
	}
	if !strings.Contains(req.Email, "@") {
		return echo.NewHTTPError(http.StatusBadRequest, "Adresse email invalide")
	}

	if err := h.Notifier.SaveContactMessage(req.Name, req.Email, req.Subject, req.Message); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not save message")
	}

	return c.JSON(http.StatusCreated, Response{
		Status:  "ok",
		Message: "Votre message a été envoyé, nous vous répondrons rapidement",
	})
}
