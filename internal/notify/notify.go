package notify

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/models"
)

// Notifier writes admin-facing notifications. Failures are logged and
// swallowed: a missed notification must never affect the operation that
// produced it.
type Notifier struct {
	DB  *gorm.DB
	Log *slog.Logger
}

func (n *Notifier) Create(notifType, title, message, link string) {
	if n == nil || n.DB == nil {
		return
	}
	notification := models.Notification{
		Type:    notifType,
		Title:   title,
		Message: message,
		Link:    link,
	}
	if err := n.DB.Create(&notification).Error; err != nil && n.Log != nil {
		n.Log.Error("notification create failed", "type", notifType, "error", err)
	}
}

// SaveContactMessage stores a contact-form submission and raises a matching
// admin notification. Unlike Create, the row itself must persist, so the
// error is returned.
func (n *Notifier) SaveContactMessage(name, email, subject, message string) error {
	msg := models.ContactMessage{
		Name:    name,
		Email:   email,
		Subject: subject,
		Message: message,
	}
	if err := n.DB.Create(&msg).Error; err != nil {
		return err
	}
	n.Create("contact", "Nouveau message de contact", name+" : "+subject, "/admin/messages")
	return nil
}
