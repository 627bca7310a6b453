package mailer

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Mailer sends transactional mail over plain SMTP. Delivery is best effort:
// Send reports failure but callers are expected to log and move on, a lost
// email never fails the operation that triggered it.
type Mailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Log      *slog.Logger
}

func New(host, port, username, password, from string, log *slog.Logger) *Mailer {
	return &Mailer{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		Log:      log,
	}
}

func (m *Mailer) Send(subject, recipient, htmlBody string) bool {
	if m == nil || m.Host == "" {
		return false
	}

	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + recipient,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		htmlBody,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%s", m.Host, m.Port)
	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	if err := smtp.SendMail(addr, auth, m.From, []string{recipient}, []byte(msg)); err != nil {
		if m.Log != nil {
			m.Log.Error("email send failed", "recipient", recipient, "subject", subject, "error", err)
		}
		return false
	}
	return true
}

func (m *Mailer) SendWelcome(recipient, firstName string) bool {
	subject := fmt.Sprintf("Bienvenue chez Quartier d'Arômes, %s!", firstName)
	body := fmt.Sprintf(
		"<h2>Bienvenue %s!</h2><p>Votre compte a été créé avec succès. Découvrez nos parfums et décants sur la boutique.</p>",
		firstName,
	)
	return m.Send(subject, recipient, body)
}

func (m *Mailer) SendOrderConfirmation(recipient, orderNumber string, total float64) bool {
	subject := fmt.Sprintf("Confirmation de commande %s", orderNumber)
	body := fmt.Sprintf(
		"<h2>Merci pour votre commande!</h2><p>Commande <strong>%s</strong> - Total: %.2f DH.</p><p>Nous vous contacterons pour la livraison.</p>",
		orderNumber, total,
	)
	return m.Send(subject, recipient, body)
}

func (m *Mailer) SendPasswordReset(recipient, resetURL string) bool {
	subject := "Réinitialisation de votre mot de passe - Quartier d'Arômes"
	body := fmt.Sprintf(
		"<p>Pour réinitialiser votre mot de passe, cliquez sur ce lien (valide 1 heure):</p><p><a href=\"%s\">%s</a></p>",
		resetURL, resetURL,
	)
	return m.Send(subject, recipient, body)
}
