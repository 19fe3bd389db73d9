package utils

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/smtp"
	"net/url"

	"go.uber.org/zap"
)

// GenerateResetToken returns 32 random bytes, hex encoded.
func GenerateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ResetLink appends the token as a query parameter to the frontend reset page.
func ResetLink(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// Mailer delivers plain-text mail.
type Mailer interface {
	SendMail(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends mail with PLAIN auth.
type SMTPMailer struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

func (m SMTPMailer) SendMail(_ context.Context, to, subject, body string) error {
	from := m.From
	if from == "" {
		from = m.User
	}
	addr := m.Host + ":" + m.Port

	msg := "From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n" +
		body + "\r\n"

	auth := smtp.PlainAuth("", m.User, m.Pass, m.Host)
	return smtp.SendMail(addr, auth, from, []string{to}, []byte(msg))
}

// LogMailer writes the mail to the log instead of sending it. Used when SMTP
// is not configured (development).
type LogMailer struct {
	Logger *zap.Logger
}

func (m LogMailer) SendMail(_ context.Context, to, subject, body string) error {
	if m.Logger != nil {
		m.Logger.Info("mail not sent, smtp not configured",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.String("body", body),
		)
	}
	return nil
}
