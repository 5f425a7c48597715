package auth

import (
	"fmt"
	"log"
	"net/smtp"
)

// Mailer delivers password reset tokens to account mailboxes.
type Mailer interface {
	SendPasswordReset(email, token string) error
}

// SMTPConfig holds the outgoing mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// SMTPMailer sends reset mail over plain SMTP.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendPasswordReset(email, token string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Password reset\r\n\r\n"+
			"Your password reset token is:\r\n\r\n%s\r\n\r\n"+
			"It expires shortly and can be used once.\r\n",
		m.cfg.From, email, token)

	var a smtp.Auth
	if m.cfg.Username != "" {
		a = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, a, m.cfg.From, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send reset mail to %s: %w", email, err)
	}
	return nil
}

// LogMailer writes the token to the server log instead of sending mail.
// Used when SMTP is not configured, e.g. in local development.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(email, token string) error {
	log.Printf("password reset token for %s: %s", email, token)
	return nil
}
