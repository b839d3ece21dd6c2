package service

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/learnhub/learning-platform/internal/config"
)

// Mailer delivers one-time passwords to users.  Implementations must not
// retain the code after sending.
type Mailer interface {
	SendOtp(ctx context.Context, email, otp string, expiry time.Duration) error
}

// NewMailer picks the delivery mechanism from configuration: a real SMTP
// relay when SMTP_HOST is set, otherwise the log mailer used in
// development where the code is printed instead of sent.
func NewMailer(cfg config.Config) Mailer {
	if cfg.SMTPHost == "" {
		return LogMailer{}
	}
	return &SMTPMailer{
		Addr:     cfg.SMTPHost + ":" + cfg.SMTPPort,
		Host:     cfg.SMTPHost,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.EmailFrom,
	}
}

// LogMailer prints the OTP to the server log instead of sending email.
type LogMailer struct{}

func (LogMailer) SendOtp(_ context.Context, email, otp string, expiry time.Duration) error {
	log.Printf("mailer: OTP for %s: %s (expires in %s)", email, otp, expiry)
	return nil
}

// SMTPMailer sends the OTP through a plain SMTP relay.
type SMTPMailer struct {
	Addr     string // host:port
	Host     string // host only, for AUTH
	Username string
	Password string
	From     string
}

func (m *SMTPMailer) SendOtp(_ context.Context, email, otp string, expiry time.Duration) error {
	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}
	// Envelope sender must be a bare address even when From carries a
	// display name.
	fromAddr := m.From
	if a, err := mail.ParseAddress(m.From); err == nil {
		fromAddr = a.Address
	}
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + email,
		"Subject: Your Login Code",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Your verification code is: " + otp,
		"",
		fmt.Sprintf("This code expires in %d minutes.", int(expiry.Minutes())),
		"If you didn't request this code, you can safely ignore this email.",
	}, "\r\n")
	return smtp.SendMail(m.Addr, auth, fromAddr, []string{email}, []byte(msg))
}
