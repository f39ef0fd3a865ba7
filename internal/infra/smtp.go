package infra

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"

	"logospos/internal/config"

	"github.com/jordan-wright/email"
)

// ErrMailerNoConfigurado is returned when SMTP_HOST is empty.
var ErrMailerNoConfigurado = errors.New("mailer: SMTP no configurado")

// Mailer wraps SMTP configuration for reminders and closing reports.
type Mailer struct {
	host     string
	port     int
	user     string
	password string
	addr     string
	// send is swapped in tests.
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// Send delivers a payment reminder. It satisfies service.ReminderTransport
// for the email channel.
func (m *Mailer) Send(ctx context.Context, to, mensaje string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := email.NewEmail()
	e.To = []string{to}
	e.Subject = "Recordatorio de pago"
	e.Text = []byte(mensaje)
	return m.deliver(e)
}

// SendReporteCierre mails the closing report with the PDF attached.
func (m *Mailer) SendReporteCierre(to, subject, body, pdfPath string) error {
	e := email.NewEmail()
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}
	return m.deliver(e)
}

func (m *Mailer) deliver(e *email.Email) error {
	if m.host == "" {
		return ErrMailerNoConfigurado
	}
	e.From = m.user
	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	if err := m.send(e, m.addr, auth); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}
