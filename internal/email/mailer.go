package email

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/ignatzorin/atelier-backend/internal/service"
)

// Config содержит параметры SMTP-доставки.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer доставляет уведомления по SMTP. Реализует service.NotificationGateway.
type Mailer struct {
	cfg Config
}

// NewMailer создаёт SMTP-шлюз уведомлений.
func NewMailer(cfg Config) *Mailer {
	cfg.From = strings.TrimSpace(cfg.From)
	return &Mailer{cfg: cfg}
}

// Send рендерит шаблон по виду уведомления и отправляет письмо.
func (m *Mailer) Send(ctx context.Context, n service.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.cfg.Host == "" || m.cfg.Port == 0 || m.cfg.From == "" {
		return fmt.Errorf("mailer: SMTP не настроен")
	}
	if n.To == "" {
		return fmt.Errorf("mailer: адрес получателя пуст")
	}

	subject, body, err := render(n)
	if err != nil {
		return fmt.Errorf("mailer: рендеринг шаблона %q: %w", n.Kind, err)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := buildMessage(m.cfg.From, n.To, subject, body)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{n.To}, msg); err != nil {
		return fmt.Errorf("mailer: отправка на %s: %w", n.To, err)
	}
	return nil
}

// buildMessage собирает минимальное RFC 5322 сообщение с UTF-8 телом.
func buildMessage(from, to, subject, body string) []byte {
	var buf bytes.Buffer
	buf.WriteString("From: " + from + "\r\n")
	buf.WriteString("To: " + to + "\r\n")
	buf.WriteString("Subject: " + subject + "\r\n")
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	buf.WriteString("\r\n")
	return buf.Bytes()
}
