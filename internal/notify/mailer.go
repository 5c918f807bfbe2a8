// Package notify delivers account notifications by email.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/domain"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/metrics"
	"go.uber.org/zap"
)

const defaultSendTimeout = 15 * time.Second

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type sendFunc func(ctx context.Context, to, subject, body string) error

// Mailer sends notifications in the background. Delivery failures are logged
// and counted, never returned to the caller.
type Mailer struct {
	cfg     SMTPConfig
	send    sendFunc
	log     *zap.Logger
	timeout time.Duration
	done    func()
}

func NewMailer(cfg SMTPConfig, log *zap.Logger) *Mailer {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	m := &Mailer{cfg: cfg, log: log, timeout: defaultSendTimeout}
	m.send = m.deliver
	return m
}

// Send implements domain.Notifier.
func (m *Mailer) Send(ctx context.Context, n domain.Notification) {
	if n.Email == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	go func() {
		defer cancel()
		if m.done != nil {
			defer m.done()
		}
		if err := m.send(ctx, n.Email, n.Subject, Render(n)); err != nil {
			metrics.NotificationsFailed.Inc()
			m.log.Error("notification delivery failed",
				zap.String("to", n.Email), zap.String("subject", n.Subject), zap.Error(err))
		}
	}()
}

// Render builds the plain text mail body.
func Render(n domain.Notification) string {
	var b strings.Builder
	if n.FirstName != "" {
		fmt.Fprintf(&b, "Hi %s,\r\n\r\n", n.FirstName)
	}
	b.WriteString(n.Body)
	b.WriteString("\r\n")
	return b.String()
}

func (m *Mailer) deliver(ctx context.Context, to, subject, body string) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}
	msg := []byte(
		fmt.Sprintf("From: %s\r\n", m.cfg.From) +
			fmt.Sprintf("To: %s\r\n", to) +
			fmt.Sprintf("Subject: %s\r\n", subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
			"\r\n" +
			body,
	)

	// implicit TLS, port 465
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config:    &tls.Config{ServerName: m.cfg.Host},
	}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(m.cfg.Host, m.cfg.Port))
	if err != nil {
		return err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Quit()

	if m.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return err
		}
	}
	if err := client.Mail(m.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}
