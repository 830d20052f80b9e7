// Package mailer delivers account verification codes by email.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/dmitrijs2005/usersvc/internal/logging"
)

const (
	SecurityStartTLS = "starttls"
	SecuritySSL      = "ssl"
	SecurityNone     = "none"
)

// DefaultSendTimeout bounds one SMTP session when the caller's context has
// no deadline.
const DefaultSendTimeout = 30 * time.Second

// ErrStartTLSUnsupported is returned in starttls mode when the server does
// not offer STARTTLS. The message is not sent in plaintext.
var ErrStartTLSUnsupported = errors.New("smtp server does not support STARTTLS")

type Mailer interface {
	SendVerificationCode(ctx context.Context, to, code string, expires time.Time) error
	Enabled() bool
}

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
	Security string
}

// New returns an SMTP mailer, or a no-op one when host or sender is unset.
func New(cfg Config, logger logging.Logger) Mailer {
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Port = strings.TrimSpace(cfg.Port)
	cfg.User = strings.TrimSpace(cfg.User)
	cfg.From = strings.TrimSpace(cfg.From)
	cfg.Security = strings.ToLower(strings.TrimSpace(cfg.Security))
	switch cfg.Security {
	case "":
		cfg.Security = SecurityStartTLS
	case "smtps":
		cfg.Security = SecuritySSL
	}

	ctx := context.Background()
	if cfg.Host == "" || cfg.From == "" {
		logger.Info(ctx, "mailer disabled, smtp host or sender missing")
		return Noop{}
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}

	logger.Info(ctx, "mailer enabled", "host", cfg.Host, "port", cfg.Port, "security", cfg.Security, "user", maskForLog(cfg.User))
	return &SMTPMailer{cfg: cfg, dialer: &net.Dialer{Timeout: 10 * time.Second}, timeout: DefaultSendTimeout}
}

// Noop drops every message.
type Noop struct{}

func (Noop) SendVerificationCode(context.Context, string, string, time.Time) error { return nil }
func (Noop) Enabled() bool                                                        { return false }

type SMTPMailer struct {
	cfg     Config
	dialer  *net.Dialer
	timeout time.Duration
}

func (m *SMTPMailer) Enabled() bool { return true }

func (m *SMTPMailer) SendVerificationCode(ctx context.Context, to, code string, expires time.Time) error {
	body := fmt.Sprintf("Your verification code is %s.\n\nIt is valid until %s UTC.\n\nIf you did not create an account, ignore this message.",
		code, expires.UTC().Format(time.RFC3339))
	msg := message(m.cfg.From, to, "Confirm your account", body)

	if err := m.send(ctx, to, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (m *SMTPMailer) send(ctx context.Context, to string, msg []byte) error {
	if _, ok := ctx.Deadline(); !ok && m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)

	conn, err := m.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if m.cfg.Security == SecuritySSL {
		conn = tls.Client(conn, &tls.Config{ServerName: m.cfg.Host})
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if m.cfg.Security == SecurityStartTLS {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			return ErrStartTLSUnsupported
		}
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return err
		}
	}

	if m.cfg.User != "" && m.cfg.Password != "" {
		if err := client.Auth(smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)); err != nil {
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
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func message(from, to, subject, body string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func maskForLog(s string) string {
	if s == "" {
		return "(none)"
	}
	if len(s) <= 2 {
		return "***"
	}
	return s[:1] + "***" + s[len(s)-1:]
}
