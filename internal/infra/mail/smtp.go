package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ndavydov/account-service/internal/core/port"
	"github.com/ndavydov/account-service/internal/infra/config"
	"github.com/ndavydov/account-service/internal/infra/logger"
)

const (
	dialTimeout    = 8 * time.Second
	sessionTimeout = 15 * time.Second
)

// SMTPSender delivers messages over SMTP with STARTTLS when the server
// offers it. Connection and session deadlines keep a stuck server from
// wedging the worker.
type SMTPSender struct {
	cfg config.SMTPSettings
	log *zap.Logger
}

// NewSMTPSender constructs the sender from SMTP settings.
func NewSMTPSender(cfg config.SMTPSettings, log *zap.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, log: log}
}

// Send delivers a single HTML message to the recipient.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	fromHeader := s.cfg.FromAddress
	if s.cfg.FromName != "" {
		fromHeader = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromAddress)
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", fromHeader),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		htmlBody,
	}, "\r\n")

	if err := s.deliver(ctx, to, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", logger.MaskEmail(to), err)
	}

	s.log.Debug("smtp message sent",
		zap.String("to", logger.MaskEmail(to)),
		zap.String("subject", subject),
	)
	return nil
}

func (s *SMTPSender) deliver(ctx context.Context, to string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	// Deadline covers the whole SMTP session, not just the dial.
	deadline := time.Now().Add(sessionTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() { _ = client.Quit() }()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.cfg.FromAddress); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("open data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}

	return nil
}

var _ port.EmailSender = (*SMTPSender)(nil)
