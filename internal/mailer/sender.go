package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bank-ledger-go/internal/models"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const dialTimeout = 15 * time.Second

// Message is a rendered email ready to send.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender returns an SMTP sender, or a log-only sender when no host is configured.
func NewSender(cfg models.MailConfig) Sender {
	if cfg.Host == "" {
		zap.L().Warn("SMTP_HOST not set, emails will only be logged")
		return LogSender{}
	}
	s := &SMTPSender{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

// SMTPSender delivers through an SMTP relay, upgrading to TLS when offered.
type SMTPSender struct {
	cfg  models.MailConfig
	send func(ctx context.Context, msg *mail.Msg) error
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := msg.From
	if from == "" {
		from = s.cfg.From
	}

	m, err := buildMessage(from, msg)
	if err != nil {
		return err
	}
	if err := s.send(ctx, m); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", msg.To, err)
	}
	return nil
}

func (s *SMTPSender) dialAndSend(ctx context.Context, m *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(dialTimeout),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password))
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, m)
}

// buildMessage validates the addresses and sets the headers. Header values
// are encoded by go-mail; line breaks in the subject are folded to spaces.
func buildMessage(from string, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(singleLine(msg.Subject))
	m.SetDate()
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}

func singleLine(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '\r' || r == '\n' }), " ")
}

// LogSender writes emails to the log instead of delivering them.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	zap.L().Info("Email (not sent)",
		zap.String("to", msg.To),
		zap.String("subject", singleLine(msg.Subject)),
		zap.Int("html_bytes", len(msg.HTML)))
	return nil
}
