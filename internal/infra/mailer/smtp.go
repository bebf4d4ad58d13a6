// Package mailer implements notify.Transport over authenticated SMTP using
// github.com/wneessen/go-mail.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crypto-report/internal/observability/logging"
	"crypto-report/internal/usecase/notify"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
)

// Defaults for the Gmail relay.
const (
	DefaultHost = "smtp.gmail.com"
	DefaultPort = 465
)

// ErrMissingCredentials is returned when username or password is empty.
var ErrMissingCredentials = errors.New("mailer: smtp credentials are required")

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// Timeout bounds dialing and each SMTP command.
	Timeout time.Duration

	// MessageIDDomain is the right-hand side of generated Message-IDs.
	MessageIDDomain string
}

// sendFunc transmits built messages; replaced in tests.
type sendFunc func(ctx context.Context, msgs ...*mail.Msg) error

// SMTPTransport sends reports over implicit TLS with PLAIN authentication.
type SMTPTransport struct {
	cfg  SMTPConfig
	send sendFunc
}

// NewSMTPTransport creates a transport. The connection is opened per send.
func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MessageIDDomain == "" {
		cfg.MessageIDDomain = "crypto-report.local"
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("mailer: create smtp client: %w", err)
	}

	return &SMTPTransport{cfg: cfg, send: client.DialAndSendWithContext}, nil
}

// Name implements notify.Transport.
func (t *SMTPTransport) Name() string { return "smtp" }

// Deliver implements notify.Transport. All recipients share one message
// and one SMTP session.
func (t *SMTPTransport) Deliver(ctx context.Context, m notify.Message) error {
	msg, err := t.build(m)
	if err != nil {
		return err
	}

	logging.FromContext(ctx).DebugContext(ctx, "sending email",
		slog.String("host", t.cfg.Host),
		slog.Int("port", t.cfg.Port),
		slog.Int("recipients", len(m.To)))

	if err := t.send(ctx, msg); err != nil {
		return fmt.Errorf("smtp send via %s:%d: %w", t.cfg.Host, t.cfg.Port, err)
	}
	return nil
}

// build assembles a multipart/alternative message: plain text first,
// HTML last as the preferred part. A message without text carries the
// subject as its plain-text part.
func (t *SMTPTransport) build(m notify.Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, fmt.Errorf("mailer: invalid sender: %w", err)
	}
	if err := msg.To(m.To...); err != nil {
		return nil, fmt.Errorf("mailer: invalid recipients: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetDate()
	msg.SetMessageIDWithValue(fmt.Sprintf("%s@%s", uuid.NewString(), t.cfg.MessageIDDomain))

	text := m.Text
	if text == "" {
		text = m.Subject
	}
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	return msg, nil
}
