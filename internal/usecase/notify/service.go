package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"crypto-report/internal/observability/logging"
	"crypto-report/internal/observability/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultSubjectPrefix starts every report subject.
const DefaultSubjectPrefix = "Crypto Report"

// Delivery is the outcome of one send. Err is set only when Sent is false.
type Delivery struct {
	Sent bool
	Err  error
}

// Config holds the fixed addressing of every report.
type Config struct {
	Sender        string
	Recipients    []string
	SubjectPrefix string

	// Secrets are masked wherever they appear in logged errors.
	Secrets []string
}

// Service emails reports.
type Service interface {
	// Send delivers htmlBody to all recipients with a subject dated date.
	// Failures are logged and returned in the Delivery, never retried.
	Send(ctx context.Context, date time.Time, htmlBody string) Delivery
}

type service struct {
	transport Transport
	cfg       Config
}

// NewService creates a Service.
func NewService(transport Transport, cfg Config) (Service, error) {
	if strings.TrimSpace(cfg.Sender) == "" {
		return nil, ErrNoSender
	}
	if len(cfg.Recipients) == 0 {
		return nil, ErrNoRecipients
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	return &service{transport: transport, cfg: cfg}, nil
}

// Subject returns the subject line for date, e.g. "Crypto Report - 2026-10-14".
func Subject(prefix string, date time.Time) string {
	return fmt.Sprintf("%s - %s", prefix, date.Format("2006-01-02"))
}

func (s *service) Send(ctx context.Context, date time.Time, htmlBody string) Delivery {
	ctx, span := tracing.StartSpan(ctx, "mail.send",
		attribute.String("mail.transport", s.transport.Name()),
		attribute.Int("mail.recipients", len(s.cfg.Recipients)))

	logger := logging.FromContext(ctx).With(slog.String("transport", s.transport.Name()))

	delivery := s.send(ctx, date, htmlBody)
	tracing.EndSpan(span, delivery.Err)

	if !delivery.Sent {
		logger.ErrorContext(ctx, "failed to send email",
			slog.Int("recipients", len(s.cfg.Recipients)),
			slog.String("error", logging.SanitizeError(delivery.Err, s.cfg.Secrets...)))
		return delivery
	}

	logger.InfoContext(ctx, "email sent successfully",
		slog.Int("recipients", len(s.cfg.Recipients)))
	return delivery
}

func (s *service) send(ctx context.Context, date time.Time, htmlBody string) Delivery {
	if strings.TrimSpace(htmlBody) == "" {
		return Delivery{Err: ErrEmptyBody}
	}

	text, err := PlainText(htmlBody)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "plain-text rendition failed, using subject as text part",
			slog.String("error", err.Error()))
		text = ""
	}

	msg := Message{
		From:    s.cfg.Sender,
		To:      append([]string(nil), s.cfg.Recipients...),
		Subject: Subject(s.cfg.SubjectPrefix, date),
		HTML:    htmlBody,
		Text:    text,
	}

	start := time.Now()
	err = s.transport.Deliver(ctx, msg)
	recordDelivery(s.transport.Name(), err == nil, time.Since(start))

	if err != nil {
		return Delivery{Err: fmt.Errorf("deliver via %s: %w", s.transport.Name(), err)}
	}
	return Delivery{Sent: true}
}
