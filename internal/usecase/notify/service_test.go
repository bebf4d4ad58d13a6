package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	name     string
	err      error
	messages []Message
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) Deliver(_ context.Context, msg Message) error {
	f.messages = append(f.messages, msg)
	return f.err
}

var reportDate = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, transport Transport) Service {
	t.Helper()
	svc, err := NewService(transport, Config{
		Sender:     "bot@example.com",
		Recipients: []string{"a@example.com", "b@example.com"},
		Secrets:    []string{"app-password"},
	})
	require.NoError(t, err)
	return svc
}

func TestSend_Success(t *testing.T) {
	transport := &fakeTransport{name: "success-test"}
	svc := newTestService(t, transport)

	delivery := svc.Send(context.Background(), reportDate, "<html><body><h2>Report</h2></body></html>")

	assert.True(t, delivery.Sent)
	assert.NoError(t, delivery.Err)
	require.Len(t, transport.messages, 1, "one transmission for all recipients")

	msg := transport.messages[0]
	assert.Equal(t, "bot@example.com", msg.From)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, msg.To)
	assert.Equal(t, "Crypto Report - 2026-10-14", msg.Subject)
	assert.Contains(t, msg.HTML, "<h2>Report</h2>")
	assert.Equal(t, "Report", msg.Text)

	assert.Equal(t, float64(1), testutil.ToFloat64(mailDeliveriesTotal.WithLabelValues("success-test", "sent")))
}

func TestSend_FailureIsReportedNotRetried(t *testing.T) {
	transport := &fakeTransport{name: "failure-test", err: errors.New("535 5.7.8 bad credentials app-password")}
	svc := newTestService(t, transport)

	delivery := svc.Send(context.Background(), reportDate, "<p>report</p>")

	assert.False(t, delivery.Sent)
	require.Error(t, delivery.Err)
	assert.ErrorIs(t, delivery.Err, transport.err)
	assert.Len(t, transport.messages, 1, "failed sends are not retried")
	assert.Equal(t, float64(1), testutil.ToFloat64(mailDeliveriesTotal.WithLabelValues("failure-test", "failed")))
}

func TestSend_EmptyBody(t *testing.T) {
	transport := &fakeTransport{name: "empty-test"}

	delivery := newTestService(t, transport).Send(context.Background(), reportDate, "  ")

	assert.False(t, delivery.Sent)
	assert.ErrorIs(t, delivery.Err, ErrEmptyBody)
	assert.Empty(t, transport.messages)
}

func TestSend_CustomSubjectPrefix(t *testing.T) {
	transport := &fakeTransport{name: "prefix-test"}
	svc, err := NewService(transport, Config{
		Sender:        "bot@example.com",
		Recipients:    []string{"a@example.com"},
		SubjectPrefix: "Morning Markets",
	})
	require.NoError(t, err)

	svc.Send(context.Background(), reportDate, "<p>x</p>")

	require.Len(t, transport.messages, 1)
	assert.Equal(t, "Morning Markets - 2026-10-14", transport.messages[0].Subject)
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(&fakeTransport{}, Config{Recipients: []string{"a@example.com"}})
	assert.ErrorIs(t, err, ErrNoSender)

	_, err = NewService(&fakeTransport{}, Config{Sender: "bot@example.com"})
	assert.ErrorIs(t, err, ErrNoRecipients)
}
