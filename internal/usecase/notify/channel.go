// Package notify delivers the rendered report by email.
package notify

import "context"

// Message is one outgoing email.
type Message struct {
	From    string
	To      []string
	Subject string

	// HTML is the preferred part, Text the plain-text alternative.
	HTML string
	Text string
}

// Transport sends a message to all of its recipients in one session.
//
// Implementations must:
//   - Respect context cancellation/timeout
//   - Not retry; a failed send is reported once
//   - Keep credentials out of returned errors where possible
type Transport interface {
	// Name identifies the transport in logs and metrics.
	Name() string

	// Deliver sends msg. A nil error means the relay accepted it.
	Deliver(ctx context.Context, msg Message) error
}
