package notify

import "errors"

// Sentinel errors for notify use case operations.
var (
	// ErrNoRecipients indicates that the dispatcher was built without recipients.
	ErrNoRecipients = errors.New("no recipients configured")

	// ErrNoSender indicates that the dispatcher was built without a sender address.
	ErrNoSender = errors.New("no sender configured")

	// ErrEmptyBody indicates an attempt to send a report without content.
	ErrEmptyBody = errors.New("report body is empty")
)
