// Package payment talks to the external payment processor: it opens hosted
// checkout sessions and authenticates the webhook notifications the processor
// sends back.
package payment

import (
	"context"
	"errors"
)

// EventCheckoutCompleted is the only processor event the reconciler acts on
const EventCheckoutCompleted = "checkout.session.completed"

// MetadataBookingID is the session metadata key carrying the correlation token
const MetadataBookingID = "booking_id"

var (
	// ErrInvalidSignature means a webhook payload failed authentication
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMalformedEvent means an authentic webhook carried a payload that cannot be decoded
	ErrMalformedEvent = errors.New("malformed webhook event")
	// ErrUnavailable means the processor could not be reached or failed; retrying may succeed
	ErrUnavailable = errors.New("payment processor unavailable")
	// ErrRejected means the processor refused the request as malformed
	ErrRejected = errors.New("payment processor rejected request")
)

// LineItem is one priced line of a checkout session. UnitAmount is in minor units.
type LineItem struct {
	Name        string
	Description string
	Images      []string
	UnitAmount  int64
	Quantity    int64
}

// SessionRequest describes a checkout session to open
type SessionRequest struct {
	CorrelationID  string
	CustomerEmail  string
	Currency       string
	Items          []LineItem
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
}

// Session is the processor's reference to an opened checkout
type Session struct {
	ID          string
	URL         string
	AmountTotal int64
}

// Event is an authenticated processor notification
type Event struct {
	ID            string
	Type          string
	SessionID     string
	CorrelationID string
	AmountTotal   int64
}

// Gateway is the payment processor as seen by checkout and reconciliation
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
	VerifyEvent(payload []byte, signatureHeader string) (*Event, error)
}
