package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeBookingCreated = "BOOKING_CREATED"
	EventTypeBookingPaid    = "BOOKING_PAID"
	EventTypePaymentAnomaly = "PAYMENT_ANOMALY"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingCreatedEvent published when checkout opens a new ledger entry
type BookingCreatedEvent struct {
	BaseEvent
	BookingID string          `json:"booking_id"`
	UserID    string          `json:"user_id"`
	TourID    string          `json:"tour_id"`
	Price     decimal.Decimal `json:"price"`
}

// BookingPaidEvent published when the reconciler marks a booking paid
type BookingPaidEvent struct {
	BaseEvent
	BookingID      string          `json:"booking_id"`
	UserID         string          `json:"user_id"`
	TourID         string          `json:"tour_id"`
	Price          decimal.Decimal `json:"price"`
	ProviderEvent  string          `json:"provider_event_id"`
	ProviderSessID string          `json:"provider_session_id"`
}

// PaymentAnomalyEvent flags a confirmed payment that matches no booking
type PaymentAnomalyEvent struct {
	BaseEvent
	ProviderEvent  string `json:"provider_event_id"`
	ProviderSessID string `json:"provider_session_id"`
	Correlation    string `json:"correlation_token"`
	Reason         string `json:"reason"`
}
