package service

import (
	"context"
	"fmt"

	"tour-service/internal/models"
	"tour-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SessionForgetter drops cached checkout sessions
type SessionForgetter interface {
	ForgetCheckoutSession(ctx context.Context, bookingID string) error
}

// Fulfillment runs the follow-up work of a paid booking off the request path
type Fulfillment struct {
	ledger   BookingLedger
	carts    *CartService
	sessions SessionForgetter
	logger   *zap.Logger
}

// NewFulfillment creates a new fulfillment handler
func NewFulfillment(ledger BookingLedger, carts *CartService, sessions SessionForgetter) *Fulfillment {
	return &Fulfillment{
		ledger:   ledger,
		carts:    carts,
		sessions: sessions,
		logger:   util.GetLogger(),
	}
}

// HandleBookingPaid clears the paid tour from the buyer's cart and forgets the
// checkout session. Redelivered events are skipped.
func (f *Fulfillment) HandleBookingPaid(ctx context.Context, event *models.BookingPaidEvent) error {
	ctx, span := util.StartSpan(ctx, "Fulfillment.HandleBookingPaid",
		attribute.String("booking_id", event.BookingID))
	defer span.End()

	processed, err := f.ledger.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		f.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	if err := f.carts.RemovePurchased(ctx, event.UserID, event.TourID); err != nil {
		return fmt.Errorf("failed to clear purchased tour from cart: %w", err)
	}

	if err := f.sessions.ForgetCheckoutSession(ctx, event.BookingID); err != nil {
		f.logger.Warn("Failed to forget checkout session",
			zap.String("booking_id", event.BookingID),
			zap.Error(err))
	}

	if err := f.ledger.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		f.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	f.logger.Info("Booking fulfilled",
		zap.String("booking_id", event.BookingID),
		zap.String("user_id", event.UserID),
		zap.String("tour_id", event.TourID))
	return nil
}

// HandlePaymentAnomaly surfaces an unmatched payment for operators
func (f *Fulfillment) HandlePaymentAnomaly(ctx context.Context, event *models.PaymentAnomalyEvent) error {
	f.logger.Warn("Unmatched payment needs operator attention",
		zap.String("provider_event_id", event.ProviderEvent),
		zap.String("provider_session_id", event.ProviderSessID),
		zap.String("correlation", event.Correlation),
		zap.String("reason", event.Reason))
	return nil
}
