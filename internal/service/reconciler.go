package service

import (
	"context"
	"errors"
	"time"

	"tour-service/internal/models"
	"tour-service/internal/payment"
	"tour-service/internal/store"
	"tour-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Outcome is what a webhook delivery did to the ledger
type Outcome string

const (
	OutcomePaid      Outcome = "paid"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeUnmatched Outcome = "unmatched"
)

// ReconcileResult describes a handled, acknowledgeable delivery
type ReconcileResult struct {
	Outcome   Outcome
	EventID   string
	EventType string
	BookingID string
}

// Reconciler applies authenticated processor events to the booking ledger.
// It is the only writer of the paid flag.
type Reconciler struct {
	ledger  BookingLedger
	events  BookingEvents
	gateway payment.Gateway
	logger  *zap.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(ledger BookingLedger, events BookingEvents, gateway payment.Gateway) *Reconciler {
	return &Reconciler{
		ledger:  ledger,
		events:  events,
		gateway: gateway,
		logger:  util.GetLogger(),
	}
}

// HandleEvent verifies a raw webhook delivery and applies it. A nil error means
// the delivery must be acknowledged; a KindUnavailable error asks the processor
// to re-deliver; a KindAuthentication error must never be retried.
func (r *Reconciler) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) (*ReconcileResult, error) {
	ctx, span := util.StartSpan(ctx, "Reconciler.HandleEvent")
	defer span.End()

	ev, err := r.gateway.VerifyEvent(payload, signatureHeader)
	if errors.Is(err, payment.ErrMalformedEvent) {
		// authentic but undecodable; redelivery would fail the same way
		util.WebhookEventsTotal.WithLabelValues(payment.EventCheckoutCompleted, "malformed").Inc()
		r.logger.Error("Rejected malformed webhook event", zap.Error(err))
		return nil, &Error{
			Kind:    KindValidation,
			Code:    "malformed_event",
			Message: payment.ErrMalformedEvent.Error(),
			Err:     err,
		}
	}
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		r.logger.Warn("Rejected webhook delivery", zap.Error(err))
		return nil, &Error{
			Kind:    KindAuthentication,
			Code:    "invalid_signature",
			Message: payment.ErrInvalidSignature.Error(),
			Err:     err,
		}
	}

	result, err := r.apply(ctx, ev)
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues(ev.Type, "failed").Inc()
		util.FailSpan(span, err)
		r.logger.Error("Failed to reconcile payment event",
			zap.String("event_id", ev.ID),
			zap.String("correlation", ev.CorrelationID),
			zap.Error(err))
		return nil, err
	}

	util.WebhookEventsTotal.WithLabelValues(ev.Type, string(result.Outcome)).Inc()
	return result, nil
}

func (r *Reconciler) apply(ctx context.Context, ev *payment.Event) (*ReconcileResult, error) {
	result := &ReconcileResult{EventID: ev.ID, EventType: ev.Type, BookingID: ev.CorrelationID}

	if ev.Type != payment.EventCheckoutCompleted {
		result.Outcome = OutcomeIgnored
		return result, nil
	}

	seen, err := r.ledger.IsEventProcessed(ctx, ev.ID)
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	if seen {
		r.logger.Info("Duplicate payment event", zap.String("event_id", ev.ID))
		result.Outcome = OutcomeDuplicate
		return result, nil
	}

	if _, err := uuid.Parse(ev.CorrelationID); err != nil {
		r.reportAnomaly(ctx, ev, "missing or malformed correlation token")
		result.Outcome = OutcomeUnmatched
		r.markProcessed(ctx, ev)
		return result, nil
	}

	booking, err := r.ledger.GetBookingByID(ctx, ev.CorrelationID)
	if errors.Is(err, store.ErrNotFound) {
		r.reportAnomaly(ctx, ev, "no booking matches correlation token")
		result.Outcome = OutcomeUnmatched
		r.markProcessed(ctx, ev)
		return result, nil
	}
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}

	if booking.Paid {
		result.Outcome = OutcomeDuplicate
		r.markProcessed(ctx, ev)
		return result, nil
	}

	if ev.AmountTotal != 0 && !booking.Price.Shift(2).Equal(decimal.NewFromInt(ev.AmountTotal)) {
		r.logger.Error("Paid amount differs from booking price",
			zap.String("booking_id", booking.ID),
			zap.String("price", booking.Price.StringFixed(2)),
			zap.Int64("amount_total", ev.AmountTotal))
	}

	updated, err := r.ledger.MarkBookingPaid(ctx, booking.ID)
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	r.markProcessed(ctx, ev)

	if !updated {
		// a concurrent delivery won the transition
		result.Outcome = OutcomeDuplicate
		return result, nil
	}

	util.BookingsPaidTotal.Inc()
	r.logger.Info("Booking paid",
		zap.String("booking_id", booking.ID),
		zap.String("event_id", ev.ID),
		zap.String("session_id", ev.SessionID))

	paidEvent := &models.BookingPaidEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBookingPaid,
			Timestamp: time.Now(),
		},
		BookingID:      booking.ID,
		UserID:         booking.UserID,
		TourID:         booking.TourID,
		Price:          booking.Price,
		ProviderEvent:  ev.ID,
		ProviderSessID: ev.SessionID,
	}
	if err := r.events.PublishBookingPaid(ctx, paidEvent); err != nil {
		r.logger.Error("Failed to publish BookingPaid event", zap.Error(err))
	}

	result.Outcome = OutcomePaid
	return result, nil
}

// reportAnomaly flags a confirmed payment that cannot be matched to a booking
func (r *Reconciler) reportAnomaly(ctx context.Context, ev *payment.Event, reason string) {
	util.PaymentAnomaliesTotal.Inc()
	r.logger.Error("Payment event matches no booking",
		zap.String("event_id", ev.ID),
		zap.String("session_id", ev.SessionID),
		zap.String("correlation", ev.CorrelationID),
		zap.String("reason", reason))

	event := &models.PaymentAnomalyEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentAnomaly,
			Timestamp: time.Now(),
		},
		ProviderEvent:  ev.ID,
		ProviderSessID: ev.SessionID,
		Correlation:    ev.CorrelationID,
		Reason:         reason,
	}
	if err := r.events.PublishPaymentAnomaly(ctx, event); err != nil {
		r.logger.Error("Failed to publish PaymentAnomaly event", zap.Error(err))
	}
}

func (r *Reconciler) markProcessed(ctx context.Context, ev *payment.Event) {
	if err := r.ledger.MarkEventProcessed(ctx, ev.ID, ev.Type); err != nil {
		r.logger.Warn("Failed to record processed event", zap.String("event_id", ev.ID), zap.Error(err))
	}
}
