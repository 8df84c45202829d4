package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"tour-service/internal/models"
	"tour-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing booking events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishBookingCreated publishes BookingCreated event
func (ep *EventPublisher) PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingID), event.EventType, event)
}

// PublishBookingPaid publishes BookingPaid event
func (ep *EventPublisher) PublishBookingPaid(ctx context.Context, event *models.BookingPaidEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingID), event.EventType, event)
}

// PublishPaymentAnomaly publishes PaymentAnomaly event
func (ep *EventPublisher) PublishPaymentAnomaly(ctx context.Context, event *models.PaymentAnomalyEvent) error {
	return ep.producer.PublishEvent(ctx, "anomaly-"+event.Correlation, event.EventType, event)
}

func bookingKey(bookingID string) string {
	return fmt.Sprintf("booking-%s", bookingID)
}

// EventHandler handles incoming events
type EventHandler struct {
	onBookingPaid    func(context.Context, *models.BookingPaidEvent) error
	onPaymentAnomaly func(context.Context, *models.PaymentAnomalyEvent) error
	logger           *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnBookingPaid registers a handler for BookingPaid events
func (eh *EventHandler) OnBookingPaid(handler func(context.Context, *models.BookingPaidEvent) error) {
	eh.onBookingPaid = handler
}

// OnPaymentAnomaly registers a handler for PaymentAnomaly events
func (eh *EventHandler) OnPaymentAnomaly(handler func(context.Context, *models.PaymentAnomalyEvent) error) {
	eh.onPaymentAnomaly = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		// a payload that cannot be decoded will never succeed; drop it
		eh.logger.Error("Dropping undecodable event", zap.String("key", string(msg.Key)), zap.Error(err))
		return nil
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeBookingPaid:
		if eh.onBookingPaid != nil {
			var event models.BookingPaidEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				eh.logger.Error("Dropping malformed BookingPaid event", zap.String("id", baseEvent.EventID), zap.Error(err))
				return nil
			}
			return eh.onBookingPaid(ctx, &event)
		}

	case models.EventTypePaymentAnomaly:
		if eh.onPaymentAnomaly != nil {
			var event models.PaymentAnomalyEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				eh.logger.Error("Dropping malformed PaymentAnomaly event", zap.String("id", baseEvent.EventID), zap.Error(err))
				return nil
			}
			return eh.onPaymentAnomaly(ctx, &event)
		}
	}

	return nil
}
