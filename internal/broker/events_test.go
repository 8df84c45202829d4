package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tour-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, event interface{}) kafka.Message {
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte("booking-b1"), Value: value}
}

func TestHandleMessageRoutesBookingPaid(t *testing.T) {
	handler := NewEventHandler()

	var got *models.BookingPaidEvent
	handler.OnBookingPaid(func(ctx context.Context, e *models.BookingPaidEvent) error {
		got = e
		return nil
	})

	event := &models.BookingPaidEvent{
		BaseEvent: models.BaseEvent{EventID: "e1", EventType: models.EventTypeBookingPaid, Timestamp: time.Now()},
		BookingID: "b1",
		UserID:    "u1",
		TourID:    "t1",
	}

	require.NoError(t, handler.HandleMessage(context.Background(), message(t, event)))
	require.NotNil(t, got)
	assert.Equal(t, "b1", got.BookingID)
	assert.Equal(t, "t1", got.TourID)
}

func TestHandleMessagePropagatesHandlerError(t *testing.T) {
	handler := NewEventHandler()
	handler.OnPaymentAnomaly(func(ctx context.Context, e *models.PaymentAnomalyEvent) error {
		return errors.New("boom")
	})

	event := &models.PaymentAnomalyEvent{
		BaseEvent:   models.BaseEvent{EventID: "e2", EventType: models.EventTypePaymentAnomaly},
		Correlation: "missing",
	}

	assert.Error(t, handler.HandleMessage(context.Background(), message(t, event)))
}

func TestHandleMessageIgnoresUnknownAndGarbage(t *testing.T) {
	handler := NewEventHandler()
	handler.OnBookingPaid(func(ctx context.Context, e *models.BookingPaidEvent) error {
		t.Fatal("unexpected dispatch")
		return nil
	})

	created := &models.BookingCreatedEvent{
		BaseEvent: models.BaseEvent{EventID: "e3", EventType: models.EventTypeBookingCreated},
		BookingID: "b1",
	}
	assert.NoError(t, handler.HandleMessage(context.Background(), message(t, created)))
	assert.NoError(t, handler.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")}))
}
