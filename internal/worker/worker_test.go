package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tour-service/internal/broker"
	"tour-service/internal/models"
	"tour-service/internal/service"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource replays a fixed set of messages, then waits for cancellation
type sliceSource struct {
	messages []kafka.Message
	failed   int
	closed   bool
}

func (s *sliceSource) StartConsuming(ctx context.Context, handler broker.MessageHandler) error {
	for _, msg := range s.messages {
		if err := handler(ctx, msg); err != nil {
			s.failed++
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

// ledgerStub only tracks processed events
type ledgerStub struct {
	service.BookingLedger
	processed map[string]bool
}

func (l *ledgerStub) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	return l.processed[eventID], nil
}

func (l *ledgerStub) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	l.processed[eventID] = true
	return nil
}

// cartStub records removed cart lines
type cartStub struct {
	service.CartStore
	removed []string
}

func (c *cartStub) RemoveCartItem(ctx context.Context, userID, tourID string) error {
	c.removed = append(c.removed, userID+"/"+tourID)
	return nil
}

type sessionStub struct{}

func (sessionStub) ForgetCheckoutSession(ctx context.Context, bookingID string) error {
	return errors.New("redis down")
}

func encode(t *testing.T, event interface{}) kafka.Message {
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: value}
}

func TestBookingWorkerFulfillsPaidBookings(t *testing.T) {
	ledger := &ledgerStub{processed: map[string]bool{}}
	carts := &cartStub{}
	fulfillment := service.NewFulfillment(ledger, service.NewCartService(carts, nil), sessionStub{})

	paid := &models.BookingPaidEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-1", EventType: models.EventTypeBookingPaid, Timestamp: time.Now()},
		BookingID: "b1",
		UserID:    "u1",
		TourID:    "t1",
	}
	anomaly := &models.PaymentAnomalyEvent{
		BaseEvent:   models.BaseEvent{EventID: "evt-2", EventType: models.EventTypePaymentAnomaly, Timestamp: time.Now()},
		Correlation: "missing",
		Reason:      "no booking matches correlation token",
	}

	source := &sliceSource{messages: []kafka.Message{
		encode(t, paid),
		encode(t, paid),
		encode(t, anomaly),
		{Value: []byte("garbage")},
	}}
	w := NewBookingWorker(source, fulfillment)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := w.Start(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, 0, source.failed)
	assert.Equal(t, []string{"u1/t1"}, carts.removed)
	assert.True(t, ledger.processed["evt-1"])

	require.NoError(t, w.Stop())
	assert.True(t, source.closed)
}

// flakyLedger fails the first processed-event lookup, as a dropped database
// connection would
type flakyLedger struct {
	*ledgerStub
	failures int
	order    []string
}

func (l *flakyLedger) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	if l.failures > 0 {
		l.failures--
		return false, errors.New("connection reset")
	}
	return l.ledgerStub.IsEventProcessed(ctx, eventID)
}

func (l *flakyLedger) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	l.order = append(l.order, eventID)
	return l.ledgerStub.MarkEventProcessed(ctx, eventID, eventType)
}

func TestBookingWorkerRetriesFailedMessageBeforeNext(t *testing.T) {
	ledger := &flakyLedger{ledgerStub: &ledgerStub{processed: map[string]bool{}}, failures: 1}
	carts := &cartStub{}
	fulfillment := service.NewFulfillment(ledger, service.NewCartService(carts, nil), sessionStub{})

	first := &models.BookingPaidEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-1", EventType: models.EventTypeBookingPaid, Timestamp: time.Now()},
		BookingID: "b1",
		UserID:    "u1",
		TourID:    "t1",
	}
	second := &models.BookingPaidEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-2", EventType: models.EventTypeBookingPaid, Timestamp: time.Now()},
		BookingID: "b2",
		UserID:    "u2",
		TourID:    "t2",
	}

	source := &sliceSource{messages: []kafka.Message{encode(t, first), encode(t, second)}}
	w := NewBookingWorker(source, fulfillment)
	w.minBackoff = time.Millisecond
	w.maxBackoff = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := w.Start(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, 0, source.failed)
	assert.Equal(t, 0, ledger.failures)
	assert.Equal(t, []string{"evt-1", "evt-2"}, ledger.order)
	assert.Equal(t, []string{"u1/t1", "u2/t2"}, carts.removed)
}
