package worker

import (
	"context"
	"time"

	"tour-service/internal/broker"
	"tour-service/internal/service"
	"tour-service/internal/util"

	"go.uber.org/zap"
)

const (
	retryInitialBackoff = 100 * time.Millisecond
	retryMaxBackoff     = 10 * time.Second
)

// MessageSource is a stream of booking events
type MessageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// BookingWorker handles background processing for booking events
type BookingWorker struct {
	source       MessageSource
	eventHandler *broker.EventHandler
	minBackoff   time.Duration
	maxBackoff   time.Duration
	logger       *zap.Logger
}

// NewBookingWorker creates a new booking worker
func NewBookingWorker(source MessageSource, fulfillment *service.Fulfillment) *BookingWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnBookingPaid(fulfillment.HandleBookingPaid)
	eventHandler.OnPaymentAnomaly(fulfillment.HandlePaymentAnomaly)

	return &BookingWorker{
		source:       source,
		eventHandler: eventHandler,
		minBackoff:   retryInitialBackoff,
		maxBackoff:   retryMaxBackoff,
		logger:       util.GetLogger(),
	}
}

// Start consumes booking events until ctx is cancelled. A message whose
// handling fails is retried in place, so later messages never commit past it.
func (w *BookingWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting booking worker")
	return w.source.StartConsuming(ctx, broker.WithRetry(w.eventHandler.HandleMessage, w.minBackoff, w.maxBackoff))
}

// Stop stops the worker
func (w *BookingWorker) Stop() error {
	w.logger.Info("Stopping booking worker")
	return w.source.Close()
}
