package broker

import (
	"context"
	"time"

	"tour-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// WithRetry wraps handler so a failing message is retried with exponential
// backoff until it succeeds or ctx is done. The consumer never moves past a
// message that has not been handled.
func WithRetry(handler MessageHandler, initial, maxBackoff time.Duration) MessageHandler {
	logger := util.GetLogger()

	return func(ctx context.Context, msg kafka.Message) error {
		backoff := initial
		for attempt := 1; ; attempt++ {
			err := handler(ctx, msg)
			if err == nil {
				return nil
			}
			logger.Warn("Error handling message, retrying",
				zap.String("key", string(msg.Key)),
				zap.Int64("offset", msg.Offset),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}

			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}
