package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestWithRetryRepeatsUntilSuccess(t *testing.T) {
	calls := 0
	handler := WithRetry(func(ctx context.Context, msg kafka.Message) error {
		calls++
		if calls < 3 {
			return errors.New("database unavailable")
		}
		return nil
	}, time.Millisecond, 2*time.Millisecond)

	assert.NoError(t, handler(context.Background(), kafka.Message{Offset: 7}))
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsWhenContextEnds(t *testing.T) {
	calls := 0
	handler := WithRetry(func(ctx context.Context, msg kafka.Message) error {
		calls++
		return errors.New("database unavailable")
	}, 5*time.Millisecond, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := handler(ctx, kafka.Message{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, calls, 1)
}
