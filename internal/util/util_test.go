package util

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitLoggerLevel(t *testing.T) {
	require.NoError(t, InitLogger("production", "tour-service", "warn"))
	assert.False(t, GetLogger().Core().Enabled(-1))
	assert.True(t, GetLogger().Core().Enabled(1))

	assert.Error(t, InitLogger("development", "tour-service", "loud"))
}

func TestTracerWithoutExporter(t *testing.T) {
	tp, err := InitTracer("tour-service", "")
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())

	_, span := StartSpan(context.Background(), "test", attribute.String("booking_id", "b1"))
	FailSpan(span, errors.New("boom"))
	FailSpan(span, nil)
	span.End()

	assert.False(t, span.SpanContext().IsSampled())
}
