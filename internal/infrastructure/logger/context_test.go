package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContext(t *testing.T) {
	logger := zap.NewNop()
	ctx := WithContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}

func TestFromContextMissing(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
}

func TestWithRequestID(t *testing.T) {
	ctx, logger := WithRequestID(context.Background(), zap.NewNop(), "req-123")
	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.NotNil(t, logger)
}

func TestWithActorID(t *testing.T) {
	ctx, logger := WithActorID(context.Background(), zap.NewNop(), "user-456")
	assert.Equal(t, "user-456", GetActorID(ctx))
	assert.NotNil(t, logger)
}

func TestGetRequestIDMissing(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestContextLogger(t *testing.T) {
	t.Run("injects request and actor identity", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		base := zap.New(core)

		ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
		ctx = context.WithValue(ctx, ActorIDKey, "user-9")

		WithLogger(ctx, base).Info("charge generated")

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "charge generated", entry.Message)

		fields := entry.ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "user-9", fields["actor_id"])
	})

	t.Run("nil logger falls back to no-op", func(t *testing.T) {
		cl := &ContextLogger{ctx: context.Background()}
		assert.NotPanics(t, func() {
			cl.Info("ignored")
		})
	})

	t.Run("With adds fields to children", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		base := zap.New(core)

		WithLogger(context.Background(), base).
			With(zap.String("payment_id", "p-1")).
			Info("payment applied")

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "p-1", logs.All()[0].ContextMap()["payment_id"])
	})
}

func TestWithTraceContextNoSpan(t *testing.T) {
	logger := zap.NewNop()
	assert.Same(t, logger, WithTraceContext(context.Background(), logger))
}
