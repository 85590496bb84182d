package logctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

type recordingLogger struct {
	observability.Logger
	fields []observability.Field
}

func (l *recordingLogger) With(fields ...observability.Field) observability.Logger {
	return &recordingLogger{Logger: l.Logger, fields: append(append([]observability.Field(nil), l.fields...), fields...)}
}

func TestFromOrFallsBack(t *testing.T) {
	require.NotNil(t, FromOr(context.Background(), nil))

	base := &recordingLogger{Logger: observability.NopLogger()}
	require.Same(t, base, FromOr(context.Background(), base))

	ctx := With(context.Background(), base)
	require.Same(t, base, From(ctx))
}

func TestScopedStoresDerivedLogger(t *testing.T) {
	base := &recordingLogger{Logger: observability.NopLogger()}
	ctx, logger := Scoped(context.Background(), base, observability.F("order_id", "o1"))

	got, ok := From(ctx).(*recordingLogger)
	require.True(t, ok)
	require.Same(t, logger, From(ctx))
	require.Equal(t, []observability.Field{observability.F("order_id", "o1")}, got.fields)
}
