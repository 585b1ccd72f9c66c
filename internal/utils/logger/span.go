// internal/utils/logger/span.go
package logger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/types"
)

var _ types.Observer = (*SpanObserver)(nil)

type correlationKey struct{}

// CorrelationID returns the id of the outermost span in ctx, if any.
func CorrelationID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationKey{}).(string)
	return id, ok
}

// SpanObserver logs the start and end of every span. Nested spans share
// the correlation id of the outermost one.
type SpanObserver struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewSpanObserver(logger *zap.Logger) *SpanObserver {
	return &SpanObserver{logger: logger.Named("span"), now: time.Now}
}

type logSpan struct {
	logger *zap.Logger
	start  time.Time
	now    func() time.Time
}

func (o *SpanObserver) Start(ctx context.Context, name string) (context.Context, types.Span) {
	id, ok := CorrelationID(ctx)
	if !ok {
		id = uuid.New().String()
		ctx = context.WithValue(ctx, correlationKey{}, id)
	}
	l := o.logger.With(zap.String("operation", name), zap.String("correlation_id", id))
	l.Debug("Starting operation")
	return ctx, &logSpan{logger: l, start: o.now(), now: o.now}
}

func (s *logSpan) End(err error) {
	duration := s.now().Sub(s.start)
	if err != nil {
		s.logger.Warn("Operation failed",
			zap.Duration("duration", duration),
			zap.Error(err))
		return
	}
	s.logger.Debug("Operation completed",
		zap.Duration("duration", duration),
		zap.Float64("duration_ms", float64(duration.Microseconds())/1000))
}
