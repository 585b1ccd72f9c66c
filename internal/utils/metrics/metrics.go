// internal/utils/metrics/metrics.go
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/rovshanmuradov/swap-router/internal/types"
)

// Status classifies an operation outcome by error category.
func Status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, types.ErrTimeout):
		return "timeout"
	case errors.Is(err, types.ErrVerificationFailed):
		return "verification_failed"
	case errors.Is(err, types.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, types.ErrNotFound):
		return "not_found"
	default:
		return "failed"
	}
}

// RecordOperation записывает метрики операции с учетом контекста
func (c *Collector) RecordOperation(ctx context.Context, operation string, duration time.Duration, err error) {
	select {
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	default:
	}
	c.operations.WithLabelValues(operation, Status(err)).Inc()
	c.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRPCLatency записывает метрики RPC-запроса
func (c *Collector) RecordRPCLatency(method, endpoint string, duration time.Duration) {
	c.rpcLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// UpdatePoolCount обновляет число пулов площадки в реестре.
func (c *Collector) UpdatePoolCount(venue string, count int) {
	c.pools.WithLabelValues(venue).Set(float64(count))
}
