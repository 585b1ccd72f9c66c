package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/swap-router/internal/types"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{context.Canceled, "cancelled"},
		{&types.TimeoutError{Operation: "guardian"}, "timeout"},
		{&types.VerificationError{What: "fee account"}, "verification_failed"},
		{fmt.Errorf("venue: %w", types.ErrUnsupported), "unsupported"},
		{fmt.Errorf("state: %w", types.ErrNotFound), "not_found"},
		{errors.New("boom"), "failed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Status(tt.err))
	}
}

func TestCollectorSpans(t *testing.T) {
	c := NewCollector()
	ctx := context.Background()

	_, s := c.Start(ctx, "swap")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.inFlight.WithLabelValues("swap")))
	s.End(nil)
	s.End(errors.New("ignored second end"))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.inFlight.WithLabelValues("swap")))

	_, s = c.Start(ctx, "swap")
	s.End(&types.TimeoutError{Operation: "prepare accounts"})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("swap", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("swap", "timeout")))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, s = c.Start(cancelled, "bridge.transfer")
	s.End(nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("bridge.transfer", "cancelled")))

	c.RecordRPCLatency("getBalance", "https://rpc.example.com", 20*time.Millisecond)
	c.UpdatePoolCount("saber", 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.pools.WithLabelValues("saber")))

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "swap_router_operations_total")
	assert.Contains(t, names, "swap_router_rpc_latency_seconds")

	c.Reset()
	assert.Equal(t, 0.0, testutil.ToFloat64(c.operations.WithLabelValues("swap", "success")))
}

func TestCollectorImplementsObserver(t *testing.T) {
	var o types.Observer = types.MultiObserver{types.NopObserver{}, NewCollector()}
	_, s := o.Start(context.Background(), "prepare")
	s.End(nil)
}
