package types

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeoutErrorIs(t *testing.T) {
	last := errors.New("rpc unavailable")
	err := error(&TimeoutError{Operation: "poll", Attempts: 3, Last: last})

	assert.True(t, errors.Is(err, ErrTimeout))
	assert.True(t, errors.Is(err, last))
	assert.Contains(t, err.Error(), "poll")
}

func TestVerificationErrorIs(t *testing.T) {
	err := fmt.Errorf("route swap: %w", &VerificationError{
		What:     "fee account",
		Expected: solana.SystemProgramID,
		Got:      solana.TokenProgramID,
	})
	assert.True(t, errors.Is(err, ErrVerificationFailed))
	assert.True(t, IsPermanent(err))
}

func TestRetry(t *testing.T) {
	fast := RetryPolicy{Interval: time.Millisecond, MaxElapsed: 50 * time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		got, err := Retry(context.Background(), "op", fast, func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("not yet")
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent category", func(t *testing.T) {
		calls := 0
		_, err := Retry(context.Background(), "op", fast, func(context.Context) (int, error) {
			calls++
			return 0, fmt.Errorf("mint: %w", ErrNotFound)
		})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhaustion yields timeout error", func(t *testing.T) {
		_, err := Retry(context.Background(), "wait accounts", fast, func(context.Context) (int, error) {
			return 0, errors.New("still missing")
		})
		var te *TimeoutError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "wait accounts", te.Operation)
		assert.GreaterOrEqual(t, te.Attempts, 1)
		assert.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("max attempts", func(t *testing.T) {
		calls := 0
		policy := RetryPolicy{Interval: time.Millisecond, MaxAttempts: 2}
		_, err := Retry(context.Background(), "op", policy, func(context.Context) (int, error) {
			calls++
			return 0, errors.New("fail")
		})
		assert.ErrorIs(t, err, ErrTimeout)
		assert.Equal(t, 2, calls)
	})
}

func TestSlippageMinAmountOut(t *testing.T) {
	tests := []struct {
		name     string
		cfg      SlippageConfig
		expected uint64
		want     uint64
		wantErr  bool
	}{
		{"bps truncates", SlippageConfig{Type: SlippageBps, Bps: 15}, 999, 997, false},
		{"fixed", SlippageConfig{Type: SlippageFixed, Fixed: 10}, 999, 10, false},
		{"none", SlippageConfig{Type: SlippageNone}, 999, 0, false},
		{"bps out of range", SlippageConfig{Type: SlippageBps, Bps: 10001}, 999, 0, true},
		{"unknown", SlippageConfig{Type: "weird"}, 999, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.MinAmountOut(tt.expected)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProfileFor(t *testing.T) {
	p, err := ProfileFor(PriorityMedium)
	require.NoError(t, err)
	assert.Len(t, p.Instructions(), 2)

	none, err := ProfileFor(PriorityNone)
	require.NoError(t, err)
	assert.Empty(t, none.Instructions())

	_, err = ProfileFor("turbo")
	assert.Error(t, err)
}
