package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/types"
)

func balanceNode(t *testing.T, hits *int32, fail bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if fail {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		var req struct {
			ID interface{} `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		id, _ := json.Marshal(req.ID)
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":{"context":{"slot":1},"value":42}}`, id)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClientRequiresNodes(t *testing.T) {
	_, err := NewClient(nil, Options{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNoRPCNodes)
}

func TestExecuteWithRetryFailsOver(t *testing.T) {
	var badHits, goodHits int32
	bad := balanceNode(t, &badHits, true)
	good := balanceNode(t, &goodHits, false)

	c, err := NewClient([]string{bad.URL, good.URL}, Options{RetryDelay: time.Millisecond}, zap.NewNop())
	require.NoError(t, err)

	var balance uint64
	err = c.ExecuteWithRetry(context.Background(), "getBalance", func(ctx context.Context, node *solanarpc.Client) error {
		res, err := node.GetBalance(ctx, solana.SystemProgramID, solanarpc.CommitmentConfirmed)
		if err != nil {
			return err
		}
		balance = res.Value
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), balance)
	assert.Equal(t, int32(1), atomic.LoadInt32(&badHits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&goodHits))
}

func TestExecuteWithRetryWrapsLastError(t *testing.T) {
	var hits int32
	bad := balanceNode(t, &hits, true)

	c, err := NewClient([]string{bad.URL}, Options{Attempts: 3, RetryDelay: time.Millisecond}, zap.NewNop())
	require.NoError(t, err)

	err = c.ExecuteWithRetry(context.Background(), "getBalance", func(ctx context.Context, node *solanarpc.Client) error {
		_, err := node.GetBalance(ctx, solana.SystemProgramID, solanarpc.CommitmentConfirmed)
		return err
	})
	require.Error(t, err)
	var rpcErr *Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "getBalance", rpcErr.Method)
	assert.Equal(t, bad.URL, rpcErr.NodeURL)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestExecuteWithRetryStopsOnFinalError(t *testing.T) {
	c, err := NewClient([]string{"http://127.0.0.1:1", "http://127.0.0.1:2"}, Options{Attempts: 5}, zap.NewNop())
	require.NoError(t, err)

	calls := 0
	err = c.ExecuteWithRetry(context.Background(), "getAccountInfo", func(context.Context, *solanarpc.Client) error {
		calls++
		return fmt.Errorf("mint: %w", types.ErrNotFound)
	})
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestExecuteWithRetryRoundRobin(t *testing.T) {
	c, err := NewClient([]string{"http://a", "http://b"}, Options{RequestsPerSecond: 1000, Burst: 10}, zap.NewNop())
	require.NoError(t, err)

	var seen []*solanarpc.Client
	for i := 0; i < 3; i++ {
		require.NoError(t, c.ExecuteWithRetry(context.Background(), "noop", func(_ context.Context, node *solanarpc.Client) error {
			seen = append(seen, node)
			return nil
		}))
	}
	require.Len(t, seen, 3)
	assert.NotSame(t, seen[0], seen[1])
	assert.Same(t, seen[0], seen[2])
	assert.Equal(t, []string{"http://a", "http://b"}, c.URLs())
}

func TestExecuteWithRetryReportsLatency(t *testing.T) {
	var endpoints []string
	c, err := NewClient([]string{"http://a", "http://b"}, Options{
		Attempts:   2,
		RetryDelay: time.Millisecond,
		Latency: func(method, endpoint string, d time.Duration) {
			assert.Equal(t, "getSlot", method)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			endpoints = append(endpoints, endpoint)
		},
	}, zap.NewNop())
	require.NoError(t, err)

	first := true
	err = c.ExecuteWithRetry(context.Background(), "getSlot", func(context.Context, *solanarpc.Client) error {
		if first {
			first = false
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a", "http://b"}, endpoints)
}
