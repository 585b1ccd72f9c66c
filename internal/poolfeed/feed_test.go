package poolfeed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/types"
	"github.com/rovshanmuradov/swap-router/internal/venue"
)

func key() string { return solana.NewWallet().PublicKey().String() }

func raydiumJSON(id, baseMint, quoteMint string) string {
	return fmt.Sprintf(`{"id":%q,"baseMint":%q,"quoteMint":%q,"authority":%q,"openOrders":%q,
"targetOrders":%q,"baseVault":%q,"quoteVault":%q,"programId":%q,"marketProgramId":%q,"marketId":%q,
"marketBids":%q,"marketAsks":%q,"marketEventQueue":%q,"marketBaseVault":%q,"marketQuoteVault":%q,
"marketAuthority":%q}`, id, baseMint, quoteMint, key(), key(), key(), key(), key(), key(), key(),
		key(), key(), key(), key(), key(), key(), key())
}

func fastRetry() types.RetryPolicy {
	return types.RetryPolicy{Interval: time.Millisecond, MaxInterval: time.Millisecond, MaxAttempts: 3}
}

func TestRaydiumFeed(t *testing.T) {
	id, base, quote := key(), key(), key()
	body := `{"official":[` + raydiumJSON(id, base, quote) + `,{"id":"broken"}],"unOfficial":[]}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	f := New(Options{RaydiumURL: srv.URL, Retry: fastRetry()}, zap.NewNop())
	pools, err := f.Raydium(context.Background())
	require.NoError(t, err)
	require.Len(t, pools, 1)

	p := pools[0]
	assert.Equal(t, "raydium:"+id, p.Name())
	assert.Equal(t, base, p.BaseMint.String())
	assert.True(t, p.Trades(solana.MustPublicKeyFromBase58(quote), solana.MustPublicKeyFromBase58(base)))

	metas, err := p.ResolveAccounts(p.BaseMint, p.QuoteMint)
	require.NoError(t, err)
	assert.Len(t, metas, venue.RaydiumAccountCount)
}

func TestSaberFeed(t *testing.T) {
	mintA, mintB := key(), key()
	body := fmt.Sprintf(`{"pools":[{"id":"usdc_usdt","name":"USDC-USDT","swap":{
"config":{"swapAccount":%q,"authority":%q,"swapProgramID":%q},
"state":{"tokenA":{"mint":%q,"reserve":%q,"adminFeeAccount":%q},
"tokenB":{"mint":%q,"reserve":%q,"adminFeeAccount":%q}}}},
{"id":"empty","swap":{"config":{},"state":{}}}]}`,
		key(), key(), key(), mintA, key(), key(), mintB, key(), key())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	f := New(Options{SaberURL: srv.URL, Retry: fastRetry()}, zap.NewNop())
	pools, err := f.Saber(context.Background())
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Equal(t, "saber:USDC-USDT", pools[0].Name())
	assert.Equal(t, mintA, pools[0].MintA.String())
}

func TestFeedRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"official":[]}`))
	}))
	defer srv.Close()

	f := New(Options{RaydiumURL: srv.URL, Retry: fastRetry()}, zap.NewNop())
	pools, err := f.Raydium(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pools)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestFeedStopsOnClientErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(Options{SaberURL: srv.URL, Retry: fastRetry()}, zap.NewNop())
	_, err := f.Saber(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 404")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFeedExhaustionIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := New(Options{RaydiumURL: srv.URL, Retry: fastRetry()}, zap.NewNop())
	_, err := f.Raydium(context.Background())
	assert.ErrorIs(t, err, types.ErrTimeout)
}

func TestVenuesCombinesFeeds(t *testing.T) {
	ray := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"official":[` + raydiumJSON(key(), key(), key()) + `]}`))
	}))
	defer ray.Close()

	f := New(Options{RaydiumURL: ray.URL, Retry: fastRetry()}, zap.NewNop())
	vs, err := f.Venues(context.Background())
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, venue.Raydium, vs[0].Kind())
}
