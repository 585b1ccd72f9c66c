package app

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/config"
	"github.com/rovshanmuradov/swap-router/internal/registry"
	"github.com/rovshanmuradov/swap-router/internal/types"
	"github.com/rovshanmuradov/swap-router/internal/venue"
	"github.com/rovshanmuradov/swap-router/internal/wallet"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	r := NewRunner(&config.Config{}, zap.NewNop())
	r.registry = reg
	return r
}

func TestWalletSelection(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Wallet("")
	assert.Error(t, err, "no wallets loaded")

	main := wallet.FromPrivateKey(solana.NewWallet().PrivateKey)
	r.wallets = map[string]*wallet.Wallet{"main": main}

	w, err := r.Wallet("")
	require.NoError(t, err)
	assert.Same(t, main, w)

	r.wallets["spare"] = wallet.FromPrivateKey(solana.NewWallet().PrivateKey)
	_, err = r.Wallet("")
	assert.ErrorContains(t, err, "main")

	w, err = r.Wallet("spare")
	require.NoError(t, err)
	assert.NotSame(t, main, w)

	_, err = r.Wallet("missing")
	assert.Error(t, err)

	r.UseWallet("main")
	w, err = r.SelectedWallet()
	require.NoError(t, err)
	assert.Same(t, main, w)
}

func TestResolveTokenFromRegistry(t *testing.T) {
	r := newTestRunner(t)
	usdc, err := r.registry.Tokens.BySymbol("USDC")
	require.NoError(t, err)

	tok, err := r.ResolveToken(context.Background(), "USDC")
	require.NoError(t, err)
	assert.Equal(t, usdc, tok)

	tok, err = r.ResolveToken(context.Background(), usdc.Mint.String())
	require.NoError(t, err)
	assert.Equal(t, "USDC", tok.Symbol)

	_, err = r.ResolveToken(context.Background(), "NOPE")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestResolveVenue(t *testing.T) {
	r := newTestRunner(t)

	v, err := r.ResolveVenue("mercurial", "wUSD-4Pool", solana.PublicKey{}, solana.PublicKey{})
	require.NoError(t, err)
	assert.Equal(t, venue.Mercurial, v.Kind())
	assert.Equal(t, "wUSD-4Pool", v.Name())

	_, err = r.ResolveVenue("raydium", "wUSD-4Pool", solana.PublicKey{}, solana.PublicKey{})
	assert.Error(t, err, "kind mismatch")

	_, err = r.ResolveVenue("raydium", "", solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, types.ErrNotFound)

	v, err = r.ResolveVenue("serum", "", solana.PublicKey{}, solana.PublicKey{})
	require.NoError(t, err)
	_, err = v.ResolveAccounts(solana.PublicKey{}, solana.PublicKey{})
	assert.ErrorIs(t, err, types.ErrUnsupported)

	_, err = r.ResolveVenue("uniswap", "", solana.PublicKey{}, solana.PublicKey{})
	assert.Error(t, err)
}

func TestRecordPools(t *testing.T) {
	r := newTestRunner(t)
	r.recordPools()

	n, err := testutil.GatherAndCount(r.metrics.Registry(), "swap_router_registry_pools")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "one series per addressable venue kind")
}
