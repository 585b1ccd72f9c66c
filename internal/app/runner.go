// internal/app/runner.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/blockchain/solbc"
	failover "github.com/rovshanmuradov/swap-router/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/swap-router/internal/bridge"
	"github.com/rovshanmuradov/swap-router/internal/config"
	"github.com/rovshanmuradov/swap-router/internal/derive"
	"github.com/rovshanmuradov/swap-router/internal/poolfeed"
	"github.com/rovshanmuradov/swap-router/internal/prepare"
	"github.com/rovshanmuradov/swap-router/internal/registry"
	"github.com/rovshanmuradov/swap-router/internal/submit"
	"github.com/rovshanmuradov/swap-router/internal/swap"
	"github.com/rovshanmuradov/swap-router/internal/types"
	"github.com/rovshanmuradov/swap-router/internal/utils/logger"
	"github.com/rovshanmuradov/swap-router/internal/utils/metrics"
	"github.com/rovshanmuradov/swap-router/internal/venue"
	"github.com/rovshanmuradov/swap-router/internal/wallet"
)

// Runner собирает все компоненты роутера из конфигурации.
type Runner struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *metrics.Collector
	observer types.Observer

	client    *solbc.Client
	mints     *solbc.MintCache
	deriver   *derive.Deriver
	registry  *registry.Registry
	submitter *submit.Submitter
	wallets   map[string]*wallet.Wallet

	// walletName selects the signer for commands; empty means the only one.
	walletName string
}

func NewRunner(cfg *config.Config, log *zap.Logger) *Runner {
	collector := metrics.NewCollector()
	return &Runner{
		cfg:      cfg,
		logger:   log,
		metrics:  collector,
		observer: types.MultiObserver{logger.NewSpanObserver(log), collector},
		deriver:  derive.NewDeriver(),
	}
}

// Initialize подключает узлы, загружает реестр и кошельки.
func (r *Runner) Initialize(walletsPath string) error {
	nodes, err := failover.NewClient(r.cfg.RPCList, failover.Options{
		RequestsPerSecond: r.cfg.RPCRate,
		Burst:             r.cfg.RPCBurst,
		Attempts:          r.cfg.Retries,
		Latency:           r.metrics.RecordRPCLatency,
	}, r.logger)
	if err != nil {
		return fmt.Errorf("failed to create rpc client: %w", err)
	}
	r.client = solbc.NewClient(nodes, solbc.Options{
		Commitment: rpc.CommitmentType(r.cfg.Commitment),
		Confirm:    r.cfg.PollPolicy(),
	}, r.logger)
	r.mints = solbc.NewMintCache(r.client, r.logger)

	if r.cfg.RegistryFile != "" {
		r.registry, err = registry.Load(r.cfg.RegistryFile)
	} else {
		r.registry, err = registry.Default()
	}
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	r.recordPools()

	r.submitter = submit.NewSubmitter(r.client, submit.Options{
		Priority:   r.cfg.PriorityProfile(),
		Commitment: rpc.CommitmentType(r.cfg.Commitment),
		Simulate:   r.cfg.Simulate,
	}, r.observer, r.logger)

	if walletsPath != "" {
		r.wallets, err = wallet.LoadWallets(walletsPath)
		if err != nil {
			return fmt.Errorf("failed to load wallets: %w", err)
		}
		r.logger.Info("Wallets loaded", zap.Int("count", len(r.wallets)))
	}
	return nil
}

func (r *Runner) recordPools() {
	for _, k := range []venue.Kind{venue.Raydium, venue.Saber, venue.Mercurial} {
		r.metrics.UpdatePoolCount(k.String(), len(r.registry.Pools.OfKind(k)))
	}
}

// Context отменяется по SIGINT/SIGTERM.
func (r *Runner) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	return ctx, cancel
}

func (r *Runner) Registry() *registry.Registry { return r.registry }
func (r *Runner) Client() *solbc.Client         { return r.client }
func (r *Runner) Submitter() *submit.Submitter  { return r.submitter }
func (r *Runner) Deriver() *derive.Deriver      { return r.deriver }

// Wallet returns the named wallet, or the only one when name is empty.
func (r *Runner) Wallet(name string) (*wallet.Wallet, error) {
	if len(r.wallets) == 0 {
		return nil, errors.New("no wallets loaded")
	}
	if name != "" {
		w, ok := r.wallets[name]
		if !ok {
			return nil, fmt.Errorf("wallet %q not found", name)
		}
		return w, nil
	}
	names := make([]string, 0, len(r.wallets))
	for n := range r.wallets {
		names = append(names, n)
	}
	if len(names) > 1 {
		sort.Strings(names)
		return nil, fmt.Errorf("several wallets loaded, pick one of %v", names)
	}
	return r.wallets[names[0]], nil
}

// UseWallet sets the wallet returned by SelectedWallet.
func (r *Runner) UseWallet(name string) { r.walletName = name }

func (r *Runner) SelectedWallet() (*wallet.Wallet, error) {
	return r.Wallet(r.walletName)
}

// ResolveToken accepts a symbol or a mint. Unknown mints are read from
// chain; their symbol is the mint itself.
func (r *Runner) ResolveToken(ctx context.Context, s string) (registry.Token, error) {
	tok, err := r.registry.Tokens.Resolve(s)
	if err == nil || !errors.Is(err, types.ErrNotFound) {
		return tok, err
	}
	mint, perr := solana.PublicKeyFromBase58(s)
	if perr != nil {
		return registry.Token{}, err
	}
	info, err := r.mints.Get(ctx, mint)
	if err != nil {
		return registry.Token{}, err
	}
	return registry.Token{Symbol: mint.String(), Mint: mint, Decimals: info.Decimals}, nil
}

// DiscoverPools merges the venues' published pool lists into the registry.
func (r *Runner) DiscoverPools(ctx context.Context) error {
	feed := poolfeed.New(poolfeed.Options{
		RaydiumURL: r.cfg.RaydiumPoolsURL,
		SaberURL:   r.cfg.SaberPoolsURL,
	}, r.logger)
	vs, err := feed.Venues(ctx)
	if err != nil {
		return fmt.Errorf("failed to discover pools: %w", err)
	}
	var fresh []venue.Venue
	for _, v := range vs {
		if _, err := r.registry.Pools.Get(v.Name()); err == nil {
			continue
		}
		fresh = append(fresh, v)
	}
	next, err := r.registry.WithPools(fresh...)
	if err != nil {
		return err
	}
	r.registry = next
	r.recordPools()
	r.logger.Info("Pools discovered", zap.Int("new", len(fresh)), zap.Int("total", next.Pools.Len()))
	return nil
}

// ResolveVenue picks a pool by name, or the first pool of kind trading
// the pair. Serum and Orca resolve to unsupported venues.
func (r *Runner) ResolveVenue(kindName, pool string, a, b solana.PublicKey) (venue.Venue, error) {
	kind, err := venue.ParseKind(kindName)
	if err != nil {
		return nil, err
	}
	var bound venue.Venue
	switch {
	case pool != "":
		bound, err = r.registry.Pools.Get(pool)
		if err != nil {
			return nil, err
		}
		if bound.Kind() != kind {
			return nil, fmt.Errorf("pool %q is %s, not %s", pool, bound.Kind(), kind)
		}
	case kind == venue.Raydium || kind == venue.Saber:
		bound, err = r.registry.Pools.FindPair(kind, a, b)
		if err != nil {
			return nil, err
		}
	}
	set, err := venue.NewSet(bound)
	if err != nil {
		return nil, err
	}
	return set.Resolve(kind)
}

func (r *Runner) Preparer() *prepare.Preparer {
	planner := prepare.NewPlanner(r.client, r.deriver, r.cfg.IdempotentATA, r.logger)
	return prepare.NewPreparer(planner, r.submitter, r.cfg.PollPolicy(), r.observer, r.logger)
}

func (r *Runner) Swaps() (*swap.Service, error) {
	return swap.NewService(r.client, r.deriver, r.Preparer(), r.submitter, swap.Config{
		ProgramID:    r.cfg.RouterProgram(),
		StateSeed:    r.cfg.StateSeed,
		MidBufferBps: r.cfg.MidBufferBps,
		Slippage:     r.cfg.Slippage,
		FeePoll:      r.cfg.PollPolicy(),
	}, r.observer, r.logger)
}

func (r *Runner) Bridge() (*bridge.Adapter, error) {
	core, tokenBridge := r.cfg.BridgePrograms()
	guardians, err := bridge.NewGuardianClient(r.cfg.Bridge.GuardianHosts, r.cfg.GuardianPolicy(), nil, r.logger)
	if err != nil {
		return nil, err
	}
	tb := bridge.NewTokenBridge(bridge.Programs{Core: core, TokenBridge: tokenBridge})
	return bridge.NewAdapter(tb, r.client, r.submitter, guardians, nil, r.observer, r.logger), nil
}

func (r *Runner) CrossChain() (*swap.CrossChain, error) {
	swaps, err := r.Swaps()
	if err != nil {
		return nil, err
	}
	b, err := r.Bridge()
	if err != nil {
		return nil, err
	}
	return swap.NewCrossChain(swaps, r.registry, b, r.observer, r.logger), nil
}

// ProgramAccounts reads program accounts through the cache endpoint.
func (r *Runner) ProgramAccounts(ctx context.Context, name string, programID solana.PublicKey) (rpc.GetProgramAccountsResult, error) {
	cache := solbc.NewProgramAccountsCache(r.client, r.cfg.ProgramCacheURL, nil, r.logger)
	return cache.Get(ctx, name, programID, nil)
}

// ServeMetrics exposes the collector on cfg.MetricsAddr until ctx ends.
func (r *Runner) ServeMetrics(ctx context.Context) {
	if r.cfg.MetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.metrics.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: r.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Warn("Metrics server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func (r *Runner) Shutdown() {
	if err := r.logger.Sync(); err != nil {
		if !os.IsNotExist(err) &&
			err.Error() != "sync /dev/stderr: invalid argument" &&
			err.Error() != "sync /dev/stderr: inappropriate ioctl for device" {
			fmt.Fprintf(os.Stderr, "failed to sync logger during shutdown: %v\n", err)
		}
	}
}
