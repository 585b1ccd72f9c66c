// cmd/router/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"

	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/amount"
	"github.com/rovshanmuradov/swap-router/internal/app"
	"github.com/rovshanmuradov/swap-router/internal/bridge"
	"github.com/rovshanmuradov/swap-router/internal/config"
	"github.com/rovshanmuradov/swap-router/internal/prepare"
	"github.com/rovshanmuradov/swap-router/internal/registry"
	"github.com/rovshanmuradov/swap-router/internal/swap"
	"github.com/rovshanmuradov/swap-router/internal/utils/logger"
)

const usage = `usage: router [-config path] [-wallets path] [-wallet name] <command> [flags]

commands:
  state         print the router global state
  init-state    initialize the global state
  update-state  change the state owner or fee
  pools         list registered pools
  accounts      fetch program accounts through the cache
  prepare       create the token accounts a route needs
  swap          run a routed swap
  bridge        swap into a bridge token and transfer it to another chain
`

type command func(ctx context.Context, r *app.Runner, args []string) error

var commands = map[string]command{
	"state":        stateCmd,
	"init-state":   initStateCmd,
	"update-state": updateStateCmd,
	"pools":        poolsCmd,
	"accounts":     accountsCmd,
	"prepare":      prepareCmd,
	"swap":         swapCmd,
	"bridge":       bridgeCmd,
}

func main() {
	// .env необязателен
	_ = godotenv.Load()

	global := flag.NewFlagSet("router", flag.ExitOnError)
	configPath := global.String("config", "configs/config.json", "config file")
	walletsPath := global.String("wallets", "configs/wallets.csv", "wallets csv")
	walletName := global.String("wallet", "", "wallet name from the wallets file")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = global.Parse(os.Args[1:])

	if global.NArg() == 0 {
		global.Usage()
		os.Exit(2)
	}
	name := global.Arg(0)
	run, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		global.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	runner := app.NewRunner(cfg, log.WithOperation(name))
	runner.UseWallet(*walletName)
	defer runner.Shutdown()

	wallets := *walletsPath
	if name == "state" || name == "pools" || name == "accounts" {
		wallets = ""
	}
	if err := runner.Initialize(wallets); err != nil {
		log.Error("Failed to initialize", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := runner.Context(context.Background())
	defer cancel()
	runner.ServeMetrics(ctx)

	if err := run(ctx, runner, global.Args()[1:]); err != nil {
		log.Error("Command failed", zap.String("command", name), zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		runner.Shutdown()
		os.Exit(1)
	}
}

func printJSON(v interface{}) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func stateCmd(ctx context.Context, r *app.Runner, args []string) error {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	_ = fs.Parse(args)

	swaps, err := r.Swaps()
	if err != nil {
		return err
	}
	state, addr, err := swaps.State(ctx)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"address":        addr.String(),
		"owner":          state.StateOwner.String(),
		"feeOwner":       state.FeeOwner.String(),
		"feeNumerator":   state.FeeNumerator,
		"feeDenominator": state.FeeDenominator,
	})
}

func stateUpdateFlags(name string, args []string) (swap.StateUpdate, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	owner := fs.String("owner", "", "new state owner (default: current)")
	feeOwner := fs.String("fee-owner", "", "fee owner (default: current)")
	num := fs.Uint64("fee-num", 0, "fee numerator")
	den := fs.Uint64("fee-den", 1000, "fee denominator")
	_ = fs.Parse(args)

	var u swap.StateUpdate
	var err error
	if *owner != "" {
		if u.NewOwner, err = solana.PublicKeyFromBase58(*owner); err != nil {
			return u, fmt.Errorf("invalid owner: %w", err)
		}
	}
	if *feeOwner != "" {
		if u.FeeOwner, err = solana.PublicKeyFromBase58(*feeOwner); err != nil {
			return u, fmt.Errorf("invalid fee owner: %w", err)
		}
	}
	u.FeeNumerator, u.FeeDenominator = *num, *den
	return u, nil
}

func initStateCmd(ctx context.Context, r *app.Runner, args []string) error {
	u, err := stateUpdateFlags("init-state", args)
	if err != nil {
		return err
	}
	swaps, err := r.Swaps()
	if err != nil {
		return err
	}
	if _, _, err := swaps.State(ctx); err == nil {
		return errors.New("global state is already initialized, use update-state")
	}
	return sendStateUpdate(ctx, r, swaps, u)
}

func updateStateCmd(ctx context.Context, r *app.Runner, args []string) error {
	u, err := stateUpdateFlags("update-state", args)
	if err != nil {
		return err
	}
	swaps, err := r.Swaps()
	if err != nil {
		return err
	}
	return sendStateUpdate(ctx, r, swaps, u)
}

func sendStateUpdate(ctx context.Context, r *app.Runner, swaps *swap.Service, u swap.StateUpdate) error {
	w, err := r.SelectedWallet()
	if err != nil {
		return err
	}
	sig, err := swaps.UpdateState(ctx, w, u)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"signature": sig.String()})
}

func poolsCmd(ctx context.Context, r *app.Runner, args []string) error {
	fs := flag.NewFlagSet("pools", flag.ExitOnError)
	discover := fs.Bool("discover", false, "merge the Raydium and Saber pool feeds")
	kind := fs.String("kind", "", "only pools of this venue kind")
	_ = fs.Parse(args)

	if *discover {
		if err := r.DiscoverPools(ctx); err != nil {
			return err
		}
	}
	pools := r.Registry().Pools
	type row struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	var rows []row
	for _, name := range pools.Names() {
		v, err := pools.Get(name)
		if err != nil {
			return err
		}
		if *kind != "" && v.Kind().String() != *kind {
			continue
		}
		rows = append(rows, row{Name: name, Kind: v.Kind().String()})
	}
	return printJSON(rows)
}

func accountsCmd(ctx context.Context, r *app.Runner, args []string) error {
	fs := flag.NewFlagSet("accounts", flag.ExitOnError)
	name := fs.String("name", "", "cache entry name")
	program := fs.String("program", "", "program id")
	_ = fs.Parse(args)

	programID, err := solana.PublicKeyFromBase58(*program)
	if err != nil {
		return fmt.Errorf("invalid program id: %w", err)
	}
	accounts, err := r.ProgramAccounts(ctx, *name, programID)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(accounts))
	for _, a := range accounts {
		keys = append(keys, a.Pubkey.String())
	}
	sort.Strings(keys)
	return printJSON(map[string]interface{}{"count": len(keys), "accounts": keys})
}

type routeFlags struct {
	from, mid, to       *string
	kind1, pool1        *string
	kind2, pool2        *string
	amountIn            *string
	expectedMid, expOut *uint64
}

func addRouteFlags(fs *flag.FlagSet, withSecondLeg bool) *routeFlags {
	f := &routeFlags{
		from:        fs.String("from", "", "input token symbol or mint"),
		mid:         fs.String("mid", "", "intermediate token symbol or mint"),
		kind1:       fs.String("venue1", "raydium", "first leg venue kind"),
		pool1:       fs.String("pool1", "", "first leg pool name"),
		amountIn:    fs.String("amount", "", "input amount in token units"),
		expectedMid: fs.Uint64("expected-mid", 0, "quoted raw output of the first leg (required)"),
		expOut:      fs.Uint64("expected-out", 0, "quoted raw output of the second leg (required with -to)"),
	}
	if withSecondLeg {
		f.to = fs.String("to", "", "output token symbol or mint (empty: single hop)")
		f.kind2 = fs.String("venue2", "mercurial", "second leg venue kind")
		f.pool2 = fs.String("pool2", "", "second leg pool name")
	}
	return f
}

func (f *routeFlags) request(ctx context.Context, r *app.Runner) (swap.RouteRequest, error) {
	var req swap.RouteRequest
	var err error
	if req.From, err = r.ResolveToken(ctx, *f.from); err != nil {
		return req, fmt.Errorf("from: %w", err)
	}
	if req.Mid, err = r.ResolveToken(ctx, *f.mid); err != nil {
		return req, fmt.Errorf("mid: %w", err)
	}
	if req.Venue1, err = r.ResolveVenue(*f.kind1, *f.pool1, req.From.Mint, req.Mid.Mint); err != nil {
		return req, fmt.Errorf("venue1: %w", err)
	}
	if f.to != nil && *f.to != "" {
		if req.To, err = r.ResolveToken(ctx, *f.to); err != nil {
			return req, fmt.Errorf("to: %w", err)
		}
		if req.Venue2, err = r.ResolveVenue(*f.kind2, *f.pool2, req.Mid.Mint, req.To.Mint); err != nil {
			return req, fmt.Errorf("venue2: %w", err)
		}
	}
	req.AmountIn = *f.amountIn
	req.ExpectedMid = *f.expectedMid
	req.ExpectedOut = *f.expOut
	return req, nil
}

func prepareCmd(ctx context.Context, r *app.Runner, args []string) error {
	fs := flag.NewFlagSet("prepare", flag.ExitOnError)
	from := fs.String("from", "", "input token")
	mid := fs.String("mid", "", "intermediate token")
	to := fs.String("to", "", "output token")
	amountIn := fs.String("amount", "0", "input amount in token units")
	_ = fs.Parse(args)

	w, err := r.SelectedWallet()
	if err != nil {
		return err
	}
	var tokens []registry.Token
	for _, s := range []string{*from, *mid, *to} {
		if s == "" {
			tokens = append(tokens, registry.Token{})
			continue
		}
		tok, err := r.ResolveToken(ctx, s)
		if err != nil {
			return err
		}
		tokens = append(tokens, tok)
	}
	raw, err := amount.ToRaw(*amountIn, tokens[0].Decimals)
	if err != nil {
		return err
	}
	swaps, err := r.Swaps()
	if err != nil {
		return err
	}
	state, _, err := swaps.State(ctx)
	if err != nil {
		return err
	}

	res, err := r.Preparer().Prepare(ctx, prepare.PlanRequest{
		Wallet:      w,
		FromMint:    tokens[0].Mint,
		MidMint:     tokens[1].Mint,
		ToMint:      tokens[2].Mint,
		FeeOwner:    state.FeeOwner,
		AmountInRaw: raw,
		Created:     prepare.NewCreatedSet(),
	})
	if err != nil {
		return err
	}
	created := make([]string, 0, len(res.Plan.Creates))
	for _, a := range res.Plan.Creates {
		created = append(created, a.String())
	}
	out := map[string]interface{}{"created": created, "wrapLamports": res.Plan.WrapLamports}
	if !res.Signature.IsZero() {
		out["signature"] = res.Signature.String()
	}
	return printJSON(out)
}

func swapCmd(ctx context.Context, r *app.Runner, args []string) error {
	fs := flag.NewFlagSet("swap", flag.ExitOnError)
	rf := addRouteFlags(fs, true)
	_ = fs.Parse(args)

	req, err := rf.request(ctx, r)
	if err != nil {
		return err
	}
	w, err := r.SelectedWallet()
	if err != nil {
		return err
	}
	swaps, err := r.Swaps()
	if err != nil {
		return err
	}
	res, err := swaps.Execute(ctx, w, req)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"signature": res.Signature.String(),
		"amountIn":  res.Route.AmountIn,
		"midAmount": res.Route.MidAmount,
		"minOut":    res.Route.MinOut,
		"fee":       res.Route.Fee,
	})
}

func bridgeCmd(ctx context.Context, r *app.Runner, args []string) error {
	fs := flag.NewFlagSet("bridge", flag.ExitOnError)
	rf := addRouteFlags(fs, false)
	chain := fs.String("chain", "ethereum", "target chain")
	target := fs.String("target", "", "recipient address on the target chain (hex)")
	relayerFee := fs.Uint64("relayer-fee", 0, "relayer fee in raw units")
	nonce := fs.Uint("nonce", 0, "message nonce (default: random)")
	_ = fs.Parse(args)

	route, err := rf.request(ctx, r)
	if err != nil {
		return err
	}
	req := swap.CrossChainRequest{
		From:        route.From,
		Mid:         route.Mid,
		Venue1:      route.Venue1,
		AmountIn:    route.AmountIn,
		ExpectedMid: route.ExpectedMid,
		ExpectedOut: route.ExpectedOut,
		RelayerFee:  *relayerFee,
		Nonce:       uint32(*nonce),
	}
	if req.Nonce == 0 {
		req.Nonce = rand.Uint32()
	}
	if req.TargetChain, err = bridge.ParseChain(*chain); err != nil {
		return err
	}
	if req.TargetAddress, err = bridge.ParseAddress32(*target); err != nil {
		return fmt.Errorf("invalid target address: %w", err)
	}

	w, err := r.SelectedWallet()
	if err != nil {
		return err
	}
	cc, err := r.CrossChain()
	if err != nil {
		return err
	}
	res, err := cc.Execute(ctx, w, req)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"swapSignature":     res.Swap.Signature.String(),
		"transferSignature": res.Attestation.Signature.String(),
		"sequence":          res.Attestation.Sequence,
		"emitter":           res.Attestation.Emitter,
		"amount":            res.Amount,
		"vaa":               fmt.Sprintf("%x", res.Attestation.VAA),
	})
}
