// internal/swap/route.go
package swap

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/amount"
	"github.com/rovshanmuradov/swap-router/internal/blockchain"
	"github.com/rovshanmuradov/swap-router/internal/derive"
	"github.com/rovshanmuradov/swap-router/internal/prepare"
	"github.com/rovshanmuradov/swap-router/internal/registry"
	"github.com/rovshanmuradov/swap-router/internal/router"
	"github.com/rovshanmuradov/swap-router/internal/submit"
	"github.com/rovshanmuradov/swap-router/internal/types"
	"github.com/rovshanmuradov/swap-router/internal/venue"
)

// DefaultMidBufferBps is taken off the quoted mid amount before it is spent
// by the second leg.
const DefaultMidBufferBps = 15

// Config holds the router program coordinates and route policies.
type Config struct {
	ProgramID solana.PublicKey
	StateSeed string
	// MidBufferBps reduces the quoted mid amount; also the first leg's minimum.
	MidBufferBps uint64
	Slippage     types.SlippageConfig
	FeePoll      types.RetryPolicy
}

// RouteRequest is one from → mid → to swap. Venue2 nil means a single hop
// ending in Mid.
type RouteRequest struct {
	From registry.Token
	Mid  registry.Token
	To   registry.Token

	Venue1 venue.Venue
	Venue2 venue.Venue

	// AmountIn is a human decimal string in From units.
	AmountIn string
	// ExpectedMid and ExpectedOut are quoted raw outputs of each leg.
	ExpectedMid uint64
	ExpectedOut uint64
}

func (r RouteRequest) validate() error {
	var errs []error
	if r.From.Mint.IsZero() || r.Mid.Mint.IsZero() {
		errs = append(errs, errors.New("from and mid tokens are required"))
	}
	if r.Venue1 == nil {
		errs = append(errs, errors.New("first venue is required"))
	}
	if r.Venue2 != nil && r.To.Mint.IsZero() {
		errs = append(errs, errors.New("destination token is required for a two-leg route"))
	}
	if r.ExpectedMid == 0 {
		errs = append(errs, errors.New("expected mid amount is required"))
	}
	if r.Venue2 != nil && r.ExpectedOut == 0 {
		errs = append(errs, errors.New("expected output is required for a two-leg route"))
	}
	if r.From.Mint.Equals(r.Mid.Mint) {
		errs = append(errs, fmt.Errorf("from and mid are both %s", r.From.Symbol))
	}
	if _, err := venue.NewSet(r.Venue1, r.Venue2); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r RouteRequest) destMint() solana.PublicKey {
	if r.Venue2 == nil {
		return solana.PublicKey{}
	}
	return r.To.Mint
}

// Route is a built, unsent swap.
type Route struct {
	Instructions []solana.Instruction
	Source       solana.PublicKey
	Mid          solana.PublicKey
	Dest         solana.PublicKey
	FeeAccount   solana.PublicKey

	AmountIn  uint64
	MidAmount uint64
	MinOut    uint64
	Fee       uint64
}

// Result of an executed swap.
type Result struct {
	Prepare   *prepare.Result
	Route     *Route
	Signature solana.Signature
}

// Service prepares, builds and submits routed swaps.
type Service struct {
	client   blockchain.Client
	deriver  *derive.Deriver
	preparer *prepare.Preparer
	sender   submit.Sender
	created  *prepare.CreatedSet
	cfg      Config
	observer types.Observer
	logger   *zap.Logger
}

func NewService(
	client blockchain.Client,
	deriver *derive.Deriver,
	preparer *prepare.Preparer,
	sender submit.Sender,
	cfg Config,
	observer types.Observer,
	logger *zap.Logger,
) (*Service, error) {
	if cfg.ProgramID.IsZero() {
		return nil, errors.New("router program id is required")
	}
	if cfg.Slippage.Type == "" {
		cfg.Slippage.Type = types.SlippageNone
	}
	if err := cfg.Slippage.Validate(); err != nil {
		return nil, err
	}
	if cfg.MidBufferBps > amount.BpsDenominator {
		return nil, fmt.Errorf("mid buffer %d bps: %w", cfg.MidBufferBps, types.ErrRange)
	}
	if deriver == nil {
		deriver = derive.NewDeriver()
	}
	return &Service{
		client:   client,
		deriver:  deriver,
		preparer: preparer,
		sender:   sender,
		created:  prepare.NewCreatedSet(),
		cfg:      cfg,
		observer: types.OrNop(observer),
		logger:   logger.Named("swap"),
	}, nil
}

// State fetches the router's global state.
func (s *Service) State(ctx context.Context) (*router.GlobalState, solana.PublicKey, error) {
	addr, err := s.deriver.GlobalState(s.cfg.ProgramID, s.cfg.StateSeed)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	state, err := router.FetchGlobalState(ctx, s.client, addr)
	if err != nil {
		return nil, addr, err
	}
	return state, addr, nil
}

// Execute prepares the wallet's accounts, builds the route and submits it.
func (s *Service) Execute(ctx context.Context, w submit.Wallet, req RouteRequest) (res *Result, err error) {
	ctx, span := s.observer.Start(ctx, "swap")
	defer func() { span.End(err) }()

	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("invalid route: %w", err)
	}
	amountIn, err := amount.ToRaw(req.AmountIn, req.From.Decimals)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	state, stateAddr, err := s.State(ctx)
	if err != nil {
		return nil, err
	}

	prep, err := s.preparer.Prepare(ctx, prepare.PlanRequest{
		Wallet:      w,
		FromMint:    req.From.Mint,
		MidMint:     req.Mid.Mint,
		ToMint:      req.destMint(),
		FeeOwner:    state.FeeOwner,
		AmountInRaw: amountIn,
		Created:     s.created,
	})
	if err != nil {
		return nil, err
	}

	route, err := s.build(ctx, w.PublicKey(), state, stateAddr, req, amountIn)
	if err != nil {
		return nil, err
	}

	sig, err := s.sender.Send(ctx, w, route.Instructions, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to submit swap: %w", err)
	}
	s.logger.Info("Swap confirmed",
		zap.String("signature", sig.String()),
		zap.String("from", req.From.Symbol),
		zap.String("mid", req.Mid.Symbol),
		zap.String("to", req.To.Symbol),
		zap.Uint64("amount_in", route.AmountIn),
		zap.Uint64("fee", route.Fee))

	return &Result{Prepare: prep, Route: route, Signature: sig}, nil
}

// BuildRoute builds the route instructions without preparing or sending.
func (s *Service) BuildRoute(ctx context.Context, owner solana.PublicKey, req RouteRequest) (*Route, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("invalid route: %w", err)
	}
	amountIn, err := amount.ToRaw(req.AmountIn, req.From.Decimals)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	state, stateAddr, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, owner, state, stateAddr, req, amountIn)
}

func (s *Service) build(
	ctx context.Context,
	owner solana.PublicKey,
	state *router.GlobalState,
	stateAddr solana.PublicKey,
	req RouteRequest,
	amountIn uint64,
) (*Route, error) {
	feeAccount, err := LocateFeeAccount(ctx, s.client, s.deriver, state.FeeOwner, req.From.Mint, s.cfg.FeePoll)
	if err != nil {
		return nil, err
	}
	fee, err := state.FeeFor(amountIn)
	if err != nil {
		return nil, err
	}

	route := &Route{FeeAccount: feeAccount, AmountIn: amountIn, Fee: fee}
	if route.Source, err = s.deriver.ATA(owner, req.From.Mint); err != nil {
		return nil, err
	}
	if route.Mid, err = s.deriver.ATA(owner, req.Mid.Mint); err != nil {
		return nil, err
	}
	if route.MidAmount, err = amount.DeductBps(req.ExpectedMid, s.cfg.MidBufferBps); err != nil {
		return nil, err
	}

	first, err := router.BuildRouteSwapInstruction(router.RouteSwapParams{
		ProgramID:  s.cfg.ProgramID,
		State:      stateAddr,
		Owner:      owner,
		Source:     route.Source,
		Mid:        route.Mid,
		Fee:        feeAccount,
		SourceMint: req.From.Mint,
		MidMint:    req.Mid.Mint,
		Venue1:     req.Venue1,
		Venue2:     req.Venue2,
		AmountIn:   amountIn,
		AmountOut:  route.MidAmount,
	})
	if err != nil {
		return nil, err
	}
	route.Instructions = append(route.Instructions, first)

	if req.Venue2 != nil {
		if route.Dest, err = s.deriver.ATA(owner, req.To.Mint); err != nil {
			return nil, err
		}
		if route.MinOut, err = s.cfg.Slippage.MinAmountOut(req.ExpectedOut); err != nil {
			return nil, err
		}
		second, err := router.BuildSecondLeg(router.SecondLegParams{
			Venue:       req.Venue2,
			Owner:       owner,
			Mid:         route.Mid,
			Dest:        route.Dest,
			MidMint:     req.Mid.Mint,
			DestMint:    req.To.Mint,
			MidAmount:   route.MidAmount,
			ExpectedOut: req.ExpectedOut,
			Slippage:    s.cfg.Slippage,
		})
		if err != nil {
			return nil, err
		}
		route.Instructions = append(route.Instructions, second)
	}

	s.logger.Debug("Route built",
		zap.String("venue1", req.Venue1.Name()),
		zap.Uint64("mid_amount", route.MidAmount),
		zap.Uint64("min_out", route.MinOut),
		zap.Int("instructions", len(route.Instructions)))
	return route, nil
}
