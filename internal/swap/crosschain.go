// internal/swap/crosschain.go
package swap

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/amount"
	"github.com/rovshanmuradov/swap-router/internal/bridge"
	"github.com/rovshanmuradov/swap-router/internal/prepare"
	"github.com/rovshanmuradov/swap-router/internal/registry"
	"github.com/rovshanmuradov/swap-router/internal/submit"
	"github.com/rovshanmuradov/swap-router/internal/types"
	"github.com/rovshanmuradov/swap-router/internal/venue"
)

// Share of the quoted swap output that is bridged.
const (
	BridgeShareNumerator   = 996
	BridgeShareDenominator = 1000
)

// Bridge moves Solana tokens to another chain.
type Bridge interface {
	Transfer(ctx context.Context, w submit.Wallet, req bridge.TransferRequest) (*bridge.Attestation, error)
	Redeem(ctx context.Context, att *bridge.Attestation) error
}

var _ Bridge = (*bridge.Adapter)(nil)

// CrossChainRequest swaps From into the target chain's wrapped token via Mid,
// then bridges the result.
type CrossChainRequest struct {
	From   registry.Token
	Mid    registry.Token
	Venue1 venue.Venue

	AmountIn    string
	ExpectedMid uint64
	ExpectedOut uint64

	TargetChain   bridge.ChainID
	TargetAddress bridge.Address32
	RelayerFee    uint64
	Nonce         uint32
	// Redeem completes the transfer on the target chain when a redeemer is registered.
	Redeem bool
}

type CrossChainResult struct {
	Swap        *Result
	Attestation *bridge.Attestation
	Amount      uint64
}

// CrossChain combines a two-leg swap into a bridge token with the bridge transfer.
type CrossChain struct {
	swaps    *Service
	registry *registry.Registry
	bridge   Bridge
	observer types.Observer
	logger   *zap.Logger
}

func NewCrossChain(swaps *Service, reg *registry.Registry, b Bridge, observer types.Observer, logger *zap.Logger) *CrossChain {
	return &CrossChain{
		swaps:    swaps,
		registry: reg,
		bridge:   b,
		observer: types.OrNop(observer),
		logger:   logger.Named("crosschain"),
	}
}

// BridgeAmount is floor(out * 996 / 1000).
func BridgeAmount(out uint64) (uint64, error) {
	return amount.MulDiv(out, BridgeShareNumerator, BridgeShareDenominator)
}

func (c *CrossChain) Execute(ctx context.Context, w submit.Wallet, req CrossChainRequest) (res *CrossChainResult, err error) {
	ctx, span := c.observer.Start(ctx, "crosschain")
	defer func() { span.End(err) }()

	if req.TargetAddress == (bridge.Address32{}) {
		return nil, errors.New("target address is required")
	}
	target, pool, token, err := c.registry.TargetFor(req.TargetChain)
	if err != nil {
		return nil, fmt.Errorf("no route to %s: %w", req.TargetChain, err)
	}

	bridged, err := BridgeAmount(req.ExpectedOut)
	if err != nil {
		return nil, err
	}
	if bridged == 0 {
		return nil, fmt.Errorf("bridge amount of %d is zero: %w", req.ExpectedOut, types.ErrRange)
	}

	swapped, err := c.swaps.Execute(ctx, w, RouteRequest{
		From:        req.From,
		Mid:         req.Mid,
		To:          token,
		Venue1:      req.Venue1,
		Venue2:      pool,
		AmountIn:    req.AmountIn,
		ExpectedMid: req.ExpectedMid,
		ExpectedOut: req.ExpectedOut,
	})
	if err != nil {
		return nil, err
	}

	bridged, err = c.received(ctx, swapped, token.Mint, bridged)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Bridging swap output",
		zap.String("token", token.Symbol),
		zap.String("chain", target.Chain.String()),
		zap.Uint64("amount", bridged))

	att, err := c.bridge.Transfer(ctx, w, bridge.TransferRequest{
		From:          swapped.Route.Dest,
		Mint:          token.Mint,
		Amount:        bridged,
		RelayerFee:    req.RelayerFee,
		Nonce:         req.Nonce,
		TargetChain:   target.Chain,
		TargetAddress: req.TargetAddress,
		OriginChain:   target.OriginChain,
		OriginAddress: target.OriginAddress,
	})
	if err != nil {
		return nil, err
	}
	res = &CrossChainResult{Swap: swapped, Attestation: att, Amount: bridged}

	if req.Redeem {
		if err := c.bridge.Redeem(ctx, att); err != nil {
			return res, err
		}
	}
	return res, nil
}

// received caps share by what the swap actually delivered to the
// destination account. The swap only guarantees its slippage minimum.
func (c *CrossChain) received(ctx context.Context, swapped *Result, mint solana.PublicKey, share uint64) (uint64, error) {
	var before uint64
	if swapped.Prepare != nil && swapped.Prepare.Snapshot != nil {
		before = swapped.Prepare.Snapshot.Balance(mint)
	}
	balances, err := prepare.TokenBalances(ctx, c.swaps.client, swapped.Route.Dest)
	if err != nil {
		return 0, err
	}
	after := balances[swapped.Route.Dest]

	var delta uint64
	if after > before {
		delta = after - before
	}
	if delta == 0 {
		return 0, fmt.Errorf("swap %s delivered nothing to %s: %w", swapped.Signature, swapped.Route.Dest, types.ErrRange)
	}
	if delta < share {
		c.logger.Warn("Swap delivered less than the bridge share",
			zap.Uint64("delivered", delta),
			zap.Uint64("share", share),
			zap.Uint64("min_out", swapped.Route.MinOut))
	}
	return min(delta, share), nil
}
