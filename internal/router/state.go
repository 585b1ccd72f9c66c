// internal/router/state.go
package router

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/swap-router/internal/amount"
	"github.com/rovshanmuradov/swap-router/internal/blockchain"
	"github.com/rovshanmuradov/swap-router/internal/layout"
	"github.com/rovshanmuradov/swap-router/internal/types"
)

// GlobalState is the router program's singleton state account.
type GlobalState struct {
	IsInitialized  bool
	StateOwner     solana.PublicKey
	FeeOwner       solana.PublicKey
	FeeNumerator   uint64
	FeeDenominator uint64
}

// DecodeGlobalState parses the 81-byte state layout.
func DecodeGlobalState(data []byte) (*GlobalState, error) {
	rec, err := layout.Decode(data, layout.GlobalStateSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to decode global state: %w", err)
	}
	var s GlobalState
	if s.IsInitialized, err = rec.Flag("isInitialized"); err != nil {
		return nil, err
	}
	if s.StateOwner, err = rec.Key("stateOwner"); err != nil {
		return nil, err
	}
	if s.FeeOwner, err = rec.Key("feeOwner"); err != nil {
		return nil, err
	}
	if s.FeeNumerator, err = rec.Uint("feeNumerator"); err != nil {
		return nil, err
	}
	if s.FeeDenominator, err = rec.Uint("feeDenominator"); err != nil {
		return nil, err
	}
	return &s, nil
}

// Encode serializes the state; used for fixtures and local simulation.
func (s *GlobalState) Encode() ([]byte, error) {
	return layout.Encode(layout.Record{
		"isInitialized":  s.IsInitialized,
		"stateOwner":     s.StateOwner,
		"feeOwner":       s.FeeOwner,
		"feeNumerator":   s.FeeNumerator,
		"feeDenominator": s.FeeDenominator,
	}, layout.GlobalStateSchema)
}

// FeeFor returns floor(raw * numerator / denominator).
func (s *GlobalState) FeeFor(raw uint64) (uint64, error) {
	if s.FeeDenominator == 0 {
		return 0, fmt.Errorf("global state has zero fee denominator: %w", types.ErrRange)
	}
	return amount.MulDiv(raw, s.FeeNumerator, s.FeeDenominator)
}

// FetchGlobalState reads and decodes the state account. A missing or
// uninitialized account yields types.ErrNotFound.
func FetchGlobalState(ctx context.Context, client blockchain.Client, address solana.PublicKey) (*GlobalState, error) {
	acc, err := client.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get global state %s: %w", address, err)
	}
	state, err := DecodeGlobalState(acc.GetBinary())
	if err != nil {
		return nil, err
	}
	if !state.IsInitialized {
		return nil, fmt.Errorf("global state %s is not initialized: %w", address, types.ErrNotFound)
	}
	return state, nil
}
