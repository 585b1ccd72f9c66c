// internal/router/instruction.go
package router

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/swap-router/internal/layout"
	"github.com/rovshanmuradov/swap-router/internal/types"
	"github.com/rovshanmuradov/swap-router/internal/venue"
)

// Router program opcodes.
const (
	InstructionUpdateState uint8 = 0
	InstructionRouteSwap   uint8 = 1
)

// RouteSwapHeaderLen is the number of router-owned keys ahead of the venue slice.
const RouteSwapHeaderLen = 6

// RouteSwapParams описывает первый шаг маршрута через роутер.
type RouteSwapParams struct {
	ProgramID solana.PublicKey
	State     solana.PublicKey
	Owner     solana.PublicKey

	Source solana.PublicKey
	Mid    solana.PublicKey
	Fee    solana.PublicKey

	SourceMint solana.PublicKey
	MidMint    solana.PublicKey

	Venue1 venue.Venue
	// Venue2 == nil encodes route2 as Skip.
	Venue2 venue.Venue

	AmountIn uint64
	// AmountOut is the minimum the first leg must deliver into Mid.
	AmountOut uint64
}

func (p RouteSwapParams) validate() error {
	var errs []error
	for name, pk := range map[string]solana.PublicKey{
		"program id":  p.ProgramID,
		"state":       p.State,
		"owner":       p.Owner,
		"source":      p.Source,
		"mid":         p.Mid,
		"fee account": p.Fee,
	} {
		if pk.IsZero() {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	if p.Venue1 == nil {
		errs = append(errs, errors.New("first venue is required"))
	}
	if p.AmountIn == 0 {
		errs = append(errs, errors.New("amount in must be positive"))
	}
	return errors.Join(errs...)
}

// BuildRouteSwapInstruction builds the router RouteSwap instruction.
// Keys: state, owner (signer), source (w), mid (w), fee (w), token program,
// then the first venue's accounts.
func BuildRouteSwapInstruction(p RouteSwapParams) (solana.Instruction, error) {
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid route swap: %w", err)
	}

	venueAccounts, err := p.Venue1.ResolveAccounts(p.SourceMint, p.MidMint)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s accounts: %w", p.Venue1.Name(), err)
	}

	route2 := venue.Skip
	if p.Venue2 != nil {
		route2 = p.Venue2.Kind()
	}
	data, err := layout.Encode(layout.Record{
		"instruction": InstructionRouteSwap,
		"route1":      uint8(p.Venue1.Kind()),
		"route2":      uint8(route2),
		"amountIn":    p.AmountIn,
		"amountOut":   p.AmountOut,
	}, layout.RouteSwapSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode route swap: %w", err)
	}

	keys := make(solana.AccountMetaSlice, 0, RouteSwapHeaderLen+len(venueAccounts))
	keys = append(keys,
		solana.NewAccountMeta(p.State, false, false),
		solana.NewAccountMeta(p.Owner, false, true),
		solana.NewAccountMeta(p.Source, true, false),
		solana.NewAccountMeta(p.Mid, true, false),
		solana.NewAccountMeta(p.Fee, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	)
	keys = append(keys, venueAccounts...)

	return solana.NewInstruction(p.ProgramID, keys, data), nil
}

// SecondLegParams describes the mid → destination swap issued directly
// against the second venue's program.
type SecondLegParams struct {
	Venue    venue.Venue
	Owner    solana.PublicKey
	Mid      solana.PublicKey
	Dest     solana.PublicKey
	MidMint  solana.PublicKey
	DestMint solana.PublicKey

	MidAmount   uint64
	ExpectedOut uint64
	Slippage    types.SlippageConfig
}

// BuildSecondLeg builds the second venue's own swap with the minimum output
// taken from the slippage policy.
func BuildSecondLeg(p SecondLegParams) (solana.Instruction, error) {
	if p.Venue == nil {
		return nil, errors.New("second venue is required")
	}
	if err := p.Slippage.Validate(); err != nil {
		return nil, fmt.Errorf("invalid slippage: %w", err)
	}
	minOut, err := p.Slippage.MinAmountOut(p.ExpectedOut)
	if err != nil {
		return nil, err
	}
	ix, err := p.Venue.BuildSwap(venue.SwapParams{
		Owner:        p.Owner,
		Source:       p.Mid,
		Dest:         p.Dest,
		SourceMint:   p.MidMint,
		DestMint:     p.DestMint,
		AmountIn:     p.MidAmount,
		MinAmountOut: minOut,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build %s leg: %w", p.Venue.Name(), err)
	}
	return ix, nil
}

// UpdateStateParams sets the router owner and fee.
type UpdateStateParams struct {
	ProgramID      solana.PublicKey
	State          solana.PublicKey
	CurrentOwner   solana.PublicKey
	NewOwner       solana.PublicKey
	FeeOwner       solana.PublicKey
	FeeNumerator   uint64
	FeeDenominator uint64
}

// BuildUpdateGlobalStateInstruction builds UpdateState. The same instruction
// initializes the state account on first use.
func BuildUpdateGlobalStateInstruction(p UpdateStateParams) (solana.Instruction, error) {
	if p.ProgramID.IsZero() || p.State.IsZero() || p.CurrentOwner.IsZero() {
		return nil, errors.New("program id, state and current owner are required")
	}
	if p.NewOwner.IsZero() || p.FeeOwner.IsZero() {
		return nil, errors.New("new owner and fee owner are required")
	}
	if p.FeeDenominator == 0 || p.FeeNumerator > p.FeeDenominator {
		return nil, fmt.Errorf("fee %d/%d: %w", p.FeeNumerator, p.FeeDenominator, types.ErrRange)
	}

	data, err := layout.Encode(layout.Record{
		"instruction":    InstructionUpdateState,
		"feeNumerator":   p.FeeNumerator,
		"feeDenominator": p.FeeDenominator,
	}, layout.UpdateStateSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode update state: %w", err)
	}

	keys := solana.AccountMetaSlice{
		solana.NewAccountMeta(p.State, true, false),
		solana.NewAccountMeta(p.CurrentOwner, false, true),
		solana.NewAccountMeta(p.NewOwner, false, false),
		solana.NewAccountMeta(p.FeeOwner, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}
	return solana.NewInstruction(p.ProgramID, keys, data), nil
}
