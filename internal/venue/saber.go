// internal/venue/saber.go
package venue

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/swap-router/internal/types"
)

// SaberSwapOpcode is the stable-swap "swap" instruction.
const SaberSwapOpcode uint8 = 1

// SaberAccountCount is the length of the Saber slice of a route swap.
const SaberAccountCount = 7

// SaberPool is a two-token stable-swap pool.
type SaberPool struct {
	Label       string           `json:"name"`
	ProgramID   solana.PublicKey `json:"programId"`
	SwapAccount solana.PublicKey `json:"ammId"`
	Authority   solana.PublicKey `json:"ammAuthority"`
	MintA       solana.PublicKey `json:"tokenAMint"`
	MintB       solana.PublicKey `json:"tokenBMint"`
	ReserveA    solana.PublicKey `json:"tokenAReserve"`
	ReserveB    solana.PublicKey `json:"tokenBReserve"`
	AdminFeeA   solana.PublicKey `json:"tokenAFeeAccount"`
	AdminFeeB   solana.PublicKey `json:"tokenBFeeAccount"`
}

var _ Venue = (*SaberPool)(nil)

func (p *SaberPool) Kind() Kind { return Saber }

func (p *SaberPool) Name() string {
	if p.Label != "" {
		return p.Label
	}
	return p.SwapAccount.String()
}

func (p *SaberPool) Validate() error {
	return requireKeys("saber pool "+p.Name(), map[string]solana.PublicKey{
		"program id":   p.ProgramID,
		"swap account": p.SwapAccount,
		"authority":    p.Authority,
		"reserve A":    p.ReserveA,
		"reserve B":    p.ReserveB,
		"admin fee A":  p.AdminFeeA,
		"admin fee B":  p.AdminFeeB,
	})
}

// orient returns (source reserve, destination reserve, destination admin fee).
// Pools registered without mints trade A to B only.
func (p *SaberPool) orient(sourceMint solana.PublicKey) (solana.PublicKey, solana.PublicKey, solana.PublicKey, error) {
	switch {
	case p.MintA.IsZero() && p.MintB.IsZero():
		return p.ReserveA, p.ReserveB, p.AdminFeeB, nil
	case sourceMint.Equals(p.MintA):
		return p.ReserveA, p.ReserveB, p.AdminFeeB, nil
	case sourceMint.Equals(p.MintB):
		return p.ReserveB, p.ReserveA, p.AdminFeeA, nil
	}
	return solana.PublicKey{}, solana.PublicKey{}, solana.PublicKey{},
		fmt.Errorf("saber pool %s does not trade mint %s: %w", p.Name(), sourceMint, types.ErrUnsupported)
}

// ResolveAccounts: swap, authority, source reserve, destination reserve,
// destination admin fee, clock, program.
func (p *SaberPool) ResolveAccounts(sourceMint, _ solana.PublicKey) (solana.AccountMetaSlice, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	src, dst, fee, err := p.orient(sourceMint)
	if err != nil {
		return nil, err
	}
	return solana.AccountMetaSlice{
		writable(p.SwapAccount),
		readonly(p.Authority),
		writable(src),
		writable(dst),
		writable(fee),
		readonly(solana.SysVarClockPubkey),
		readonly(p.ProgramID),
	}, nil
}

func (p *SaberPool) BuildSwap(params SwapParams) (solana.Instruction, error) {
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("saber swap: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	src, dst, fee, err := p.orient(params.SourceMint)
	if err != nil {
		return nil, err
	}
	data, err := encodeSwapData(SaberSwapOpcode, params.AmountIn, params.MinAmountOut)
	if err != nil {
		return nil, fmt.Errorf("saber swap: %w", err)
	}

	accounts := solana.AccountMetaSlice{
		readonly(p.SwapAccount),
		readonly(p.Authority),
		signer(params.Owner),
		writable(params.Source),
		writable(src),
		writable(dst),
		writable(params.Dest),
		writable(fee),
		readonly(solana.TokenProgramID),
		readonly(solana.SysVarClockPubkey),
	}
	return solana.NewInstruction(p.ProgramID, accounts, data), nil
}

// Trades reports whether the pool swaps between a and b in either direction.
func (p *SaberPool) Trades(a, b solana.PublicKey) bool {
	return (p.MintA.Equals(a) && p.MintB.Equals(b)) ||
		(p.MintA.Equals(b) && p.MintB.Equals(a))
}
