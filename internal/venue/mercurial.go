// internal/venue/mercurial.go
package venue

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// MercurialExchangeOpcode is the multi-token pool "exchange" instruction.
const MercurialExchangeOpcode uint8 = 4

// MercurialPool is an N-token stable pool.
type MercurialPool struct {
	Label       string             `json:"name"`
	ProgramID   solana.PublicKey   `json:"programId"`
	SwapAccount solana.PublicKey   `json:"ammId"`
	Authority   solana.PublicKey   `json:"ammAuthority"`
	Reserves    []solana.PublicKey `json:"accounts"`
}

var _ Venue = (*MercurialPool)(nil)

func (p *MercurialPool) Kind() Kind { return Mercurial }

func (p *MercurialPool) Name() string {
	if p.Label != "" {
		return p.Label
	}
	return p.SwapAccount.String()
}

func (p *MercurialPool) Validate() error {
	if err := requireKeys("mercurial pool "+p.Name(), map[string]solana.PublicKey{
		"program id":   p.ProgramID,
		"swap account": p.SwapAccount,
		"authority":    p.Authority,
	}); err != nil {
		return err
	}
	if len(p.Reserves) == 0 {
		return fmt.Errorf("mercurial pool %s: no reserve accounts", p.Name())
	}
	for i, r := range p.Reserves {
		if r.IsZero() {
			return fmt.Errorf("mercurial pool %s: reserve %d is zero", p.Name(), i)
		}
	}
	return nil
}

// ResolveAccounts: swap, authority, every reserve (writable), program.
// Length is 2 + len(Reserves) + 1.
func (p *MercurialPool) ResolveAccounts(_, _ solana.PublicKey) (solana.AccountMetaSlice, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	metas := make(solana.AccountMetaSlice, 0, len(p.Reserves)+3)
	metas = append(metas, writable(p.SwapAccount), readonly(p.Authority))
	for _, r := range p.Reserves {
		metas = append(metas, writable(r))
	}
	return append(metas, readonly(p.ProgramID)), nil
}

func (p *MercurialPool) BuildSwap(params SwapParams) (solana.Instruction, error) {
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("mercurial exchange: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	data, err := encodeSwapData(MercurialExchangeOpcode, params.AmountIn, params.MinAmountOut)
	if err != nil {
		return nil, fmt.Errorf("mercurial exchange: %w", err)
	}

	metas := make(solana.AccountMetaSlice, 0, len(p.Reserves)+6)
	metas = append(metas,
		readonly(p.SwapAccount),
		readonly(solana.TokenProgramID),
		readonly(p.Authority),
		signer(params.Owner),
	)
	for _, r := range p.Reserves {
		metas = append(metas, writable(r))
	}
	metas = append(metas, writable(params.Source), writable(params.Dest))
	return solana.NewInstruction(p.ProgramID, metas, data), nil
}
