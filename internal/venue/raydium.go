// internal/venue/raydium.go
package venue

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// RaydiumSwapOpcode is swapBaseIn of the Raydium AMM v4 program.
const RaydiumSwapOpcode uint8 = 9

// RaydiumAccountCount is the length of the Raydium slice of a route swap.
const RaydiumAccountCount = 15

// RaydiumPool описывает AMM-пул Raydium вместе с его Serum-маркетом.
type RaydiumPool struct {
	Label string `json:"name"`

	AmmProgramID solana.PublicKey `json:"programId"`
	ID           solana.PublicKey `json:"ammId"`
	Authority    solana.PublicKey `json:"ammAuthority"`
	OpenOrders   solana.PublicKey `json:"ammOpenOrders"`
	TargetOrders solana.PublicKey `json:"ammTargetOrders"`
	BaseVault    solana.PublicKey `json:"poolCoinTokenAccount"`
	QuoteVault   solana.PublicKey `json:"poolPcTokenAccount"`
	BaseMint     solana.PublicKey `json:"coinMint"`
	QuoteMint    solana.PublicKey `json:"pcMint"`

	// Serum market
	MarketProgramID  solana.PublicKey `json:"serumProgramId"`
	MarketID         solana.PublicKey `json:"serumMarket"`
	MarketBids       solana.PublicKey `json:"serumBids"`
	MarketAsks       solana.PublicKey `json:"serumAsks"`
	MarketEventQueue solana.PublicKey `json:"serumEventQueue"`
	MarketBaseVault  solana.PublicKey `json:"serumCoinVaultAccount"`
	MarketQuoteVault solana.PublicKey `json:"serumPcVaultAccount"`
	MarketAuthority  solana.PublicKey `json:"serumVaultSigner"`
}

var _ Venue = (*RaydiumPool)(nil)

func (p *RaydiumPool) Kind() Kind { return Raydium }

func (p *RaydiumPool) Name() string {
	if p.Label != "" {
		return p.Label
	}
	return p.ID.String()
}

// Validate проверяет, что все адреса пула заданы.
func (p *RaydiumPool) Validate() error {
	return requireKeys("raydium pool "+p.Name(), map[string]solana.PublicKey{
		"program id":         p.AmmProgramID,
		"amm id":             p.ID,
		"amm authority":      p.Authority,
		"open orders":        p.OpenOrders,
		"target orders":      p.TargetOrders,
		"coin vault":         p.BaseVault,
		"pc vault":           p.QuoteVault,
		"serum program":      p.MarketProgramID,
		"serum market":       p.MarketID,
		"serum bids":         p.MarketBids,
		"serum asks":         p.MarketAsks,
		"serum event queue":  p.MarketEventQueue,
		"serum coin vault":   p.MarketBaseVault,
		"serum pc vault":     p.MarketQuoteVault,
		"serum vault signer": p.MarketAuthority,
	})
}

// ResolveAccounts returns the 15 pool accounts in the order the router
// program forwards them to the AMM. Direction is implied by the user's
// source account, so mints are not consulted. The AMM id, market, bids,
// asks and event queue are marked writable since the AMM and the order book
// program write to them during a swap.
func (p *RaydiumPool) ResolveAccounts(_, _ solana.PublicKey) (solana.AccountMetaSlice, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return solana.AccountMetaSlice{
		writable(p.ID),
		readonly(p.Authority),
		writable(p.OpenOrders),
		writable(p.TargetOrders),
		writable(p.BaseVault),
		writable(p.QuoteVault),
		// serum
		readonly(p.MarketProgramID),
		writable(p.MarketID),
		writable(p.MarketBids),
		writable(p.MarketAsks),
		writable(p.MarketEventQueue),
		writable(p.MarketBaseVault),
		writable(p.MarketQuoteVault),
		readonly(p.MarketAuthority),

		readonly(p.AmmProgramID),
	}, nil
}

// BuildSwap builds swapBaseIn against the AMM program directly.
func (p *RaydiumPool) BuildSwap(params SwapParams) (solana.Instruction, error) {
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("raydium swap: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	data, err := encodeSwapData(RaydiumSwapOpcode, params.AmountIn, params.MinAmountOut)
	if err != nil {
		return nil, fmt.Errorf("raydium swap: %w", err)
	}

	accounts := solana.AccountMetaSlice{
		readonly(solana.TokenProgramID),
		// amm
		writable(p.ID),
		readonly(p.Authority),
		writable(p.OpenOrders),
		writable(p.TargetOrders),
		writable(p.BaseVault),
		writable(p.QuoteVault),
		// serum
		readonly(p.MarketProgramID),
		writable(p.MarketID),
		writable(p.MarketBids),
		writable(p.MarketAsks),
		writable(p.MarketEventQueue),
		writable(p.MarketBaseVault),
		writable(p.MarketQuoteVault),
		readonly(p.MarketAuthority),
		// user
		writable(params.Source),
		writable(params.Dest),
		signer(params.Owner),
	}
	return solana.NewInstruction(p.AmmProgramID, accounts, data), nil
}

// Trades reports whether the pool swaps between a and b in either direction.
func (p *RaydiumPool) Trades(a, b solana.PublicKey) bool {
	return (p.BaseMint.Equals(a) && p.QuoteMint.Equals(b)) ||
		(p.BaseMint.Equals(b) && p.QuoteMint.Equals(a))
}
