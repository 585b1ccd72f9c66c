// internal/poolfeed/raydium.go
package poolfeed

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/venue"
)

// raydiumList is the SDK liquidity list. Only official pools are used.
type raydiumList struct {
	Official []raydiumEntry `json:"official"`
}

type raydiumEntry struct {
	ID               string `json:"id"`
	BaseMint         string `json:"baseMint"`
	QuoteMint        string `json:"quoteMint"`
	Authority        string `json:"authority"`
	OpenOrders       string `json:"openOrders"`
	TargetOrders     string `json:"targetOrders"`
	BaseVault        string `json:"baseVault"`
	QuoteVault       string `json:"quoteVault"`
	ProgramID        string `json:"programId"`
	MarketProgramID  string `json:"marketProgramId"`
	MarketID         string `json:"marketId"`
	MarketBids       string `json:"marketBids"`
	MarketAsks       string `json:"marketAsks"`
	MarketEventQueue string `json:"marketEventQueue"`
	MarketBaseVault  string `json:"marketBaseVault"`
	MarketQuoteVault string `json:"marketQuoteVault"`
	MarketAuthority  string `json:"marketAuthority"`
}

// Raydium returns the official AMM v4 pools. Entries with malformed
// addresses are skipped.
func (f *Feed) Raydium(ctx context.Context) ([]*venue.RaydiumPool, error) {
	var list raydiumList
	if err := f.get(ctx, f.opts.RaydiumURL, &list); err != nil {
		return nil, fmt.Errorf("failed to fetch raydium pools: %w", err)
	}

	pools := make([]*venue.RaydiumPool, 0, len(list.Official))
	for _, e := range list.Official {
		p, err := e.toPool()
		if err != nil {
			f.logger.Debug("skipping raydium pool", zap.String("id", e.ID), zap.Error(err))
			continue
		}
		pools = append(pools, p)
	}
	f.logger.Info("Raydium pools loaded",
		zap.Int("listed", len(list.Official)),
		zap.Int("usable", len(pools)))
	return pools, nil
}

func (e raydiumEntry) toPool() (*venue.RaydiumPool, error) {
	var d keyDecoder
	p := &venue.RaydiumPool{
		Label:            "raydium:" + e.ID,
		AmmProgramID:     d.key("programId", e.ProgramID),
		ID:               d.key("id", e.ID),
		Authority:        d.key("authority", e.Authority),
		OpenOrders:       d.key("openOrders", e.OpenOrders),
		TargetOrders:     d.key("targetOrders", e.TargetOrders),
		BaseVault:        d.key("baseVault", e.BaseVault),
		QuoteVault:       d.key("quoteVault", e.QuoteVault),
		BaseMint:         d.key("baseMint", e.BaseMint),
		QuoteMint:        d.key("quoteMint", e.QuoteMint),
		MarketProgramID:  d.key("marketProgramId", e.MarketProgramID),
		MarketID:         d.key("marketId", e.MarketID),
		MarketBids:       d.key("marketBids", e.MarketBids),
		MarketAsks:       d.key("marketAsks", e.MarketAsks),
		MarketEventQueue: d.key("marketEventQueue", e.MarketEventQueue),
		MarketBaseVault:  d.key("marketBaseVault", e.MarketBaseVault),
		MarketQuoteVault: d.key("marketQuoteVault", e.MarketQuoteVault),
		MarketAuthority:  d.key("marketAuthority", e.MarketAuthority),
	}
	if d.err != nil {
		return nil, d.err
	}
	return p, p.Validate()
}

// keyDecoder parses base58 keys, remembering the first failure.
type keyDecoder struct {
	err error
}

func (d *keyDecoder) key(field, s string) solana.PublicKey {
	if d.err != nil {
		return solana.PublicKey{}
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		d.err = fmt.Errorf("field %s: %w", field, err)
	}
	return pk
}
