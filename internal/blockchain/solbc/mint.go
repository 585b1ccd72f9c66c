// internal/blockchain/solbc/mint.go
package solbc

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/blockchain"
	"github.com/rovshanmuradov/swap-router/internal/layout"
)

// MintInfo хранит данные mint-аккаунта, нужные для пересчёта сумм.
type MintInfo struct {
	Mint     solana.PublicKey
	Decimals uint8
	Supply   uint64
}

// MintCache кэширует mint-аккаунты, прочитанные с цепи.
type MintCache struct {
	cache  sync.Map
	client blockchain.Client
	logger *zap.Logger
}

func NewMintCache(client blockchain.Client, logger *zap.Logger) *MintCache {
	return &MintCache{
		client: client,
		logger: logger.Named("mint-cache"),
	}
}

// Get returns the mint info, reading the account once.
func (c *MintCache) Get(ctx context.Context, mint solana.PublicKey) (MintInfo, error) {
	if v, ok := c.cache.Load(mint); ok {
		return v.(MintInfo), nil
	}

	acc, err := c.client.GetAccountInfo(ctx, mint)
	if err != nil {
		return MintInfo{}, fmt.Errorf("failed to get mint %s: %w", mint, err)
	}
	info, err := DecodeMint(mint, acc.GetBinary())
	if err != nil {
		return MintInfo{}, err
	}
	c.cache.Store(mint, info)
	c.logger.Debug("Mint cached", zap.String("mint", mint.String()), zap.Uint8("decimals", info.Decimals))
	return info, nil
}

// DecodeMint parses SPL mint account data.
func DecodeMint(mint solana.PublicKey, data []byte) (MintInfo, error) {
	rec, err := layout.Decode(data, layout.MintSchema)
	if err != nil {
		return MintInfo{}, fmt.Errorf("mint %s: %w", mint, err)
	}
	decimals, err := rec.Uint("decimals")
	if err != nil {
		return MintInfo{}, err
	}
	supply, err := rec.Uint("supply")
	if err != nil {
		return MintInfo{}, err
	}
	return MintInfo{Mint: mint, Decimals: uint8(decimals), Supply: supply}, nil
}
