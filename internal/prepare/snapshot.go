// internal/prepare/snapshot.go
package prepare

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rovshanmuradov/swap-router/internal/blockchain"
	"github.com/rovshanmuradov/swap-router/internal/derive"
	"github.com/rovshanmuradov/swap-router/internal/layout"
)

// TokenAccountSnapshot is a point-in-time view of a wallet's associated
// token accounts and SOL balance.
type TokenAccountSnapshot struct {
	Owner    solana.PublicKey
	Lamports uint64
	ByMint   map[solana.PublicKey]blockchain.TokenAccount
}

// Has reports whether the owner's ATA for mint exists.
func (s *TokenAccountSnapshot) Has(mint solana.PublicKey) bool {
	_, ok := s.ByMint[mint]
	return ok
}

// Balance returns the raw token amount held in the ATA for mint.
func (s *TokenAccountSnapshot) Balance(mint solana.PublicKey) uint64 {
	return s.ByMint[mint].Amount
}

// Snapshot lists owner's token accounts and keeps only those that are the
// derived ATA of their mint; other accounts of the same mint are ignored.
func Snapshot(ctx context.Context, client blockchain.Client, deriver *derive.Deriver, owner solana.PublicKey) (*TokenAccountSnapshot, error) {
	accounts, err := client.GetTokenAccountsByOwner(ctx, owner, solana.PublicKey{})
	if err != nil {
		return nil, fmt.Errorf("failed to list token accounts: %w", err)
	}
	lamports, err := client.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to get SOL balance: %w", err)
	}

	snap := &TokenAccountSnapshot{
		Owner:    owner,
		Lamports: lamports,
		ByMint:   make(map[solana.PublicKey]blockchain.TokenAccount, len(accounts)),
	}
	for _, acc := range accounts {
		ata, err := deriver.ATA(owner, acc.Mint)
		if err != nil {
			return nil, err
		}
		if acc.Address.Equals(ata) {
			snap.ByMint[acc.Mint] = acc
		}
	}
	return snap, nil
}

// TokenBalances reads token accounts in one batched request and returns
// their raw amounts. Accounts that do not exist are left out.
func TokenBalances(ctx context.Context, client blockchain.Client, accounts ...solana.PublicKey) (map[solana.PublicKey]uint64, error) {
	infos, err := client.GetMultipleAccounts(ctx, accounts)
	if err != nil {
		return nil, fmt.Errorf("failed to read token accounts: %w", err)
	}
	out := make(map[solana.PublicKey]uint64, len(accounts))
	for i, info := range infos {
		if info == nil || info.Data == nil {
			continue
		}
		rec, err := layout.Decode(info.Data.GetBinary(), layout.TokenAccountSchema)
		if err != nil {
			return nil, fmt.Errorf("token account %s: %w", accounts[i], err)
		}
		if out[accounts[i]], err = rec.Uint("amount"); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CreatedSet remembers associated token accounts created during this
// session so a later plan does not create them twice before the node
// reflects them. Safe for concurrent use.
type CreatedSet struct {
	mu  sync.RWMutex
	set map[solana.PublicKey]struct{}
}

func NewCreatedSet() *CreatedSet {
	return &CreatedSet{set: make(map[solana.PublicKey]struct{})}
}

func (c *CreatedSet) Has(ata solana.PublicKey) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.set[ata]
	return ok
}

func (c *CreatedSet) Add(atas ...solana.PublicKey) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range atas {
		c.set[a] = struct{}{}
	}
}
