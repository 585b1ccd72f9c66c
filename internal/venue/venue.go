// internal/venue/venue.go
package venue

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/swap-router/internal/layout"
	"github.com/rovshanmuradov/swap-router/internal/types"
)

// Kind is the route selector byte understood by the router program.
type Kind uint8

const (
	Skip Kind = iota
	Raydium
	Serum
	Saber
	Mercurial
	Orca
)

var kindNames = map[Kind]string{
	Skip:      "skip",
	Raydium:   "raydium",
	Serum:     "serum",
	Saber:     "saber",
	Mercurial: "mercurial",
	Orca:      "orca",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind accepts the lowercase venue name.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return Skip, fmt.Errorf("unknown venue %q: %w", s, types.ErrUnsupported)
}

// SwapParams describes one standalone swap leg.
type SwapParams struct {
	Owner        solana.PublicKey // user transfer authority, signs
	Source       solana.PublicKey // user source token account
	Dest         solana.PublicKey // user destination token account
	SourceMint   solana.PublicKey
	DestMint     solana.PublicKey
	AmountIn     uint64
	MinAmountOut uint64
}

func (p SwapParams) validate() error {
	if p.Owner.IsZero() {
		return fmt.Errorf("owner is required")
	}
	if p.Source.IsZero() || p.Dest.IsZero() {
		return fmt.Errorf("user token accounts are required")
	}
	return nil
}

// Venue is one pool on one AMM. ResolveAccounts yields the venue's slice of
// the router instruction; BuildSwap yields a standalone swap instruction
// against the venue's own program.
type Venue interface {
	Kind() Kind
	Name() string
	ResolveAccounts(sourceMint, destMint solana.PublicKey) (solana.AccountMetaSlice, error)
	BuildSwap(p SwapParams) (solana.Instruction, error)
}

func readonly(pk solana.PublicKey) *solana.AccountMeta {
	return solana.NewAccountMeta(pk, false, false)
}

func writable(pk solana.PublicKey) *solana.AccountMeta {
	return solana.NewAccountMeta(pk, true, false)
}

func signer(pk solana.PublicKey) *solana.AccountMeta {
	return solana.NewAccountMeta(pk, false, true)
}

func encodeSwapData(opcode uint8, amountIn, minOut uint64) ([]byte, error) {
	return layout.Encode(layout.Record{
		"instruction":      opcode,
		"amountIn":         amountIn,
		"minimumAmountOut": minOut,
	}, layout.TokenSwapSchema)
}

func requireKeys(venue string, keys map[string]solana.PublicKey) error {
	for name, pk := range keys {
		if pk.IsZero() {
			return fmt.Errorf("%s: %s is required", venue, name)
		}
	}
	return nil
}
