// internal/venue/unsupported.go
package venue

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/swap-router/internal/types"
)

// Unsupported stands in for selectors the router knows but this client
// cannot address yet (Serum, Orca).
type Unsupported struct {
	Selector Kind
	Label    string
}

var _ Venue = Unsupported{}

func (u Unsupported) Kind() Kind { return u.Selector }

func (u Unsupported) Name() string {
	if u.Label != "" {
		return u.Label
	}
	return u.Selector.String()
}

func (u Unsupported) ResolveAccounts(_, _ solana.PublicKey) (solana.AccountMetaSlice, error) {
	return nil, fmt.Errorf("resolve accounts for %s: %w", u.Name(), types.ErrUnsupported)
}

func (u Unsupported) BuildSwap(SwapParams) (solana.Instruction, error) {
	return nil, fmt.Errorf("build swap for %s: %w", u.Name(), types.ErrUnsupported)
}
