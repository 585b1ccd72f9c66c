// internal/swap/fee.go
package swap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/swap-router/internal/blockchain"
	"github.com/rovshanmuradov/swap-router/internal/derive"
	"github.com/rovshanmuradov/swap-router/internal/types"
)

var errFeeAccountPending = errors.New("fee account not listed yet")

// DefaultFeePollPolicy re-checks the fee owner's listing every 500ms for up to 30s.
func DefaultFeePollPolicy() types.RetryPolicy {
	return types.RetryPolicy{
		Interval:    500 * time.Millisecond,
		MaxInterval: 500 * time.Millisecond,
		MaxElapsed:  30 * time.Second,
	}
}

// LocateFeeAccount lists feeOwner's token accounts in mint until one shows up
// and returns it only if it is the independently derived ATA. A listing that
// holds other accounts but not the ATA aborts with *types.VerificationError.
func LocateFeeAccount(
	ctx context.Context,
	client blockchain.Client,
	deriver *derive.Deriver,
	feeOwner, mint solana.PublicKey,
	policy types.RetryPolicy,
) (solana.PublicKey, error) {
	expected, err := deriver.ATA(feeOwner, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if policy == (types.RetryPolicy{}) {
		policy = DefaultFeePollPolicy()
	}

	return types.Retry(ctx, "fee account lookup", policy, func(ctx context.Context) (solana.PublicKey, error) {
		accounts, err := client.GetTokenAccountsByOwner(ctx, feeOwner, mint)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("failed to list fee owner accounts: %w", err)
		}
		if len(accounts) == 0 {
			return solana.PublicKey{}, errFeeAccountPending
		}
		for _, acc := range accounts {
			if acc.Address.Equals(expected) {
				return acc.Address, nil
			}
		}
		return solana.PublicKey{}, &types.VerificationError{
			What:     "fee account",
			Expected: expected,
			Got:      accounts[0].Address,
		}
	})
}
