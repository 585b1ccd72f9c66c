// internal/swap/state.go
package swap

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/router"
	"github.com/rovshanmuradov/swap-router/internal/submit"
	"github.com/rovshanmuradov/swap-router/internal/types"
)

// StateUpdate sets the router owner and fee. Zero owners keep the current
// values; an uninitialized state takes the signing wallet.
type StateUpdate struct {
	NewOwner       solana.PublicKey
	FeeOwner       solana.PublicKey
	FeeNumerator   uint64
	FeeDenominator uint64
}

// UpdateState initializes the global state or changes it. Only the current
// state owner can change an initialized state.
func (s *Service) UpdateState(ctx context.Context, w submit.Wallet, u StateUpdate) (sig solana.Signature, err error) {
	ctx, span := s.observer.Start(ctx, "update_state")
	defer func() { span.End(err) }()

	signer := w.PublicKey()
	current, addr, err := s.State(ctx)
	switch {
	case errors.Is(err, types.ErrNotFound):
		current = &router.GlobalState{StateOwner: signer, FeeOwner: signer}
	case err != nil:
		return solana.Signature{}, err
	case !current.StateOwner.Equals(signer):
		return solana.Signature{}, &types.VerificationError{
			What:     "state owner",
			Expected: current.StateOwner,
			Got:      signer,
		}
	}

	if u.NewOwner.IsZero() {
		u.NewOwner = current.StateOwner
	}
	if u.FeeOwner.IsZero() {
		u.FeeOwner = current.FeeOwner
	}

	ix, err := router.BuildUpdateGlobalStateInstruction(router.UpdateStateParams{
		ProgramID:      s.cfg.ProgramID,
		State:          addr,
		CurrentOwner:   signer,
		NewOwner:       u.NewOwner,
		FeeOwner:       u.FeeOwner,
		FeeNumerator:   u.FeeNumerator,
		FeeDenominator: u.FeeDenominator,
	})
	if err != nil {
		return solana.Signature{}, err
	}

	sig, err = s.sender.Send(ctx, w, []solana.Instruction{ix}, nil)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to submit state update: %w", err)
	}
	s.logger.Info("Global state updated",
		zap.String("signature", sig.String()),
		zap.String("state", addr.String()),
		zap.String("owner", u.NewOwner.String()),
		zap.String("fee_owner", u.FeeOwner.String()),
		zap.Uint64("fee_numerator", u.FeeNumerator),
		zap.Uint64("fee_denominator", u.FeeDenominator))
	return sig, nil
}
