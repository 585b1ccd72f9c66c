// internal/prepare/plan.go
package prepare

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/blockchain"
	"github.com/rovshanmuradov/swap-router/internal/derive"
	"github.com/rovshanmuradov/swap-router/internal/submit"
	"github.com/rovshanmuradov/swap-router/internal/types"
	"github.com/rovshanmuradov/swap-router/internal/wallet"
)

// TokenAccountSize is the SPL token account data length used for rent.
const TokenAccountSize = 165

// PlanRequest describes the accounts a route needs before it can run.
type PlanRequest struct {
	Wallet   submit.Wallet
	FromMint solana.PublicKey
	MidMint  solana.PublicKey
	ToMint   solana.PublicKey
	// FeeOwner owns the router fee account in FromMint. Zero skips it.
	FeeOwner    solana.PublicKey
	AmountInRaw uint64
	Created     *CreatedSet
}

// Plan is the ordered list of setup instructions and what they produce.
type Plan struct {
	Instructions []solana.Instruction
	// Creates lists the ATAs the plan creates, in order.
	Creates []solana.PublicKey
	// WrapLamports is the SOL moved into the WSOL account.
	WrapLamports uint64
	FeeAccount   solana.PublicKey
	Snapshot     *TokenAccountSnapshot
}

func (p *Plan) Empty() bool { return len(p.Instructions) == 0 }

// Planner computes preparation plans. It never submits.
type Planner struct {
	client     blockchain.Client
	deriver    *derive.Deriver
	idempotent bool
	logger     *zap.Logger
}

// NewPlanner: idempotent selects CreateIdempotent for ATA creation.
func NewPlanner(client blockchain.Client, deriver *derive.Deriver, idempotent bool, logger *zap.Logger) *Planner {
	if deriver == nil {
		deriver = derive.NewDeriver()
	}
	return &Planner{
		client:     client,
		deriver:    deriver,
		idempotent: idempotent,
		logger:     logger.Named("planner"),
	}
}

func isNative(mint solana.PublicKey) bool {
	return mint.Equals(solana.SolMint)
}

// Plan emits, in order: the SOL wrap, the fee account, the mid account and
// the destination account. Creations already present on chain or in
// req.Created are skipped, and no ATA is created twice.
func (p *Planner) Plan(ctx context.Context, req PlanRequest) (*Plan, error) {
	if req.Wallet == nil {
		return nil, errors.New("wallet is required")
	}
	owner := req.Wallet.PublicKey()

	snap, err := Snapshot(ctx, p.client, p.deriver, owner)
	if err != nil {
		return nil, err
	}
	plan := &Plan{Snapshot: snap}
	planned := make(map[solana.PublicKey]struct{})

	create := func(accountOwner, mint solana.PublicKey) (solana.PublicKey, error) {
		ata, err := p.deriver.ATA(accountOwner, mint)
		if err != nil {
			return solana.PublicKey{}, err
		}
		if _, dup := planned[ata]; dup || req.Created.Has(ata) {
			return ata, nil
		}
		ix, err := wallet.CreateATAInstruction(owner, accountOwner, mint, p.idempotent)
		if err != nil {
			return solana.PublicKey{}, err
		}
		planned[ata] = struct{}{}
		plan.Instructions = append(plan.Instructions, ix)
		plan.Creates = append(plan.Creates, ata)
		return ata, nil
	}

	// (a) wrap
	if isNative(req.FromMint) {
		if err := p.planWrap(ctx, req, snap, plan, create, planned); err != nil {
			return nil, err
		}
	}

	// (b) fee account
	if !req.FeeOwner.IsZero() {
		feeATA, err := p.deriver.ATA(req.FeeOwner, req.FromMint)
		if err != nil {
			return nil, err
		}
		plan.FeeAccount = feeATA
		exists := snap.Has(req.FromMint) && req.FeeOwner.Equals(owner)
		if !exists {
			exists, err = p.accountExists(ctx, feeATA)
			if err != nil {
				return nil, err
			}
		}
		if !exists {
			if _, err := create(req.FeeOwner, req.FromMint); err != nil {
				return nil, err
			}
		} else {
			planned[feeATA] = struct{}{}
		}
	}

	// (c) mid, (d) destination
	for _, mint := range []solana.PublicKey{req.MidMint, req.ToMint} {
		if mint.IsZero() || snap.Has(mint) {
			continue
		}
		if _, err := create(owner, mint); err != nil {
			return nil, err
		}
	}

	p.logger.Debug("Preparation planned",
		zap.String("owner", owner.String()),
		zap.Int("instructions", len(plan.Instructions)),
		zap.Int("creates", len(plan.Creates)),
		zap.Uint64("wrap_lamports", plan.WrapLamports))
	return plan, nil
}

// planWrap funds the WSOL account with the shortfall between the input
// amount and the current WSOL balance.
func (p *Planner) planWrap(
	ctx context.Context,
	req PlanRequest,
	snap *TokenAccountSnapshot,
	plan *Plan,
	create func(owner, mint solana.PublicKey) (solana.PublicKey, error),
	planned map[solana.PublicKey]struct{},
) error {
	owner := snap.Owner
	balance := snap.Balance(solana.SolMint)
	if req.AmountInRaw <= balance {
		return nil
	}
	shortfall := req.AmountInRaw - balance

	wsolATA, err := p.deriver.ATA(owner, solana.SolMint)
	if err != nil {
		return err
	}

	if snap.Has(solana.SolMint) || req.Created.Has(wsolATA) {
		plan.WrapLamports = shortfall
		plan.Instructions = append(plan.Instructions,
			system.NewTransferInstruction(shortfall, owner, wsolATA).Build(),
			token.NewSyncNativeInstruction(wsolATA).Build(),
		)
		planned[wsolATA] = struct{}{}
		return nil
	}

	rent, err := p.client.GetMinimumBalanceForRentExemption(ctx, TokenAccountSize)
	if err != nil {
		return fmt.Errorf("failed to get token account rent: %w", err)
	}
	plan.WrapLamports = shortfall + rent
	plan.Instructions = append(plan.Instructions,
		system.NewTransferInstruction(plan.WrapLamports, owner, wsolATA).Build())
	_, err = create(owner, solana.SolMint)
	return err
}

func (p *Planner) accountExists(ctx context.Context, address solana.PublicKey) (bool, error) {
	info, err := p.client.GetAccountInfo(ctx, address)
	if errors.Is(err, types.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check account %s: %w", address, err)
	}
	return info != nil && info.Value != nil, nil
}
