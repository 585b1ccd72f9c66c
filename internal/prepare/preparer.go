// internal/prepare/preparer.go
package prepare

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/submit"
	"github.com/rovshanmuradov/swap-router/internal/types"
)

// errNotReady keeps the poll loop going; it must not be a permanent category.
var errNotReady = errors.New("prepared accounts not visible yet")

// Preparer submits a plan and waits until the node shows its effects.
type Preparer struct {
	planner  *Planner
	sender   submit.Sender
	poll     types.RetryPolicy
	observer types.Observer
	logger   *zap.Logger
}

func NewPreparer(planner *Planner, sender submit.Sender, poll types.RetryPolicy, observer types.Observer, logger *zap.Logger) *Preparer {
	if poll == (types.RetryPolicy{}) {
		poll = types.DefaultPollPolicy()
	}
	return &Preparer{
		planner:  planner,
		sender:   sender,
		poll:     poll,
		observer: types.OrNop(observer),
		logger:   logger.Named("preparer"),
	}
}

// Result is what Prepare leaves behind.
type Result struct {
	Plan      *Plan
	Signature solana.Signature // zero when nothing was submitted
	Snapshot  *TokenAccountSnapshot
}

// Prepare plans, submits a non-empty plan, then polls until every required
// ATA is visible, the fee account exists and the WSOL balance covers the
// input. Exhausting the poll policy yields *types.TimeoutError.
func (p *Preparer) Prepare(ctx context.Context, req PlanRequest) (res *Result, err error) {
	ctx, span := p.observer.Start(ctx, "prepare")
	defer func() { span.End(err) }()

	plan, err := p.planner.Plan(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to plan preparation: %w", err)
	}
	res = &Result{Plan: plan, Snapshot: plan.Snapshot}
	if plan.Empty() {
		p.logger.Debug("Nothing to prepare")
		return res, nil
	}

	sig, err := p.sender.Send(ctx, req.Wallet, plan.Instructions, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to submit preparation: %w", err)
	}
	res.Signature = sig
	req.Created.Add(plan.Creates...)
	p.logger.Info("Preparation submitted",
		zap.String("signature", sig.String()),
		zap.Int("created", len(plan.Creates)))

	snap, err := types.Retry(ctx, "prepare accounts", p.poll, func(ctx context.Context) (*TokenAccountSnapshot, error) {
		return p.check(ctx, req, plan)
	})
	if err != nil {
		return nil, err
	}
	res.Snapshot = snap
	return res, nil
}

func (p *Preparer) check(ctx context.Context, req PlanRequest, plan *Plan) (*TokenAccountSnapshot, error) {
	owner := req.Wallet.PublicKey()
	snap, err := Snapshot(ctx, p.planner.client, p.planner.deriver, owner)
	if err != nil {
		return nil, err
	}

	for _, mint := range []solana.PublicKey{req.MidMint, req.ToMint} {
		if !mint.IsZero() && !snap.Has(mint) {
			return nil, fmt.Errorf("%w: ata for mint %s", errNotReady, mint)
		}
	}
	if isNative(req.FromMint) && snap.Balance(solana.SolMint) < req.AmountInRaw {
		return nil, fmt.Errorf("%w: wsol balance %d < %d", errNotReady, snap.Balance(solana.SolMint), req.AmountInRaw)
	}
	if !plan.FeeAccount.IsZero() {
		ok, err := p.planner.accountExists(ctx, plan.FeeAccount)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: fee account %s", errNotReady, plan.FeeAccount)
		}
	}
	return snap, nil
}
