// internal/bridge/adapter.go
package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/blockchain"
	"github.com/rovshanmuradov/swap-router/internal/submit"
	"github.com/rovshanmuradov/swap-router/internal/types"
)

// Redeemer completes a transfer on the destination chain.
type Redeemer interface {
	Redeem(ctx context.Context, vaa []byte) error
}

// TransferRequest is an outbound transfer of the wallet's tokens.
type TransferRequest struct {
	// From is the wallet's token account holding Mint.
	From          solana.PublicKey
	Mint          solana.PublicKey
	Amount        uint64
	RelayerFee    uint64
	Nonce         uint32
	TargetChain   ChainID
	TargetAddress Address32
	OriginChain   ChainID
	OriginAddress Address32
}

// Attestation is the delivered proof of an outbound transfer.
type Attestation struct {
	Signature   solana.Signature
	Sequence    uint64
	Emitter     string
	TargetChain ChainID
	VAA         []byte
}

var errLogsPending = errors.New("transaction logs not available yet")

// Adapter runs outbound transfers end to end and dispatches redemption.
type Adapter struct {
	bridge    *TokenBridge
	client    blockchain.Client
	sender    submit.Sender
	attest    AttestationService
	redeemers map[ChainID]Redeemer
	logs      types.RetryPolicy
	observer  types.Observer
	logger    *zap.Logger
}

func NewAdapter(
	bridge *TokenBridge,
	client blockchain.Client,
	sender submit.Sender,
	attest AttestationService,
	redeemers map[ChainID]Redeemer,
	observer types.Observer,
	logger *zap.Logger,
) *Adapter {
	copied := make(map[ChainID]Redeemer, len(redeemers))
	for chain, r := range redeemers {
		copied[chain] = r
	}
	return &Adapter{
		bridge:    bridge,
		client:    client,
		sender:    sender,
		attest:    attest,
		redeemers: copied,
		logs: types.RetryPolicy{
			Interval:    500 * time.Millisecond,
			MaxInterval: 2 * time.Second,
			MaxElapsed:  30 * time.Second,
			Exponential: true,
		},
		observer: types.OrNop(observer),
		logger:   logger.Named("bridge"),
	}
}

// Transfer submits the transfer, reads the message sequence from the
// confirmed transaction and waits for the guardians' signed message.
func (a *Adapter) Transfer(ctx context.Context, w submit.Wallet, req TransferRequest) (att *Attestation, err error) {
	ctx, span := a.observer.Start(ctx, "bridge.transfer")
	defer func() { span.End(err) }()

	fee, err := a.bridge.MessageFee(ctx, a.client)
	if err != nil {
		return nil, err
	}
	ixs, message, err := a.bridge.TransferOut(TransferParams{
		Payer:         w.PublicKey(),
		From:          req.From,
		Mint:          req.Mint,
		Amount:        req.Amount,
		RelayerFee:    req.RelayerFee,
		Nonce:         req.Nonce,
		TargetChain:   req.TargetChain,
		TargetAddress: req.TargetAddress,
		OriginChain:   req.OriginChain,
		OriginAddress: req.OriginAddress,
		MessageFee:    fee,
	})
	if err != nil {
		return nil, err
	}

	sig, err := a.sender.Send(ctx, w, ixs, []solana.PrivateKey{message})
	if err != nil {
		return nil, fmt.Errorf("failed to send bridge transfer: %w", err)
	}
	a.logger.Info("Bridge transfer confirmed",
		zap.String("signature", sig.String()),
		zap.String("target_chain", req.TargetChain.String()),
		zap.Uint64("amount", req.Amount))

	seq, err := types.Retry(ctx, "bridge sequence", a.logs, func(ctx context.Context) (uint64, error) {
		logs, err := a.client.GetTransactionLogs(ctx, sig)
		if errors.Is(err, types.ErrNotFound) {
			return 0, errLogsPending
		}
		if err != nil {
			return 0, err
		}
		return ParseSequence(logs)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read bridge sequence: %w", err)
	}

	emitter, err := EmitterAddress(a.bridge.Programs().TokenBridge)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Waiting for guardian signatures",
		zap.Uint64("sequence", seq),
		zap.String("emitter", emitter))

	vaa, err := a.attest.SignedVAA(ctx, ChainSolana, emitter, seq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch signed message: %w", err)
	}
	return &Attestation{
		Signature:   sig,
		Sequence:    seq,
		Emitter:     emitter,
		TargetChain: req.TargetChain,
		VAA:         vaa,
	}, nil
}

// Redeem hands the signed message to the destination chain's redeemer.
func (a *Adapter) Redeem(ctx context.Context, att *Attestation) (err error) {
	ctx, span := a.observer.Start(ctx, "bridge.redeem")
	defer func() { span.End(err) }()

	r, ok := a.redeemers[att.TargetChain]
	if !ok {
		return fmt.Errorf("redeem on %s: %w", att.TargetChain, types.ErrUnsupported)
	}
	if err := r.Redeem(ctx, att.VAA); err != nil {
		return fmt.Errorf("failed to redeem on %s: %w", att.TargetChain, err)
	}
	return nil
}
