// internal/submit/submitter.go
package submit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/blockchain"
	"github.com/rovshanmuradov/swap-router/internal/blockchain/solbc"
	"github.com/rovshanmuradov/swap-router/internal/types"
)

// ErrSimulationFailed is returned when preflight simulation reports an error.
var ErrSimulationFailed = errors.New("transaction simulation failed")

// Options настраивают отправку транзакций.
type Options struct {
	Priority types.PriorityProfile
	// Commitment awaited after broadcast; empty means confirmed.
	Commitment rpc.CommitmentType
	// Simulate runs simulateTransaction before broadcasting signed transactions.
	Simulate bool
	// Broadcast bounds re-sends after a blockhash-not-found rejection.
	Broadcast types.RetryPolicy
}

func DefaultOptions() Options {
	return Options{
		Commitment: rpc.CommitmentConfirmed,
		Broadcast: types.RetryPolicy{
			Interval:    500 * time.Millisecond,
			MaxInterval: 2 * time.Second,
			MaxAttempts: 3,
			Exponential: true,
		},
	}
}

// Submitter delivers instructions either through the wallet itself or by
// signing and broadcasting through the node.
type Submitter struct {
	client   blockchain.Client
	opts     Options
	analyzer *solbc.ErrorAnalyzer
	observer types.Observer
	logger   *zap.Logger
}

var _ Sender = (*Submitter)(nil)

func NewSubmitter(client blockchain.Client, opts Options, observer types.Observer, logger *zap.Logger) *Submitter {
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	if opts.Broadcast == (types.RetryPolicy{}) {
		opts.Broadcast = DefaultOptions().Broadcast
	}
	return &Submitter{
		client:   client,
		opts:     opts,
		analyzer: solbc.NewErrorAnalyzer(logger),
		observer: types.OrNop(observer),
		logger:   logger.Named("submitter"),
	}
}

// Send builds a transaction from ixs paid by w, collects signatures from
// localSigners and w, delivers it and waits for confirmation.
func (s *Submitter) Send(ctx context.Context, w Wallet, ixs []solana.Instruction, localSigners []solana.PrivateKey) (sig solana.Signature, err error) {
	ctx, span := s.observer.Start(ctx, "submit")
	defer func() { span.End(err) }()

	if len(ixs) == 0 {
		return solana.Signature{}, ErrInvalidInstruction
	}

	var deliver func(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	switch wallet := w.(type) {
	case TransactionSender:
		deliver = func(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
			return wallet.SendTransaction(ctx, tx, blockchain.TransactionOptions{SkipPreflight: true})
		}
	case TransactionSigner:
		deliver = func(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
			return s.signAndBroadcast(ctx, wallet, tx)
		}
	default:
		return solana.Signature{}, fmt.Errorf("wallet %s: %w", w.PublicKey(), types.ErrSigningUnavailable)
	}

	all := append(s.opts.Priority.Instructions(), ixs...)
	sig, err = types.Retry(ctx, "broadcast", s.opts.Broadcast, func(ctx context.Context) (solana.Signature, error) {
		tx, err := s.build(ctx, w.PublicKey(), all, localSigners)
		if err != nil {
			return solana.Signature{}, backoff.Permanent(err)
		}
		sig, err := deliver(ctx, tx)
		if err == nil {
			return sig, nil
		}
		if s.analyzer.IsBlockhashNotFound(err) {
			s.logger.Warn("Blockhash expired, rebuilding transaction", zap.Error(err))
			return solana.Signature{}, err
		}
		return solana.Signature{}, backoff.Permanent(err)
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	s.logger.Info("Transaction sent", zap.String("signature", sig.String()))
	if err := s.client.WaitForTransactionConfirmation(ctx, sig, s.opts.Commitment); err != nil {
		return sig, fmt.Errorf("failed to confirm transaction %s: %w", sig, err)
	}
	s.logger.Info("Transaction confirmed",
		zap.String("signature", sig.String()),
		zap.String("commitment", string(s.opts.Commitment)))
	return sig, nil
}

// build assembles the transaction on a fresh blockhash and applies the
// local signatures. The wallet is always the fee payer and first signer.
func (s *Submitter) build(ctx context.Context, payer solana.PublicKey, ixs []solana.Instruction, localSigners []solana.PrivateKey) (*solana.Transaction, error) {
	blockhash, err := s.client.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}
	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	if err := validateUnsigned(tx); err != nil {
		return nil, err
	}
	if len(localSigners) > 0 {
		if _, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
			for i := range localSigners {
				if localSigners[i].PublicKey().Equals(key) {
					return &localSigners[i]
				}
			}
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to sign with local signers: %w", err)
		}
	}
	return tx, nil
}

func (s *Submitter) signAndBroadcast(ctx context.Context, w TransactionSigner, tx *solana.Transaction) (solana.Signature, error) {
	if err := w.SignTransaction(ctx, tx); err != nil {
		return solana.Signature{}, backoff.Permanent(fmt.Errorf("wallet rejected transaction: %w", err))
	}
	if err := validateSigned(tx); err != nil {
		return solana.Signature{}, backoff.Permanent(err)
	}

	if s.opts.Simulate {
		res, err := s.client.SimulateTransaction(ctx, tx)
		if err != nil {
			return solana.Signature{}, fmt.Errorf("failed to simulate transaction: %w", err)
		}
		if res.Err != nil {
			s.logger.Warn("Simulation rejected transaction",
				zap.Any("error", res.Err),
				zap.Strings("logs", res.Logs))
			return solana.Signature{}, backoff.Permanent(fmt.Errorf("%w: %v", ErrSimulationFailed, res.Err))
		}
		s.logger.Debug("Simulation passed", zap.Uint64("units_consumed", res.UnitsConsumed))
	}

	return s.client.SendTransactionWithOpts(ctx, tx, blockchain.TransactionOptions{
		PreflightCommitment: s.opts.Commitment,
	})
}
