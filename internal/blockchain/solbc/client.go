// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/swap-router/internal/blockchain"
	failover "github.com/rovshanmuradov/swap-router/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/swap-router/internal/layout"
	"github.com/rovshanmuradov/swap-router/internal/types"
)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
// Все вызовы проходят через пул узлов с переключением и лимитом частоты.
type Client struct {
	nodes      *failover.RPCClient
	commitment rpc.CommitmentType
	confirm    types.RetryPolicy
	logger     *zap.Logger
}

// Options настраивают клиент поверх пула узлов.
type Options struct {
	Commitment rpc.CommitmentType
	// Confirm bounds WaitForTransactionConfirmation.
	Confirm types.RetryPolicy
}

// NewClient создаёт новый клиент, принимая пул узлов и логгер через dependency injection.
func NewClient(nodes *failover.RPCClient, opts Options, logger *zap.Logger) *Client {
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	if opts.Confirm.MaxElapsed == 0 {
		opts.Confirm = types.DefaultPollPolicy()
	}
	return &Client{
		nodes:      nodes,
		commitment: opts.Commitment,
		confirm:    opts.Confirm,
		logger:     logger.Named("solbc-client"),
	}
}

func notFound(what string, err error) error {
	if errors.Is(err, rpc.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, types.ErrNotFound)
	}
	return err
}

// GetRecentBlockhash получает последний blockhash.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	var hash solana.Hash
	err := c.nodes.ExecuteWithRetry(ctx, "getLatestBlockhash", func(ctx context.Context, node *rpc.Client) error {
		res, err := node.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}
		hash = res.Value.Blockhash
		return nil
	})
	if err != nil {
		c.logger.Error("GetRecentBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return hash, nil
}

// GetAccountInfo получает информацию об аккаунте.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	var result *rpc.GetAccountInfoResult
	err := c.nodes.ExecuteWithRetry(ctx, "getAccountInfo", func(ctx context.Context, node *rpc.Client) error {
		var err error
		result, err = node.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: c.commitment,
		})
		return err
	})
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, notFound("account "+pubkey.String(), err)
	}
	if result == nil || result.Value == nil {
		return nil, fmt.Errorf("account %s: %w", pubkey, types.ErrNotFound)
	}
	return result, nil
}

// GetMultipleAccounts splits pubkeys into chunks of MaxAccountsPerRequest,
// fetches the chunks concurrently and reassembles results in input order.
func (c *Client) GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) ([]*rpc.Account, error) {
	out := make([]*rpc.Account, len(pubkeys))
	if len(pubkeys) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(pubkeys); start += blockchain.MaxAccountsPerRequest {
		start := start
		end := start + blockchain.MaxAccountsPerRequest
		if end > len(pubkeys) {
			end = len(pubkeys)
		}
		chunk := pubkeys[start:end]

		g.Go(func() error {
			var res *rpc.GetMultipleAccountsResult
			err := c.nodes.ExecuteWithRetry(gctx, "getMultipleAccounts", func(ctx context.Context, node *rpc.Client) error {
				var err error
				res, err = node.GetMultipleAccountsWithOpts(ctx, chunk, &rpc.GetMultipleAccountsOpts{
					Commitment: c.commitment,
					Encoding:   solana.EncodingBase64,
				})
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to get accounts [%d:%d]: %w", start, end, err)
			}
			if len(res.Value) != len(chunk) {
				return fmt.Errorf("getMultipleAccounts returned %d accounts for %d keys", len(res.Value), len(chunk))
			}
			copy(out[start:end], res.Value)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Debug("GetMultipleAccounts error", zap.Int("keys", len(pubkeys)), zap.Error(err))
		return nil, err
	}
	return out, nil
}

// GetTokenAccountsByOwner lists SPL token accounts of owner, decoding each
// with the token account layout.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]blockchain.TokenAccount, error) {
	conf := &rpc.GetTokenAccountsConfig{}
	if mint.IsZero() {
		programID := solana.TokenProgramID
		conf.ProgramId = &programID
	} else {
		conf.Mint = &mint
	}

	var res *rpc.GetTokenAccountsResult
	err := c.nodes.ExecuteWithRetry(ctx, "getTokenAccountsByOwner", func(ctx context.Context, node *rpc.Client) error {
		var err error
		res, err = node.GetTokenAccountsByOwner(ctx, owner, conf, &rpc.GetTokenAccountsOpts{
			Commitment: c.commitment,
			Encoding:   solana.EncodingBase64,
		})
		return err
	})
	if err != nil {
		c.logger.Debug("GetTokenAccountsByOwner error", zap.String("owner", owner.String()), zap.Error(err))
		return nil, err
	}

	accounts := make([]blockchain.TokenAccount, 0, len(res.Value))
	for _, keyed := range res.Value {
		if keyed == nil || keyed.Account.Data == nil {
			continue
		}
		acc, err := DecodeTokenAccount(keyed.Pubkey, keyed.Account.Data.GetBinary())
		if err != nil {
			c.logger.Warn("Skipping undecodable token account",
				zap.String("account", keyed.Pubkey.String()),
				zap.Error(err))
			continue
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// DecodeTokenAccount parses SPL token account data.
func DecodeTokenAccount(address solana.PublicKey, data []byte) (blockchain.TokenAccount, error) {
	rec, err := layout.Decode(data, layout.TokenAccountSchema)
	if err != nil {
		return blockchain.TokenAccount{}, err
	}
	acc := blockchain.TokenAccount{Address: address}
	if acc.Mint, err = rec.Key("mint"); err != nil {
		return blockchain.TokenAccount{}, err
	}
	if acc.Owner, err = rec.Key("owner"); err != nil {
		return blockchain.TokenAccount{}, err
	}
	if acc.Amount, err = rec.Uint("amount"); err != nil {
		return blockchain.TokenAccount{}, err
	}
	return acc, nil
}

// GetBalance получает баланс аккаунта.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	if commitment == "" {
		commitment = c.commitment
	}
	var balance uint64
	err := c.nodes.ExecuteWithRetry(ctx, "getBalance", func(ctx context.Context, node *rpc.Client) error {
		res, err := node.GetBalance(ctx, pubkey, commitment)
		if err != nil {
			return err
		}
		balance = res.Value
		return nil
	})
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, err
	}
	return balance, nil
}

func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	var lamports uint64
	err := c.nodes.ExecuteWithRetry(ctx, "getMinimumBalanceForRentExemption", func(ctx context.Context, node *rpc.Client) error {
		var err error
		lamports, err = node.GetMinimumBalanceForRentExemption(ctx, dataSize, c.commitment)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get rent exemption for %d bytes: %w", dataSize, err)
	}
	return lamports, nil
}

// SendTransactionWithOpts отправляет транзакцию с заданными опциями.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	var sig solana.Signature
	err := c.nodes.ExecuteWithRetry(ctx, "sendTransaction", func(ctx context.Context, node *rpc.Client) error {
		var err error
		sig, err = node.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       opts.SkipPreflight,
			PreflightCommitment: opts.PreflightCommitment,
		})
		return err
	})
	if err != nil {
		c.logger.Error("SendTransactionWithOpts error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// SimulateTransaction симулирует транзакцию и возвращает результат симуляции.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error) {
	var result *rpc.SimulateTransactionResponse
	err := c.nodes.ExecuteWithRetry(ctx, "simulateTransaction", func(ctx context.Context, node *rpc.Client) error {
		var err error
		result, err = node.SimulateTransaction(ctx, tx)
		return err
	})
	if err != nil {
		c.logger.Error("SimulateTransaction error", zap.Error(err))
		return nil, err
	}
	units := uint64(0)
	if result.Value.UnitsConsumed != nil {
		units = *result.Value.UnitsConsumed
	}
	return &blockchain.SimulationResult{
		Err:           result.Value.Err,
		Logs:          result.Value.Logs,
		UnitsConsumed: units,
	}, nil
}

// GetSignatureStatuses получает статусы транзакций.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	var result *rpc.GetSignatureStatusesResult
	err := c.nodes.ExecuteWithRetry(ctx, "getSignatureStatuses", func(ctx context.Context, node *rpc.Client) error {
		var err error
		result, err = node.GetSignatureStatuses(ctx, false, signatures...)
		return err
	})
	if err != nil {
		c.logger.Error("GetSignatureStatuses error", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// ErrTransactionFailed is returned when a transaction lands with an error.
var ErrTransactionFailed = errors.New("transaction failed on chain")

var errNotConfirmed = errors.New("not confirmed yet")

// WaitForTransactionConfirmation опрашивает статус подписи, пока не будет
// достигнут нужный уровень подтверждения или не истечёт политика повторов.
func (c *Client) WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) error {
	if commitment == "" {
		commitment = c.commitment
	}
	_, err := types.Retry(ctx, "confirm "+signature.String(), c.confirm, func(ctx context.Context) (struct{}, error) {
		statuses, err := c.GetSignatureStatuses(ctx, signature)
		if err != nil {
			c.logger.Warn("Error getting signature statuses", zap.Error(err))
			return struct{}{}, err
		}
		if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
			return struct{}{}, errNotConfirmed
		}
		status := statuses.Value[0]
		if status.Err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("%w: %s: %v", ErrTransactionFailed, signature, status.Err))
		}
		if !CommitmentReached(status.ConfirmationStatus, commitment) {
			return struct{}{}, errNotConfirmed
		}
		return struct{}{}, nil
	})
	return err
}

// CommitmentReached reports whether status satisfies the wanted commitment.
func CommitmentReached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	rank := map[rpc.ConfirmationStatusType]int{
		rpc.ConfirmationStatusProcessed: 1,
		rpc.ConfirmationStatusConfirmed: 2,
		rpc.ConfirmationStatusFinalized: 3,
	}
	wantRank := map[rpc.CommitmentType]int{
		rpc.CommitmentProcessed: 1,
		rpc.CommitmentConfirmed: 2,
		rpc.CommitmentFinalized: 3,
	}[want]
	if wantRank == 0 {
		wantRank = 2
	}
	return rank[status] >= wantRank
}

// GetTransactionLogs returns the log messages of a landed transaction.
func (c *Client) GetTransactionLogs(ctx context.Context, signature solana.Signature) ([]string, error) {
	maxVersion := uint64(0)
	var res *rpc.GetTransactionResult
	err := c.nodes.ExecuteWithRetry(ctx, "getTransaction", func(ctx context.Context, node *rpc.Client) error {
		var err error
		res, err = node.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			Commitment:                     rpc.CommitmentConfirmed,
			MaxSupportedTransactionVersion: &maxVersion,
		})
		return err
	})
	if err != nil {
		return nil, notFound("transaction "+signature.String(), err)
	}
	if res == nil || res.Meta == nil {
		return nil, fmt.Errorf("transaction %s: %w", signature, types.ErrNotFound)
	}
	return res.Meta.LogMessages, nil
}

// GetProgramAccounts получает все аккаунты программы с опциями фильтрации.
func (c *Client) GetProgramAccounts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	if opts == nil {
		opts = &rpc.GetProgramAccountsOpts{}
	}
	if opts.Encoding == "" {
		opts.Encoding = solana.EncodingBase64
	}
	if opts.Commitment == "" {
		opts.Commitment = c.commitment
	}

	var accounts rpc.GetProgramAccountsResult
	err := c.nodes.ExecuteWithRetry(ctx, "getProgramAccounts", func(ctx context.Context, node *rpc.Client) error {
		var err error
		accounts, err = node.GetProgramAccountsWithOpts(ctx, programID, opts)
		return err
	})
	if err != nil {
		c.logger.Debug("GetProgramAccounts error",
			zap.String("program_id", programID.String()),
			zap.Error(err))
		return nil, err
	}
	return accounts, nil
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
