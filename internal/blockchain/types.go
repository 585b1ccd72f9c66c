// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// MaxAccountsPerRequest is the node's limit for getMultipleAccounts.
const MaxAccountsPerRequest = 100

// TransactionOptions определяет опции для отправки транзакций.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

// SimulationResult представляет результат симуляции транзакции.
type SimulationResult struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed uint64
}

// TokenAccount is one SPL token account as returned by an owner listing.
type TokenAccount struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Owner   solana.PublicKey
	Amount  uint64
}

// Client определяет общий интерфейс для взаимодействия с блокчейном.
type Client interface {
	// Получить последний blockhash.
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
	// Получить информацию об аккаунте. Отсутствующий аккаунт: types.ErrNotFound.
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	// Получить несколько аккаунтов; результат в порядке ключей, nil для отсутствующих.
	GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) ([]*rpc.Account, error)
	// Получить токен-аккаунты владельца; нулевой mint означает все аккаунты SPL Token.
	GetTokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]TokenAccount, error)
	// Получить баланс аккаунта.
	GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error)
	// Минимальный баланс для освобождения от ренты.
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error)
	// Отправить транзакцию с опциями.
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts TransactionOptions) (solana.Signature, error)
	// Симулировать транзакцию.
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error)
	// Получить статусы подписей транзакций.
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	// Ожидание подтверждения транзакции.
	WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) error
	// Логи подтверждённой транзакции.
	GetTransactionLogs(ctx context.Context, signature solana.Signature) ([]string, error)
	// Аккаунты программы.
	GetProgramAccounts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
}
