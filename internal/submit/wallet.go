// internal/submit/wallet.go
package submit

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/swap-router/internal/blockchain"
)

// Wallet is the minimal wallet capability: an identity that pays fees.
type Wallet interface {
	PublicKey() solana.PublicKey
}

// TransactionSigner signs in place; the submitter broadcasts.
type TransactionSigner interface {
	Wallet
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// TransactionSender signs and broadcasts on its own (browser or hardware
// wallets). Local signers have already signed when it is called.
type TransactionSender interface {
	Wallet
	SendTransaction(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error)
}

// Sender delivers instructions on behalf of a wallet; *Submitter implements it.
type Sender interface {
	Send(ctx context.Context, w Wallet, ixs []solana.Instruction, localSigners []solana.PrivateKey) (solana.Signature, error)
}
