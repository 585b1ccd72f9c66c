// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/rovshanmuradov/swap-router/internal/derive"
	"github.com/rovshanmuradov/swap-router/internal/submit"
)

// Wallet представляет локальный кошелёк Solana с приватным ключом.
type Wallet struct {
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
	atas       *derive.Deriver // кеш ATA-адресов
}

var _ submit.TransactionSigner = (*Wallet)(nil)

// NewWallet создаёт кошелёк из base58-encoded приватного ключа.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(strings.TrimSpace(privateKeyBase58))
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	return FromPrivateKey(solana.PrivateKey(privateKeyBytes)), nil
}

// FromPrivateKey wraps an already decoded key.
func FromPrivateKey(key solana.PrivateKey) *Wallet {
	return &Wallet{
		privateKey: key,
		publicKey:  key.PublicKey(),
		atas:       derive.NewDeriver(),
	}
}

// LoadWallets загружает кошельки из CSV-файла с колонками: [Name, PrivateKeyBase58].
// Строки с неверным ключом пропускаются.
func LoadWallets(path string) (map[string]*Wallet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV file is empty or missing data")
	}

	wallets := make(map[string]*Wallet)
	for _, record := range records[1:] {
		if len(record) != 2 {
			continue
		}
		w, err := NewWallet(record[1])
		if err != nil {
			continue
		}
		wallets[record[0]] = w
	}
	return wallets, nil
}

func (w *Wallet) PublicKey() solana.PublicKey {
	return w.publicKey
}

// SignTransaction добавляет подпись кошелька, сохраняя уже имеющиеся подписи.
func (w *Wallet) SignTransaction(_ context.Context, tx *solana.Transaction) error {
	_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.publicKey) {
			return &w.privateKey
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

// ATA возвращает адрес ассоциированного токен-аккаунта кошелька для mint.
func (w *Wallet) ATA(mint solana.PublicKey) (solana.PublicKey, error) {
	return w.atas.ATA(w.publicKey, mint)
}

// PrecomputeATAs заранее рассчитывает ATA для списка токенов.
func (w *Wallet) PrecomputeATAs(mints []solana.PublicKey) error {
	for _, mint := range mints {
		if _, err := w.ATA(mint); err != nil {
			return fmt.Errorf("failed to precompute ATA for mint %s: %w", mint.String(), err)
		}
	}
	return nil
}

// String возвращает публичный ключ кошелька.
func (w *Wallet) String() string {
	return w.publicKey.String()
}
