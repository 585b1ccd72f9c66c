package wallet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/swap-router/internal/derive"
)

func TestNewWallet(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	w, err := NewWallet(base58.Encode(key))
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey())
	assert.Equal(t, key.PublicKey().String(), w.String())

	_, err = NewWallet("0OIl")
	assert.ErrorContains(t, err, "failed to decode private key")

	_, err = NewWallet(base58.Encode([]byte{1, 2, 3}))
	assert.ErrorContains(t, err, "invalid private key length")
}

func TestLoadWallets(t *testing.T) {
	a, b := solana.NewWallet().PrivateKey, solana.NewWallet().PrivateKey
	csv := "name,key\nmain," + a.String() + "\nbroken,xyz\nspare," + b.String() + "\n"
	path := filepath.Join(t.TempDir(), "wallets.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	wallets, err := LoadWallets(path)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, a.PublicKey(), wallets["main"].PublicKey())
	assert.Equal(t, b.PublicKey(), wallets["spare"].PublicKey())

	empty := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(empty, []byte("name,key\n"), 0o600))
	_, err = LoadWallets(empty)
	assert.ErrorContains(t, err, "empty")
}

func TestSignTransactionKeepsOtherSignatures(t *testing.T) {
	w := FromPrivateKey(solana.NewWallet().PrivateKey)
	other := solana.NewWallet().PrivateKey

	ix := solana.NewInstruction(solana.MemoProgramID, solana.AccountMetaSlice{
		solana.NewAccountMeta(other.PublicKey(), false, true),
	}, []byte("memo"))
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1}, solana.TransactionPayer(w.PublicKey()))
	require.NoError(t, err)

	_, err = tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(other.PublicKey()) {
			return &other
		}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, w.SignTransaction(context.Background(), tx))

	require.Len(t, tx.Signatures, 2)
	assert.NoError(t, tx.VerifySignatures())
}

func TestATA(t *testing.T) {
	w := FromPrivateKey(solana.NewWallet().PrivateKey)
	mint := solana.NewWallet().PublicKey()

	got, err := w.ATA(mint)
	require.NoError(t, err)
	want, _, err := solana.FindAssociatedTokenAddress(w.PublicKey(), mint)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, w.PrecomputeATAs([]solana.PublicKey{mint, solana.SolMint}))
}

func TestCreateATAInstruction(t *testing.T) {
	payer, owner, mint := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	ata, err := derive.AssociatedTokenAddress(owner, mint)
	require.NoError(t, err)

	for _, idempotent := range []bool{true, false} {
		ix, err := CreateATAInstruction(payer, owner, mint, idempotent)
		require.NoError(t, err)
		assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, ix.ProgramID())

		accounts := ix.Accounts()
		require.GreaterOrEqual(t, len(accounts), 6)
		assert.Equal(t, payer, accounts[0].PublicKey)
		assert.True(t, accounts[0].IsSigner)
		assert.Equal(t, ata, accounts[1].PublicKey)
		assert.True(t, accounts[1].IsWritable)
		assert.Equal(t, owner, accounts[2].PublicKey)
		assert.Equal(t, mint, accounts[3].PublicKey)
	}

	ix, err := CreateATAInstruction(payer, owner, mint, true)
	require.NoError(t, err)
	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)
}
