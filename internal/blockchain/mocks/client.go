// internal/blockchain/mocks/client.go
package mocks

import (
	"context"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/mock"

	"github.com/rovshanmuradov/swap-router/internal/blockchain"
)

// MockClient реализует интерфейс blockchain.Client для тестов.
type MockClient struct {
	mock.Mock
}

var _ blockchain.Client = (*MockClient)(nil)

func (m *MockClient) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	args := m.Called(ctx)
	return args.Get(0).(solana.Hash), args.Error(1)
}

func (m *MockClient) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	args := m.Called(ctx, pubkey)
	res, _ := args.Get(0).(*rpc.GetAccountInfoResult)
	return res, args.Error(1)
}

func (m *MockClient) GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) ([]*rpc.Account, error) {
	args := m.Called(ctx, pubkeys)
	res, _ := args.Get(0).([]*rpc.Account)
	return res, args.Error(1)
}

func (m *MockClient) GetTokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]blockchain.TokenAccount, error) {
	args := m.Called(ctx, owner, mint)
	res, _ := args.Get(0).([]blockchain.TokenAccount)
	return res, args.Error(1)
}

func (m *MockClient) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, pubkey, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockClient) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	args := m.Called(ctx, dataSize)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockClient) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	args := m.Called(ctx, tx, opts)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockClient) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error) {
	args := m.Called(ctx, tx)
	res, _ := args.Get(0).(*blockchain.SimulationResult)
	return res, args.Error(1)
}

func (m *MockClient) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	args := m.Called(ctx, signatures)
	res, _ := args.Get(0).(*rpc.GetSignatureStatusesResult)
	return res, args.Error(1)
}

func (m *MockClient) WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) error {
	args := m.Called(ctx, signature, commitment)
	return args.Error(0)
}

func (m *MockClient) GetTransactionLogs(ctx context.Context, signature solana.Signature) ([]string, error) {
	args := m.Called(ctx, signature)
	res, _ := args.Get(0).([]string)
	return res, args.Error(1)
}

func (m *MockClient) GetProgramAccounts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	args := m.Called(ctx, programID, opts)
	res, _ := args.Get(0).(rpc.GetProgramAccountsResult)
	return res, args.Error(1)
}

// AccountWithData builds a getAccountInfo result carrying data.
func AccountWithData(owner solana.PublicKey, data []byte) *rpc.GetAccountInfoResult {
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{
			Owner: owner,
			Data:  rpc.DataBytesOrJSONFromBytes(data),
		},
	}
}

// TokenAccount builds an SPL token account holding amount of mint.
func TokenAccount(mint, owner solana.PublicKey, amount uint64) *rpc.Account {
	data := make([]byte, 165)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	return &rpc.Account{Owner: solana.TokenProgramID, Data: rpc.DataBytesOrJSONFromBytes(data)}
}
