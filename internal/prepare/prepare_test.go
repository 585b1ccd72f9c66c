package prepare

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/blockchain"
	"github.com/rovshanmuradov/swap-router/internal/blockchain/mocks"
	"github.com/rovshanmuradov/swap-router/internal/derive"
	"github.com/rovshanmuradov/swap-router/internal/submit"
	"github.com/rovshanmuradov/swap-router/internal/types"
)

const rent = 2_039_280

type testWallet struct{ pk solana.PublicKey }

func (w testWallet) PublicKey() solana.PublicKey { return w.pk }

type fakeSender struct {
	calls int
	ixs   []solana.Instruction
	err   error
}

func (f *fakeSender) Send(_ context.Context, _ submit.Wallet, ixs []solana.Instruction, _ []solana.PrivateKey) (solana.Signature, error) {
	f.calls++
	f.ixs = ixs
	return solana.Signature{5}, f.err
}

type fixture struct {
	client *mocks.MockClient
	owner  solana.PublicKey
	fee    solana.PublicKey
	mid    solana.PublicKey
	to     solana.PublicKey
}

func newFixture() *fixture {
	return &fixture{
		client: new(mocks.MockClient),
		owner:  solana.NewWallet().PublicKey(),
		fee:    solana.NewWallet().PublicKey(),
		mid:    solana.NewWallet().PublicKey(),
		to:     solana.NewWallet().PublicKey(),
	}
}

func (f *fixture) ata(owner, mint solana.PublicKey) solana.PublicKey {
	a, err := derive.AssociatedTokenAddress(owner, mint)
	if err != nil {
		panic(err)
	}
	return a
}

func (f *fixture) holding(mint solana.PublicKey, amount uint64) blockchain.TokenAccount {
	return blockchain.TokenAccount{Address: f.ata(f.owner, mint), Mint: mint, Owner: f.owner, Amount: amount}
}

func (f *fixture) snapshot(accounts ...blockchain.TokenAccount) *mock.Call {
	f.client.On("GetBalance", mock.Anything, f.owner, rpc.CommitmentConfirmed).Return(uint64(5_000_000_000), nil).Once()
	return f.client.On("GetTokenAccountsByOwner", mock.Anything, f.owner, solana.PublicKey{}).Return(accounts, nil).Once()
}

func (f *fixture) feeAccount(exists bool) {
	call := f.client.On("GetAccountInfo", mock.Anything, f.ata(f.fee, solana.SolMint)).Once()
	if exists {
		call.Return(&rpc.GetAccountInfoResult{Value: &rpc.Account{}}, nil)
		return
	}
	call.Return(nil, types.ErrNotFound)
}

func (f *fixture) request(amount uint64) PlanRequest {
	return PlanRequest{
		Wallet:      testWallet{pk: f.owner},
		FromMint:    solana.SolMint,
		MidMint:     f.mid,
		ToMint:      f.to,
		FeeOwner:    f.fee,
		AmountInRaw: amount,
		Created:     NewCreatedSet(),
	}
}

func transferLamports(t *testing.T, ix solana.Instruction) uint64 {
	t.Helper()
	require.Equal(t, solana.SystemProgramID, ix.ProgramID())
	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 12)
	return binary.LittleEndian.Uint64(data[4:])
}

func createdATA(t *testing.T, ix solana.Instruction) solana.PublicKey {
	t.Helper()
	require.Equal(t, solana.SPLAssociatedTokenAccountProgramID, ix.ProgramID())
	return ix.Accounts()[1].PublicKey
}

func TestPlanFromNativeWithNothingPresent(t *testing.T) {
	f := newFixture()
	f.snapshot()
	f.feeAccount(false)
	f.client.On("GetMinimumBalanceForRentExemption", mock.Anything, uint64(TokenAccountSize)).Return(uint64(rent), nil).Once()

	p := NewPlanner(f.client, nil, true, zap.NewNop())
	plan, err := p.Plan(context.Background(), f.request(1_500_000_000))
	require.NoError(t, err)

	require.Len(t, plan.Instructions, 5)
	assert.Equal(t, uint64(1_500_000_000+rent), transferLamports(t, plan.Instructions[0]))
	assert.Equal(t, f.ata(f.owner, solana.SolMint), createdATA(t, plan.Instructions[1]))
	assert.Equal(t, f.ata(f.fee, solana.SolMint), createdATA(t, plan.Instructions[2]))
	assert.Equal(t, f.ata(f.owner, f.mid), createdATA(t, plan.Instructions[3]))
	assert.Equal(t, f.ata(f.owner, f.to), createdATA(t, plan.Instructions[4]))

	assert.Equal(t, uint64(1_500_000_000+rent), plan.WrapLamports)
	assert.Equal(t, f.ata(f.fee, solana.SolMint), plan.FeeAccount)
	assert.Len(t, plan.Creates, 4)
	f.client.AssertExpectations(t)
}

func TestPlanTopsUpExistingWSOL(t *testing.T) {
	f := newFixture()
	f.snapshot(f.holding(solana.SolMint, 400_000_000), f.holding(f.mid, 0), f.holding(f.to, 0))
	f.feeAccount(true)

	p := NewPlanner(f.client, nil, true, zap.NewNop())
	plan, err := p.Plan(context.Background(), f.request(1_000_000_000))
	require.NoError(t, err)

	require.Len(t, plan.Instructions, 2)
	assert.Equal(t, uint64(600_000_000), transferLamports(t, plan.Instructions[0]))
	assert.Equal(t, solana.TokenProgramID, plan.Instructions[1].ProgramID())
	assert.Equal(t, f.ata(f.owner, solana.SolMint), plan.Instructions[1].Accounts()[0].PublicKey)
	assert.Empty(t, plan.Creates)
	f.client.AssertNotCalled(t, "GetMinimumBalanceForRentExemption", mock.Anything, mock.Anything)
}

func TestPlanEmptyWhenEverythingExists(t *testing.T) {
	f := newFixture()
	f.snapshot(f.holding(solana.SolMint, 2_000_000_000), f.holding(f.mid, 0), f.holding(f.to, 0))
	f.feeAccount(true)

	p := NewPlanner(f.client, nil, true, zap.NewNop())
	plan, err := p.Plan(context.Background(), f.request(1_000_000_000))
	require.NoError(t, err)
	assert.True(t, plan.Empty())
}

func TestPlanSkipsCreatedAndDuplicates(t *testing.T) {
	f := newFixture()
	f.snapshot(f.holding(solana.SolMint, 2_000_000_000))
	f.feeAccount(true)

	req := f.request(1_000_000_000)
	req.ToMint = f.mid
	req.Created.Add(f.ata(f.owner, f.mid))

	p := NewPlanner(f.client, nil, true, zap.NewNop())
	plan, err := p.Plan(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, plan.Empty())

	req.Created = NewCreatedSet()
	f.snapshot(f.holding(solana.SolMint, 2_000_000_000))
	f.feeAccount(true)
	plan, err = p.Plan(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, plan.Instructions, 1)
	assert.Equal(t, f.ata(f.owner, f.mid), createdATA(t, plan.Instructions[0]))
}

func TestSnapshotIgnoresNonAssociatedAccounts(t *testing.T) {
	f := newFixture()
	stray := blockchain.TokenAccount{Address: solana.NewWallet().PublicKey(), Mint: f.mid, Owner: f.owner, Amount: 10}
	f.snapshot(stray, f.holding(f.to, 7))

	snap, err := Snapshot(context.Background(), f.client, derive.NewDeriver(), f.owner)
	require.NoError(t, err)
	assert.False(t, snap.Has(f.mid))
	assert.True(t, snap.Has(f.to))
	assert.Equal(t, uint64(7), snap.Balance(f.to))
	assert.Equal(t, uint64(5_000_000_000), snap.Lamports)
}

func TestTokenBalances(t *testing.T) {
	f := newFixture()
	held := f.ata(f.owner, f.to)
	missing := f.ata(f.owner, f.mid)
	f.client.On("GetMultipleAccounts", mock.Anything, []solana.PublicKey{held, missing}).
		Return([]*rpc.Account{mocks.TokenAccount(f.to, f.owner, 1_473_000), nil}, nil).Once()

	balances, err := TokenBalances(context.Background(), f.client, held, missing)
	require.NoError(t, err)
	assert.Equal(t, map[solana.PublicKey]uint64{held: 1_473_000}, balances)
	f.client.AssertExpectations(t)
}

func TestTokenBalancesErrors(t *testing.T) {
	f := newFixture()
	acc := f.ata(f.owner, f.to)

	f.client.On("GetMultipleAccounts", mock.Anything, []solana.PublicKey{acc}).
		Return([]*rpc.Account{{Data: rpc.DataBytesOrJSONFromBytes(make([]byte, 10))}}, nil).Once()
	_, err := TokenBalances(context.Background(), f.client, acc)
	assert.Error(t, err)

	f.client.On("GetMultipleAccounts", mock.Anything, []solana.PublicKey{acc}).
		Return(nil, errors.New("node down")).Once()
	_, err = TokenBalances(context.Background(), f.client, acc)
	assert.ErrorContains(t, err, "node down")
}

func TestPlanNonNativeSkipsWrap(t *testing.T) {
	f := newFixture()
	from := solana.NewWallet().PublicKey()
	f.snapshot(f.holding(from, 100), f.holding(f.mid, 0), f.holding(f.to, 0))
	f.client.On("GetAccountInfo", mock.Anything, f.ata(f.fee, from)).Return(nil, types.ErrNotFound).Once()

	req := f.request(1_000)
	req.FromMint = from
	p := NewPlanner(f.client, nil, false, zap.NewNop())
	plan, err := p.Plan(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, plan.Instructions, 1)
	assert.Equal(t, f.ata(f.fee, from), createdATA(t, plan.Instructions[0]))
	assert.Zero(t, plan.WrapLamports)
}

func fastPoll() types.RetryPolicy {
	return types.RetryPolicy{Interval: time.Millisecond, MaxInterval: time.Millisecond, MaxAttempts: 3}
}

func TestPrepareSubmitsAndPolls(t *testing.T) {
	f := newFixture()
	// plan
	f.snapshot(f.holding(solana.SolMint, 2_000_000_000))
	f.feeAccount(true)
	// first poll: mid missing
	f.snapshot(f.holding(solana.SolMint, 2_000_000_000), f.holding(f.to, 0))
	// second poll: ready
	f.snapshot(f.holding(solana.SolMint, 2_000_000_000), f.holding(f.mid, 0), f.holding(f.to, 0))
	f.feeAccount(true)

	sender := &fakeSender{}
	req := f.request(1_000_000_000)
	prep := NewPreparer(NewPlanner(f.client, nil, true, zap.NewNop()), sender, fastPoll(), nil, zap.NewNop())

	res, err := prep.Prepare(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, sender.calls)
	assert.Len(t, sender.ixs, 2)
	assert.Equal(t, solana.Signature{5}, res.Signature)
	assert.True(t, res.Snapshot.Has(f.mid))
	assert.True(t, req.Created.Has(f.ata(f.owner, f.mid)))
	f.client.AssertExpectations(t)
}

func TestPrepareTimesOut(t *testing.T) {
	f := newFixture()
	f.snapshot(f.holding(solana.SolMint, 2_000_000_000), f.holding(f.to, 0))
	f.feeAccount(true)
	f.client.On("GetBalance", mock.Anything, f.owner, rpc.CommitmentConfirmed).Return(uint64(1), nil)
	f.client.On("GetTokenAccountsByOwner", mock.Anything, f.owner, solana.PublicKey{}).
		Return([]blockchain.TokenAccount{f.holding(solana.SolMint, 2_000_000_000)}, nil)

	prep := NewPreparer(NewPlanner(f.client, nil, true, zap.NewNop()), &fakeSender{}, fastPoll(), nil, zap.NewNop())
	_, err := prep.Prepare(context.Background(), f.request(1_000_000_000))

	var timeout *types.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 3, timeout.Attempts)
	assert.ErrorIs(t, err, errNotReady)
}

func TestPrepareEmptyPlanDoesNotSubmit(t *testing.T) {
	f := newFixture()
	f.snapshot(f.holding(solana.SolMint, 2_000_000_000), f.holding(f.mid, 0), f.holding(f.to, 0))
	f.feeAccount(true)

	sender := &fakeSender{}
	prep := NewPreparer(NewPlanner(f.client, nil, true, zap.NewNop()), sender, fastPoll(), nil, zap.NewNop())
	res, err := prep.Prepare(context.Background(), f.request(1_000_000_000))
	require.NoError(t, err)
	assert.Zero(t, sender.calls)
	assert.True(t, res.Plan.Empty())
}

func TestPrepareSubmitFailure(t *testing.T) {
	f := newFixture()
	f.snapshot(f.holding(solana.SolMint, 2_000_000_000))
	f.feeAccount(true)

	sender := &fakeSender{err: errors.New("rejected")}
	prep := NewPreparer(NewPlanner(f.client, nil, true, zap.NewNop()), sender, fastPoll(), nil, zap.NewNop())
	_, err := prep.Prepare(context.Background(), f.request(1_000_000_000))
	assert.ErrorContains(t, err, "failed to submit preparation")
}
