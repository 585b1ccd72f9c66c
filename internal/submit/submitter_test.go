package submit_test

import (
	"context"
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
	"github.com/rovshanmuradov/swap-router/internal/submit"
	"github.com/rovshanmuradov/swap-router/internal/types"
	"github.com/rovshanmuradov/swap-router/internal/wallet"
)

type recordingObserver struct {
	names []string
	errs  []error
}

type recordingSpan struct {
	o *recordingObserver
}

func (s recordingSpan) End(err error) { s.o.errs = append(s.o.errs, err) }

func (o *recordingObserver) Start(ctx context.Context, name string) (context.Context, types.Span) {
	o.names = append(o.names, name)
	return ctx, recordingSpan{o: o}
}

type pubkeyOnly struct{ pk solana.PublicKey }

func (p pubkeyOnly) PublicKey() solana.PublicKey { return p.pk }

// sender signs with its key and records what it was asked to send.
type sender struct {
	key  solana.PrivateKey
	tx   *solana.Transaction
	opts blockchain.TransactionOptions
}

func (s *sender) PublicKey() solana.PublicKey { return s.key.PublicKey() }

func (s *sender) SendTransaction(_ context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	s.tx, s.opts = tx, opts
	sigs, err := tx.PartialSign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, err
	}
	return sigs[0], nil
}

func memo(signers ...solana.PublicKey) solana.Instruction {
	metas := solana.AccountMetaSlice{}
	for _, s := range signers {
		metas = append(metas, solana.NewAccountMeta(s, false, true))
	}
	return solana.NewInstruction(solana.MemoProgramID, metas, []byte("route"))
}

func testOptions() submit.Options {
	opts := submit.DefaultOptions()
	opts.Broadcast.Interval = time.Millisecond
	opts.Broadcast.MaxInterval = time.Millisecond
	return opts
}

func TestSendSignsAndConfirms(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.MockClient)
	w := wallet.FromPrivateKey(solana.NewWallet().PrivateKey)
	local := solana.NewWallet().PrivateKey

	var sent *solana.Transaction
	client.On("GetRecentBlockhash", mock.Anything).Return(solana.Hash{7}, nil).Once()
	client.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*solana.Transaction) }).
		Return(solana.Signature{1}, nil).Once()
	client.On("WaitForTransactionConfirmation", mock.Anything, solana.Signature{1}, rpc.CommitmentConfirmed).
		Return(nil).Once()

	opts := testOptions()
	opts.Priority = types.PriorityProfile{ComputeUnits: 200_000, UnitPrice: 1_000}
	obs := &recordingObserver{}
	s := submit.NewSubmitter(client, opts, obs, zap.NewNop())

	sig, err := s.Send(ctx, w, []solana.Instruction{memo(local.PublicKey())}, []solana.PrivateKey{local})
	require.NoError(t, err)
	assert.Equal(t, solana.Signature{1}, sig)

	require.NotNil(t, sent)
	assert.Equal(t, w.PublicKey(), sent.Message.AccountKeys[0])
	assert.Len(t, sent.Message.Instructions, 3)
	assert.Equal(t, solana.ComputeBudget, sent.Message.AccountKeys[sent.Message.Instructions[0].ProgramIDIndex])
	assert.NoError(t, sent.VerifySignatures())

	assert.Equal(t, []string{"submit"}, obs.names)
	assert.Equal(t, []error{nil}, obs.errs)
	client.AssertExpectations(t)
}

func TestSendRetriesExpiredBlockhash(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.MockClient)
	w := wallet.FromPrivateKey(solana.NewWallet().PrivateKey)

	client.On("GetRecentBlockhash", mock.Anything).Return(solana.Hash{1}, nil).Once()
	client.On("GetRecentBlockhash", mock.Anything).Return(solana.Hash{2}, nil).Once()
	client.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).
		Return(solana.Signature{}, errors.New("Transaction simulation failed: Blockhash not found")).Once()
	client.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).
		Return(solana.Signature{9}, nil).Once()
	client.On("WaitForTransactionConfirmation", mock.Anything, solana.Signature{9}, rpc.CommitmentConfirmed).
		Return(nil).Once()

	s := submit.NewSubmitter(client, testOptions(), nil, zap.NewNop())
	sig, err := s.Send(ctx, w, []solana.Instruction{memo()}, nil)
	require.NoError(t, err)
	assert.Equal(t, solana.Signature{9}, sig)
	client.AssertExpectations(t)
}

func TestSendDoesNotRetryOtherErrors(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.MockClient)
	w := wallet.FromPrivateKey(solana.NewWallet().PrivateKey)

	client.On("GetRecentBlockhash", mock.Anything).Return(solana.Hash{1}, nil).Once()
	client.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).
		Return(solana.Signature{}, errors.New("insufficient funds for fee")).Once()

	obs := &recordingObserver{}
	s := submit.NewSubmitter(client, testOptions(), obs, zap.NewNop())
	_, err := s.Send(ctx, w, []solana.Instruction{memo()}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient funds")
	require.Len(t, obs.errs, 1)
	assert.Error(t, obs.errs[0])

	client.AssertNumberOfCalls(t, "SendTransactionWithOpts", 1)
	client.AssertNotCalled(t, "WaitForTransactionConfirmation", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendDelegatesToSendingWallet(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.MockClient)
	w := &sender{key: solana.NewWallet().PrivateKey}
	local := solana.NewWallet().PrivateKey

	client.On("GetRecentBlockhash", mock.Anything).Return(solana.Hash{3}, nil).Once()
	client.On("WaitForTransactionConfirmation", mock.Anything, mock.Anything, rpc.CommitmentConfirmed).
		Return(nil).Once()

	s := submit.NewSubmitter(client, testOptions(), nil, zap.NewNop())
	_, err := s.Send(ctx, w, []solana.Instruction{memo(local.PublicKey())}, []solana.PrivateKey{local})
	require.NoError(t, err)

	require.NotNil(t, w.tx)
	assert.True(t, w.opts.SkipPreflight)
	assert.Equal(t, w.PublicKey(), w.tx.Message.AccountKeys[0])
	assert.NoError(t, w.tx.VerifySignatures())
	client.AssertNotCalled(t, "SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendWithoutSigningCapability(t *testing.T) {
	client := new(mocks.MockClient)
	s := submit.NewSubmitter(client, testOptions(), nil, zap.NewNop())

	_, err := s.Send(context.Background(), pubkeyOnly{pk: solana.NewWallet().PublicKey()}, []solana.Instruction{memo()}, nil)
	assert.ErrorIs(t, err, types.ErrSigningUnavailable)
	client.AssertNotCalled(t, "GetRecentBlockhash", mock.Anything)
}

func TestSendRejectsEmptyInstructions(t *testing.T) {
	s := submit.NewSubmitter(new(mocks.MockClient), testOptions(), nil, zap.NewNop())
	_, err := s.Send(context.Background(), wallet.FromPrivateKey(solana.NewWallet().PrivateKey), nil, nil)
	assert.ErrorIs(t, err, submit.ErrInvalidInstruction)
}

func TestSendStopsOnFailedSimulation(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.MockClient)
	w := wallet.FromPrivateKey(solana.NewWallet().PrivateKey)

	client.On("GetRecentBlockhash", mock.Anything).Return(solana.Hash{1}, nil).Once()
	client.On("SimulateTransaction", mock.Anything, mock.Anything).Return(&blockchain.SimulationResult{
		Err:  map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
		Logs: []string{"Program log: slippage"},
	}, nil).Once()

	opts := testOptions()
	opts.Simulate = true
	s := submit.NewSubmitter(client, opts, nil, zap.NewNop())

	_, err := s.Send(ctx, w, []solana.Instruction{memo()}, nil)
	assert.ErrorIs(t, err, submit.ErrSimulationFailed)
	client.AssertNotCalled(t, "SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMissingLocalSigner(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.MockClient)
	w := wallet.FromPrivateKey(solana.NewWallet().PrivateKey)
	absent := solana.NewWallet().PublicKey()

	client.On("GetRecentBlockhash", mock.Anything).Return(solana.Hash{1}, nil).Once()

	s := submit.NewSubmitter(client, testOptions(), nil, zap.NewNop())
	_, err := s.Send(ctx, w, []solana.Instruction{memo(absent)}, nil)
	assert.ErrorIs(t, err, submit.ErrMissingSignature)
}
