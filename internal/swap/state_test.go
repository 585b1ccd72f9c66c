package swap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/swap-router/internal/blockchain/mocks"
	"github.com/rovshanmuradov/swap-router/internal/layout"
	"github.com/rovshanmuradov/swap-router/internal/router"
	"github.com/rovshanmuradov/swap-router/internal/types"
)

func (f *fixture) stateOwnedBy(t *testing.T, s router.GlobalState) {
	data, err := s.Encode()
	require.NoError(t, err)
	f.client.On("GetAccountInfo", mock.Anything, f.state).Return(mocks.AccountWithData(f.program, data), nil)
}

func TestUpdateStateInitializes(t *testing.T) {
	f := newFixture(t)
	f.stateOwnedBy(t, router.GlobalState{})

	sig, err := f.svc.UpdateState(context.Background(), testWallet{pk: f.owner}, StateUpdate{
		FeeOwner:       f.feeOwner,
		FeeNumerator:   3,
		FeeDenominator: 1000,
	})
	require.NoError(t, err)
	assert.False(t, sig.IsZero())
	require.Len(t, f.sender.ixs, 1)

	ix := f.sender.ixs[0]
	assert.Equal(t, f.program, ix.ProgramID())
	keys := ix.Accounts()
	assert.Equal(t, f.state, keys[0].PublicKey)
	assert.Equal(t, f.owner, keys[1].PublicKey)
	assert.True(t, keys[1].IsSigner)
	assert.Equal(t, f.owner, keys[2].PublicKey, "the signer becomes the owner")
	assert.Equal(t, f.feeOwner, keys[3].PublicKey)

	data, err := ix.Data()
	require.NoError(t, err)
	rec, err := layout.Decode(data, layout.UpdateStateSchema)
	require.NoError(t, err)
	num, _ := rec.Uint("feeNumerator")
	den, _ := rec.Uint("feeDenominator")
	assert.Equal(t, uint64(3), num)
	assert.Equal(t, uint64(1000), den)
}

func TestUpdateStateKeepsCurrentOwners(t *testing.T) {
	f := newFixture(t)
	f.stateOwnedBy(t, router.GlobalState{
		IsInitialized:  true,
		StateOwner:     f.owner,
		FeeOwner:       f.feeOwner,
		FeeNumerator:   3,
		FeeDenominator: 1000,
	})

	_, err := f.svc.UpdateState(context.Background(), testWallet{pk: f.owner}, StateUpdate{
		FeeNumerator:   5,
		FeeDenominator: 1000,
	})
	require.NoError(t, err)
	keys := f.sender.ixs[0].Accounts()
	assert.Equal(t, f.owner, keys[2].PublicKey)
	assert.Equal(t, f.feeOwner, keys[3].PublicKey)
}

func TestUpdateStateRejectsForeignSigner(t *testing.T) {
	f := newFixture(t)
	owner := randomKey()
	f.stateOwnedBy(t, router.GlobalState{
		IsInitialized:  true,
		StateOwner:     owner,
		FeeOwner:       f.feeOwner,
		FeeNumerator:   3,
		FeeDenominator: 1000,
	})

	_, err := f.svc.UpdateState(context.Background(), testWallet{pk: f.owner}, StateUpdate{FeeNumerator: 1, FeeDenominator: 10})
	assert.ErrorIs(t, err, types.ErrVerificationFailed)
	var verr *types.VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, owner, verr.Expected)
	assert.Equal(t, f.owner, verr.Got)
	assert.Zero(t, f.sender.calls)
}

func TestUpdateStateRejectsBadFee(t *testing.T) {
	f := newFixture(t)
	f.stateOwnedBy(t, router.GlobalState{})

	_, err := f.svc.UpdateState(context.Background(), testWallet{pk: f.owner}, StateUpdate{FeeNumerator: 2, FeeDenominator: 1})
	assert.ErrorIs(t, err, types.ErrRange)
	assert.Zero(t, f.sender.calls)
}
