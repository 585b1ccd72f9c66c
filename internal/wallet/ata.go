// internal/wallet/ata.go
package wallet

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"

	"github.com/rovshanmuradov/swap-router/internal/derive"
)

// createIdempotentOpcode is CreateIdempotent of the associated token program.
const createIdempotentOpcode = 1

// CreateATAInstruction creates the associated token account of (owner, mint)
// paid by payer. The idempotent form succeeds when the account already exists.
func CreateATAInstruction(payer, owner, mint solana.PublicKey, idempotent bool) (solana.Instruction, error) {
	if !idempotent {
		ix, err := associatedtokenaccount.NewCreateInstruction(payer, owner, mint).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("failed to build create ATA instruction: %w", err)
		}
		return ix, nil
	}

	ata, err := derive.AssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		solana.AccountMetaSlice{
			{PublicKey: payer, IsWritable: true, IsSigner: true},
			{PublicKey: ata, IsWritable: true, IsSigner: false},
			{PublicKey: owner, IsWritable: false, IsSigner: false},
			{PublicKey: mint, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
		},
		[]byte{createIdempotentOpcode},
	), nil
}
