// internal/submit/validator.go
package submit

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrInvalidBlockhash   = errors.New("invalid blockhash")
	ErrInvalidInstruction = errors.New("invalid instruction")
	ErrMissingSignature   = errors.New("missing transaction signature")
)

// validateUnsigned checks a transaction before anyone signs it.
func validateUnsigned(tx *solana.Transaction) error {
	if tx.Message.RecentBlockhash == (solana.Hash{}) {
		return ErrInvalidBlockhash
	}
	if len(tx.Message.Instructions) == 0 {
		return ErrInvalidInstruction
	}
	return nil
}

// validateSigned checks every required signer has signed.
func validateSigned(tx *solana.Transaction) error {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) < required {
		return fmt.Errorf("%w: have %d of %d", ErrMissingSignature, len(tx.Signatures), required)
	}
	for i := 0; i < required; i++ {
		if tx.Signatures[i] == (solana.Signature{}) {
			return fmt.Errorf("%w: %s", ErrMissingSignature, tx.Message.AccountKeys[i])
		}
	}
	return nil
}
