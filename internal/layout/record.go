// internal/layout/record.go
package layout

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Record holds field values by name. Numeric fields decode as uint64,
// Bool as bool, PubKey as solana.PublicKey, Bytes32 as [32]byte.
type Record map[string]interface{}

// Uint returns a numeric field.
func (r Record) Uint(name string) (uint64, error) {
	v, ok := r[name]
	if !ok {
		return 0, fmt.Errorf("field %q not present", name)
	}
	n, ok := toUint64(v)
	if !ok {
		return 0, fmt.Errorf("field %q is %T, not numeric", name, v)
	}
	return n, nil
}

// Key returns a public key field.
func (r Record) Key(name string) (solana.PublicKey, error) {
	v, ok := r[name]
	if !ok {
		return solana.PublicKey{}, fmt.Errorf("field %q not present", name)
	}
	pk, ok := v.(solana.PublicKey)
	if !ok {
		return solana.PublicKey{}, fmt.Errorf("field %q is %T, not a public key", name, v)
	}
	return pk, nil
}

// Flag returns a bool field.
func (r Record) Flag(name string) (bool, error) {
	v, ok := r[name]
	if !ok {
		return false, fmt.Errorf("field %q not present", name)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("field %q is %T, not bool", name, v)
	}
	return b, nil
}
