// internal/derive/derive.go
package derive

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// DefaultStateSeed is the seed of the router's global state account.
const DefaultStateSeed = "Dex router state"

// ProgramAddress derives a program address from seeds against programID.
func ProgramAddress(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive program address: %w", err)
	}
	return addr, bump, nil
}

// AssociatedTokenAddress derives the ATA of (owner, mint):
// seeds (owner, token program, mint) against the associated token program.
func AssociatedTokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := ProgramAddress([][]byte{
		owner[:],
		solana.TokenProgramID[:],
		mint[:],
	}, solana.SPLAssociatedTokenAccountProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("ata for owner %s mint %s: %w", owner, mint, err)
	}
	return addr, nil
}

// GlobalStateAddress derives the router state account: seeds (seed, programID).
func GlobalStateAddress(routerProgramID solana.PublicKey, seed string) (solana.PublicKey, error) {
	if seed == "" {
		seed = DefaultStateSeed
	}
	addr, _, err := ProgramAddress([][]byte{[]byte(seed), routerProgramID[:]}, routerProgramID)
	return addr, err
}

type ataKey struct {
	owner solana.PublicKey
	mint  solana.PublicKey
}

// Deriver memoizes derivations. Safe for concurrent use.
type Deriver struct {
	mu     sync.RWMutex
	atas   map[ataKey]solana.PublicKey
	states map[string]solana.PublicKey
}

func NewDeriver() *Deriver {
	return &Deriver{
		atas:   make(map[ataKey]solana.PublicKey),
		states: make(map[string]solana.PublicKey),
	}
}

// ATA returns the memoized associated token address.
func (d *Deriver) ATA(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	key := ataKey{owner: owner, mint: mint}

	d.mu.RLock()
	if addr, ok := d.atas[key]; ok {
		d.mu.RUnlock()
		return addr, nil
	}
	d.mu.RUnlock()

	addr, err := AssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}

	d.mu.Lock()
	d.atas[key] = addr
	d.mu.Unlock()
	return addr, nil
}

// GlobalState returns the memoized router state address.
func (d *Deriver) GlobalState(routerProgramID solana.PublicKey, seed string) (solana.PublicKey, error) {
	key := strings.Join([]string{routerProgramID.String(), seed}, "/")

	d.mu.RLock()
	if addr, ok := d.states[key]; ok {
		d.mu.RUnlock()
		return addr, nil
	}
	d.mu.RUnlock()

	addr, err := GlobalStateAddress(routerProgramID, seed)
	if err != nil {
		return solana.PublicKey{}, err
	}

	d.mu.Lock()
	d.states[key] = addr
	d.mu.Unlock()
	return addr, nil
}
