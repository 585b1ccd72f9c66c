// internal/bridge/accounts.go
package bridge

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/swap-router/internal/derive"
)

var (
	MainnetCoreBridge  = solana.MustPublicKeyFromBase58("worm2ZoG2kUd4vFXhvjh93UUH596ayRfgQ2MgjNMTth")
	MainnetTokenBridge = solana.MustPublicKeyFromBase58("wormDTUJ6AWPNvk59vGQbDvGJmqbDTdgWgAqcLBCgUb")
)

// Programs pairs the core bridge with its token bridge.
type Programs struct {
	Core        solana.PublicKey
	TokenBridge solana.PublicKey
}

func MainnetPrograms() Programs {
	return Programs{Core: MainnetCoreBridge, TokenBridge: MainnetTokenBridge}
}

// accounts memoizes the program addresses that do not depend on the mint.
type accounts struct {
	once sync.Once
	err  error

	config          solana.PublicKey
	authoritySigner solana.PublicKey
	custodySigner   solana.PublicKey
	emitter         solana.PublicKey
	bridgeConfig    solana.PublicKey
	sequence        solana.PublicKey
	feeCollector    solana.PublicKey
}

func (a *accounts) load(p Programs) error {
	a.once.Do(func() {
		pda := func(program solana.PublicKey, seeds ...[]byte) solana.PublicKey {
			if a.err != nil {
				return solana.PublicKey{}
			}
			addr, _, err := derive.ProgramAddress(seeds, program)
			a.err = err
			return addr
		}
		a.config = pda(p.TokenBridge, []byte("config"))
		a.authoritySigner = pda(p.TokenBridge, []byte("authority_signer"))
		a.custodySigner = pda(p.TokenBridge, []byte("custody_signer"))
		a.emitter = pda(p.TokenBridge, []byte("emitter"))
		a.bridgeConfig = pda(p.Core, []byte("Bridge"))
		a.sequence = pda(p.Core, []byte("Sequence"), a.emitter[:])
		a.feeCollector = pda(p.Core, []byte("fee_collector"))
	})
	if a.err != nil {
		return fmt.Errorf("failed to derive bridge accounts: %w", a.err)
	}
	return nil
}

// WrappedMint is the Solana mint the token bridge issues for a foreign asset.
func WrappedMint(tokenBridge solana.PublicKey, origin ChainID, address Address32) (solana.PublicKey, error) {
	chain := make([]byte, 2)
	binary.BigEndian.PutUint16(chain, uint16(origin))
	addr, _, err := derive.ProgramAddress([][]byte{[]byte("wrapped"), chain, address[:]}, tokenBridge)
	return addr, err
}

func wrappedMeta(tokenBridge, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := derive.ProgramAddress([][]byte{[]byte("meta"), mint[:]}, tokenBridge)
	return addr, err
}

func custody(tokenBridge, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := derive.ProgramAddress([][]byte{mint[:]}, tokenBridge)
	return addr, err
}

// EmitterAddress returns the token bridge emitter as 32-byte hex, the form
// guardians index signed messages by.
func EmitterAddress(tokenBridge solana.PublicKey) (string, error) {
	addr, _, err := derive.ProgramAddress([][]byte{[]byte("emitter")}, tokenBridge)
	if err != nil {
		return "", fmt.Errorf("failed to derive emitter: %w", err)
	}
	return hex.EncodeToString(addr[:]), nil
}
