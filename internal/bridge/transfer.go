// internal/bridge/transfer.go
package bridge

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/rovshanmuradov/swap-router/internal/blockchain"
	"github.com/rovshanmuradov/swap-router/internal/layout"
	"github.com/rovshanmuradov/swap-router/internal/types"
)

// Token bridge opcodes.
const (
	InstructionTransferWrapped uint8 = 4
	InstructionTransferNative  uint8 = 5
)

// TransferParams describes one outbound token bridge transfer.
type TransferParams struct {
	Payer solana.PublicKey
	// From is the payer's token account holding Mint.
	From   solana.PublicKey
	Mint   solana.PublicKey
	Amount uint64
	// RelayerFee is paid out of Amount on the target chain.
	RelayerFee uint64
	Nonce      uint32

	TargetChain   ChainID
	TargetAddress Address32

	// OriginChain/OriginAddress identify a wrapped asset. OriginChain
	// Solana (or zero) selects transfer_native.
	OriginChain   ChainID
	OriginAddress Address32

	// MessageFee is the core bridge fee in lamports, sent to the fee collector.
	MessageFee uint64
}

func (p TransferParams) validate() error {
	var errs []error
	if p.Payer.IsZero() || p.From.IsZero() || p.Mint.IsZero() {
		errs = append(errs, errors.New("payer, source account and mint are required"))
	}
	if p.Amount == 0 {
		errs = append(errs, errors.New("amount must be positive"))
	}
	if p.RelayerFee > p.Amount {
		errs = append(errs, fmt.Errorf("relayer fee %d exceeds amount %d: %w", p.RelayerFee, p.Amount, types.ErrRange))
	}
	if p.TargetChain == 0 || p.TargetChain == ChainSolana {
		errs = append(errs, fmt.Errorf("target chain %s: %w", p.TargetChain, types.ErrUnsupported))
	}
	if p.TargetAddress == (Address32{}) {
		errs = append(errs, errors.New("target address is required"))
	}
	return errors.Join(errs...)
}

func (p TransferParams) wrapped() bool {
	return p.OriginChain != 0 && p.OriginChain != ChainSolana
}

// TokenBridge builds Wormhole token bridge instructions.
type TokenBridge struct {
	programs Programs
	accounts accounts
}

func NewTokenBridge(programs Programs) *TokenBridge {
	return &TokenBridge{programs: programs}
}

func (b *TokenBridge) Programs() Programs { return b.programs }

// TransferOut returns the instructions of an outbound transfer and the fresh
// message keypair that must co-sign them. The list is: message fee (when
// non-zero), SPL approve of the bridge authority, then transfer_wrapped or
// transfer_native.
func (b *TokenBridge) TransferOut(p TransferParams) ([]solana.Instruction, solana.PrivateKey, error) {
	if err := p.validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid bridge transfer: %w", err)
	}
	if err := b.accounts.load(b.programs); err != nil {
		return nil, nil, err
	}
	message, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate message key: %w", err)
	}

	opcode := InstructionTransferNative
	if p.wrapped() {
		opcode = InstructionTransferWrapped
	}
	data, err := layout.Encode(layout.Record{
		"instruction":   opcode,
		"nonce":         p.Nonce,
		"amount":        p.Amount,
		"fee":           p.RelayerFee,
		"targetAddress": [32]byte(p.TargetAddress),
		"targetChain":   uint16(p.TargetChain),
	}, layout.BridgeTransferSchema)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode bridge transfer: %w", err)
	}

	var keys solana.AccountMetaSlice
	if p.wrapped() {
		keys, err = b.wrappedKeys(p, message.PublicKey())
	} else {
		keys, err = b.nativeKeys(p, message.PublicKey())
	}
	if err != nil {
		return nil, nil, err
	}

	var ixs []solana.Instruction
	if p.MessageFee > 0 {
		ixs = append(ixs, system.NewTransferInstruction(p.MessageFee, p.Payer, b.accounts.feeCollector).Build())
	}
	ixs = append(ixs,
		token.NewApproveInstruction(p.Amount, p.From, b.accounts.authoritySigner, p.Payer, nil).Build(),
		solana.NewInstruction(b.programs.TokenBridge, keys, data),
	)
	return ixs, message, nil
}

func (b *TokenBridge) wrappedKeys(p TransferParams, message solana.PublicKey) (solana.AccountMetaSlice, error) {
	wrappedMint, err := WrappedMint(b.programs.TokenBridge, p.OriginChain, p.OriginAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to derive wrapped mint: %w", err)
	}
	if !wrappedMint.Equals(p.Mint) {
		return nil, &types.VerificationError{What: "wrapped mint", Expected: wrappedMint, Got: p.Mint}
	}
	meta, err := wrappedMeta(b.programs.TokenBridge, wrappedMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive wrapped meta: %w", err)
	}
	a := &b.accounts
	keys := solana.AccountMetaSlice{
		solana.NewAccountMeta(p.Payer, true, true),
		solana.NewAccountMeta(a.config, false, false),
		solana.NewAccountMeta(p.From, true, false),
		solana.NewAccountMeta(p.Payer, false, true),
		solana.NewAccountMeta(wrappedMint, true, false),
		solana.NewAccountMeta(meta, false, false),
		solana.NewAccountMeta(a.authoritySigner, false, false),
	}
	return append(keys, b.messageKeys(message)...), nil
}

func (b *TokenBridge) nativeKeys(p TransferParams, message solana.PublicKey) (solana.AccountMetaSlice, error) {
	custodyAccount, err := custody(b.programs.TokenBridge, p.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive custody: %w", err)
	}
	a := &b.accounts
	keys := solana.AccountMetaSlice{
		solana.NewAccountMeta(p.Payer, true, true),
		solana.NewAccountMeta(a.config, false, false),
		solana.NewAccountMeta(p.From, true, false),
		solana.NewAccountMeta(p.Mint, true, false),
		solana.NewAccountMeta(custodyAccount, true, false),
		solana.NewAccountMeta(a.authoritySigner, false, false),
		solana.NewAccountMeta(a.custodySigner, false, false),
	}
	return append(keys, b.messageKeys(message)...), nil
}

// messageKeys is the shared tail: core bridge accounts, sysvars and programs.
func (b *TokenBridge) messageKeys(message solana.PublicKey) solana.AccountMetaSlice {
	a := &b.accounts
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(a.bridgeConfig, true, false),
		solana.NewAccountMeta(message, true, true),
		solana.NewAccountMeta(a.emitter, false, false),
		solana.NewAccountMeta(a.sequence, true, false),
		solana.NewAccountMeta(a.feeCollector, true, false),
		solana.NewAccountMeta(solana.SysVarClockPubkey, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(b.programs.Core, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}
}

// MessageFee reads the current per-message fee from the core bridge state.
func (b *TokenBridge) MessageFee(ctx context.Context, client blockchain.Client) (uint64, error) {
	if err := b.accounts.load(b.programs); err != nil {
		return 0, err
	}
	info, err := client.GetAccountInfo(ctx, b.accounts.bridgeConfig)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch core bridge state: %w", err)
	}
	if info == nil || info.Value == nil {
		return 0, fmt.Errorf("core bridge state: %w", types.ErrNotFound)
	}
	rec, err := layout.Decode(info.Value.Data.GetBinary(), layout.CoreBridgeSchema)
	if err != nil {
		return 0, err
	}
	return rec.Uint("fee")
}

var sequenceRe = regexp.MustCompile(`Sequence: (\d+)`)

// ParseSequence extracts the message sequence the core bridge logs.
func ParseSequence(logs []string) (uint64, error) {
	for _, l := range logs {
		if m := sequenceRe.FindStringSubmatch(l); m != nil {
			seq, err := strconv.ParseUint(m[1], 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid sequence %q: %w", m[1], err)
			}
			return seq, nil
		}
	}
	return 0, fmt.Errorf("sequence log: %w", types.ErrNotFound)
}
