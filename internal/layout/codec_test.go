package layout

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/swap-router/internal/types"
)

func TestSchemaSizes(t *testing.T) {
	assert.Equal(t, 81, GlobalStateSchema.Size())
	assert.Equal(t, 19, RouteSwapSchema.Size())
	assert.Equal(t, 17, UpdateStateSchema.Size())
	assert.Equal(t, 17, TokenSwapSchema.Size())
	assert.Equal(t, 55, BridgeTransferSchema.Size())
	assert.Equal(t, 72, TokenAccountSchema.Size())
	assert.Equal(t, 46, MintSchema.Size())
	assert.Equal(t, 44, MintSchema.Offset("decimals"))
	assert.Equal(t, 65, GlobalStateSchema.Offset("feeNumerator"))
	assert.Equal(t, -1, GlobalStateSchema.Offset("missing"))
}

func TestRoundTrip(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	fee := solana.NewWallet().PublicKey()
	var target [32]byte
	target[31] = 0xAB

	tests := []struct {
		name   string
		schema Schema
		rec    Record
	}{
		{
			name:   "global state",
			schema: GlobalStateSchema,
			rec: Record{
				"isInitialized":  true,
				"stateOwner":     owner,
				"feeOwner":       fee,
				"feeNumerator":   uint64(20),
				"feeDenominator": uint64(10000),
			},
		},
		{
			name:   "route swap at field limits",
			schema: RouteSwapSchema,
			rec: Record{
				"instruction": uint64(1),
				"route1":      uint64(255),
				"route2":      uint64(0),
				"amountIn":    uint64(1<<64 - 1),
				"amountOut":   uint64(0),
			},
		},
		{
			name:   "bridge transfer",
			schema: BridgeTransferSchema,
			rec: Record{
				"instruction":   uint64(4),
				"nonce":         uint64(1<<32 - 1),
				"amount":        uint64(996),
				"fee":           uint64(0),
				"targetAddress": target,
				"targetChain":   uint64(2),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := Encode(tt.rec, tt.schema)
			require.NoError(t, err)
			assert.Len(t, buf, tt.schema.Size())

			got, err := Decode(buf, tt.schema)
			require.NoError(t, err)
			assert.Equal(t, tt.rec, got)
		})
	}
}

func TestEncodeLittleEndian(t *testing.T) {
	buf, err := Encode(Record{
		"instruction":      uint64(9),
		"amountIn":         uint64(1_000_000),
		"minimumAmountOut": uint64(5),
	}, TokenSwapSchema)
	require.NoError(t, err)

	assert.Equal(t, byte(9), buf[0])
	assert.Equal(t, uint64(1_000_000), binary.LittleEndian.Uint64(buf[1:9]))
	assert.Equal(t, uint64(5), binary.LittleEndian.Uint64(buf[9:17]))
}

func TestEncodeRangeError(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value interface{}
	}{
		{"u8 overflow", "route1", uint64(256)},
		{"negative", "amountIn", -1},
		{"wrong type", "route2", "raydium"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Record{
				"instruction": uint64(1),
				"route1":      uint64(1),
				"route2":      uint64(0),
				"amountIn":    uint64(1),
				"amountOut":   uint64(1),
			}
			rec[tt.field] = tt.value

			buf, err := Encode(rec, RouteSwapSchema)
			assert.Nil(t, buf)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrRange))

			var re *RangeError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.field, re.Field)
		})
	}
}

func TestEncodeMissingField(t *testing.T) {
	_, err := Encode(Record{"instruction": uint64(0)}, UpdateStateSchema)
	assert.ErrorContains(t, err, "feeNumerator")
}

func TestDecodeShortBuffer(t *testing.T) {
	_, err := Decode(make([]byte, 80), GlobalStateSchema)
	assert.Error(t, err)
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	data := make([]byte, 165)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], 777)

	rec, err := Decode(data, TokenAccountSchema)
	require.NoError(t, err)

	gotMint, err := rec.Key("mint")
	require.NoError(t, err)
	assert.Equal(t, mint, gotMint)
	amount, err := rec.Uint("amount")
	require.NoError(t, err)
	assert.Equal(t, uint64(777), amount)
}

func TestNewSchemaPanicsOnDuplicate(t *testing.T) {
	assert.Panics(t, func() {
		NewSchema("dup", Field{"a", U8}, Field{"a", U64})
	})
}
