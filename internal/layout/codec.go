// internal/layout/codec.go
package layout

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/swap-router/internal/types"
)

// Kind is the wire interpretation of a field.
type Kind uint8

const (
	U8 Kind = iota + 1
	U16
	U32
	U64
	Bool
	PubKey
	Bytes32
)

// Width returns the fixed byte width of the kind.
func (k Kind) Width() int {
	switch k {
	case U8, Bool:
		return 1
	case U16:
		return 2
	case U32:
		return 4
	case U64:
		return 8
	case PubKey, Bytes32:
		return 32
	default:
		return 0
	}
}

func (k Kind) String() string {
	switch k {
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case Bool:
		return "bool"
	case PubKey:
		return "pubkey"
	case Bytes32:
		return "bytes32"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Field is one named fixed-width slot.
type Field struct {
	Name string
	Kind Kind
}

// Schema is an ordered field list. All numeric fields are little-endian.
type Schema struct {
	Name   string
	Fields []Field
}

// NewSchema builds a schema and panics on duplicate or unknown fields:
// schemas are package-level constants, a bad one is a programming error.
func NewSchema(name string, fields ...Field) Schema {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Kind.Width() == 0 {
			panic(fmt.Sprintf("layout %s: field %q has unknown kind", name, f.Name))
		}
		if _, dup := seen[f.Name]; dup {
			panic(fmt.Sprintf("layout %s: duplicate field %q", name, f.Name))
		}
		seen[f.Name] = struct{}{}
	}
	return Schema{Name: name, Fields: fields}
}

// Size returns the encoded length in bytes.
func (s Schema) Size() int {
	n := 0
	for _, f := range s.Fields {
		n += f.Kind.Width()
	}
	return n
}

// Offset returns the byte offset of the named field, or -1.
func (s Schema) Offset(name string) int {
	off := 0
	for _, f := range s.Fields {
		if f.Name == name {
			return off
		}
		off += f.Kind.Width()
	}
	return -1
}

// RangeError reports a value that does not fit its declared width.
type RangeError struct {
	Schema string
	Field  string
	Kind   Kind
	Value  interface{}
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("layout %s: field %q (%s) cannot hold %v", e.Schema, e.Field, e.Kind, e.Value)
}

func (e *RangeError) Is(target error) bool {
	return target == types.ErrRange
}

// Encode serializes rec according to s. Every field must be present.
// On error no buffer is returned.
func Encode(rec Record, s Schema) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(s.Size())
	enc := bin.NewBinEncoder(buf)

	for _, f := range s.Fields {
		v, ok := rec[f.Name]
		if !ok {
			return nil, fmt.Errorf("layout %s: missing field %q", s.Name, f.Name)
		}
		if err := encodeField(enc, s, f, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodeField(enc *bin.Encoder, s Schema, f Field, v interface{}) error {
	rangeErr := &RangeError{Schema: s.Name, Field: f.Name, Kind: f.Kind, Value: v}

	switch f.Kind {
	case U8, U16, U32, U64:
		n, ok := toUint64(v)
		if !ok || n > maxFor(f.Kind) {
			return rangeErr
		}
		switch f.Kind {
		case U8:
			return enc.WriteUint8(uint8(n))
		case U16:
			return enc.WriteUint16(uint16(n), bin.LE)
		case U32:
			return enc.WriteUint32(uint32(n), bin.LE)
		default:
			return enc.WriteUint64(n, bin.LE)
		}
	case Bool:
		b, ok := v.(bool)
		if !ok {
			return rangeErr
		}
		return enc.WriteBool(b)
	case PubKey:
		pk, ok := v.(solana.PublicKey)
		if !ok {
			return fmt.Errorf("layout %s: field %q expects solana.PublicKey, got %T", s.Name, f.Name, v)
		}
		return enc.WriteBytes(pk[:], false)
	case Bytes32:
		b, ok := v.([32]byte)
		if !ok {
			return fmt.Errorf("layout %s: field %q expects [32]byte, got %T", s.Name, f.Name, v)
		}
		return enc.WriteBytes(b[:], false)
	}
	return fmt.Errorf("layout %s: field %q has unknown kind", s.Name, f.Name)
}

// Decode parses the first s.Size() bytes of data. Trailing bytes are ignored,
// so account data with padding decodes against a prefix schema.
func Decode(data []byte, s Schema) (Record, error) {
	if len(data) < s.Size() {
		return nil, fmt.Errorf("layout %s: need %d bytes, got %d", s.Name, s.Size(), len(data))
	}
	dec := bin.NewBinDecoder(data)
	rec := make(Record, len(s.Fields))

	for _, f := range s.Fields {
		var (
			v   interface{}
			err error
		)
		switch f.Kind {
		case U8:
			var n uint8
			n, err = dec.ReadUint8()
			v = uint64(n)
		case U16:
			var n uint16
			n, err = dec.ReadUint16(bin.LE)
			v = uint64(n)
		case U32:
			var n uint32
			n, err = dec.ReadUint32(bin.LE)
			v = uint64(n)
		case U64:
			v, err = dec.ReadUint64(bin.LE)
		case Bool:
			var b uint8
			b, err = dec.ReadUint8()
			v = b != 0
		case PubKey:
			var raw []byte
			raw, err = dec.ReadNBytes(32)
			v = solana.PublicKeyFromBytes(raw)
		case Bytes32:
			var raw []byte
			raw, err = dec.ReadNBytes(32)
			var b [32]byte
			copy(b[:], raw)
			v = b
		}
		if err != nil {
			return nil, fmt.Errorf("layout %s: decode %q: %w", s.Name, f.Name, err)
		}
		rec[f.Name] = v
	}
	return rec, nil
}

func maxFor(k Kind) uint64 {
	switch k {
	case U8:
		return 1<<8 - 1
	case U16:
		return 1<<16 - 1
	case U32:
		return 1<<32 - 1
	default:
		return 1<<64 - 1
	}
}

func toUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case uint32:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint:
		return uint64(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	}
	return 0, false
}
