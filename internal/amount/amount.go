// internal/amount/amount.go
package amount

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/rovshanmuradov/swap-router/internal/types"
)

// BpsDenominator is 100% in basis points.
const BpsDenominator = 10_000

// MaxDecimals bounds token precision; 10^MaxDecimals still fits in 256 bits comfortably.
const MaxDecimals = 30

// ToRaw converts a human decimal string ("1.5") into raw token units using
// exactly `decimals` fractional digits. Extra fractional digits are dropped
// (floor), never rounded up.
func ToRaw(human string, decimals uint8) (uint64, error) {
	if decimals > MaxDecimals {
		return 0, fmt.Errorf("decimals %d exceed %d: %w", decimals, MaxDecimals, types.ErrRange)
	}
	s := strings.TrimSpace(human)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative amount %q: %w", human, types.ErrRange)
	}
	s = strings.TrimPrefix(s, "+")

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	if !digitsOnly(intPart) || !digitsOnly(fracPart) {
		return 0, fmt.Errorf("invalid amount %q", human)
	}

	if len(fracPart) > int(decimals) {
		fracPart = fracPart[:decimals]
	}
	fracPart += strings.Repeat("0", int(decimals)-len(fracPart))

	digits := strings.TrimLeft(intPart+fracPart, "0")
	if digits == "" {
		return 0, nil
	}
	if len(digits) > 78 {
		return 0, fmt.Errorf("amount %q too large: %w", human, types.ErrRange)
	}

	v, err := uint256.FromDecimal(digits)
	if err != nil {
		return 0, fmt.Errorf("amount %q too large: %w", human, types.ErrRange)
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("amount %q does not fit in u64: %w", human, types.ErrRange)
	}
	return v.Uint64(), nil
}

// FromRaw formats raw units as a decimal string without trailing zeros.
func FromRaw(raw uint64, decimals uint8) string {
	s := fmt.Sprintf("%d", raw)
	if decimals == 0 {
		return s
	}
	d := int(decimals)
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}
	intPart, fracPart := s[:len(s)-d], strings.TrimRight(s[len(s)-d:], "0")
	if fracPart == "" {
		return intPart
	}
	return intPart + "." + fracPart
}

// MulDiv returns floor(raw * num / den) without intermediate overflow.
func MulDiv(raw, num, den uint64) (uint64, error) {
	if den == 0 {
		return 0, fmt.Errorf("zero denominator: %w", types.ErrRange)
	}
	v := new(uint256.Int).Mul(uint256.NewInt(raw), uint256.NewInt(num))
	v.Div(v, uint256.NewInt(den))
	if !v.IsUint64() {
		return 0, fmt.Errorf("%d*%d/%d overflows u64: %w", raw, num, den, types.ErrRange)
	}
	return v.Uint64(), nil
}

// DeductBps returns floor(raw * (10000 - bps) / 10000).
func DeductBps(raw, bps uint64) (uint64, error) {
	if bps > BpsDenominator {
		return 0, fmt.Errorf("bps %d exceeds %d: %w", bps, BpsDenominator, types.ErrRange)
	}
	return MulDiv(raw, BpsDenominator-bps, BpsDenominator)
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
