// internal/types/slippage.go
package types

import (
	"fmt"

	"github.com/holiman/uint256"
)

// SlippageType определяет политику минимального выхода для второго шага маршрута.
type SlippageType string

const (
	// SlippageBps: minOut = floor(expected * (10000 - bps) / 10000)
	SlippageBps SlippageType = "bps"
	// SlippageFixed: minOut задаётся явно в сырых единицах
	SlippageFixed SlippageType = "fixed"
	// SlippageNone: без ограничения (minOut = 0)
	SlippageNone SlippageType = "none"
)

// SlippageConfig конфигурирует политику проскальзывания.
type SlippageConfig struct {
	Type SlippageType `mapstructure:"type" json:"type"`
	// Bps используется для SlippageBps, Fixed для SlippageFixed.
	Bps   uint64 `mapstructure:"bps" json:"bps"`
	Fixed uint64 `mapstructure:"fixed" json:"fixed"`
}

// Validate проверяет корректность конфигурации.
func (c SlippageConfig) Validate() error {
	switch c.Type {
	case SlippageBps:
		if c.Bps > 10000 {
			return fmt.Errorf("slippage bps %d exceeds 10000: %w", c.Bps, ErrRange)
		}
	case SlippageFixed, SlippageNone:
	default:
		return fmt.Errorf("unknown slippage type %q", c.Type)
	}
	return nil
}

// MinAmountOut вычисляет минимальный выход в сырых единицах, округляя вниз.
func (c SlippageConfig) MinAmountOut(expected uint64) (uint64, error) {
	switch c.Type {
	case SlippageBps:
		if c.Bps > 10000 {
			return 0, fmt.Errorf("slippage bps %d exceeds 10000: %w", c.Bps, ErrRange)
		}
		v := new(uint256.Int).Mul(uint256.NewInt(expected), uint256.NewInt(10000-c.Bps))
		v.Div(v, uint256.NewInt(10000))
		return v.Uint64(), nil
	case SlippageFixed:
		return c.Fixed, nil
	case SlippageNone:
		return 0, nil
	default:
		return 0, fmt.Errorf("unknown slippage type %q", c.Type)
	}
}
