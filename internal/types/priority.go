// internal/types/priority.go
package types

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

type PriorityLevel string

const (
	PriorityNone    PriorityLevel = "none"
	PriorityLow     PriorityLevel = "low"
	PriorityMedium  PriorityLevel = "medium"
	PriorityHigh    PriorityLevel = "high"
	PriorityExtreme PriorityLevel = "extreme"
)

// PriorityProfile задаёт compute budget для транзакций роутера.
type PriorityProfile struct {
	ComputeUnits uint32 // лимит вычислительных единиц
	UnitPrice    uint64 // цена в micro-lamports за единицу
}

var priorityProfiles = map[PriorityLevel]PriorityProfile{
	PriorityNone:    {},
	PriorityLow:     {ComputeUnits: 200_000, UnitPrice: 1_000},
	PriorityMedium:  {ComputeUnits: 400_000, UnitPrice: 5_000},
	PriorityHigh:    {ComputeUnits: 800_000, UnitPrice: 10_000},
	PriorityExtreme: {ComputeUnits: 1_000_000, UnitPrice: 50_000},
}

// ProfileFor возвращает профиль для уровня приоритета.
func ProfileFor(level PriorityLevel) (PriorityProfile, error) {
	if level == "" {
		return PriorityProfile{}, nil
	}
	p, ok := priorityProfiles[level]
	if !ok {
		return PriorityProfile{}, fmt.Errorf("unknown priority level: %s", level)
	}
	return p, nil
}

// Instructions строит инструкции compute budget. Пустой профиль даёт nil.
func (p PriorityProfile) Instructions() []solana.Instruction {
	var instructions []solana.Instruction
	if p.ComputeUnits > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitLimitInstruction(p.ComputeUnits).Build())
	}
	if p.UnitPrice > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitPriceInstruction(p.UnitPrice).Build())
	}
	return instructions
}
