// internal/registry/targets.go
package registry

import (
	"fmt"
	"sort"

	"github.com/rovshanmuradov/swap-router/internal/bridge"
	"github.com/rovshanmuradov/swap-router/internal/types"
)

// BridgeTarget describes how value reaches a destination chain: the stable
// pool of the second leg, the wrapped token it yields on Solana, and that
// token's origin on the destination chain.
type BridgeTarget struct {
	Chain         bridge.ChainID   `json:"chain"`
	Pool          string           `json:"pool"`
	Token         string           `json:"token"`
	OriginChain   bridge.ChainID   `json:"originChain"`
	OriginAddress bridge.Address32 `json:"originAddress"`
}

// BridgeTargets is an immutable lookup keyed by destination chain.
type BridgeTargets struct {
	byChain map[bridge.ChainID]BridgeTarget
}

func NewBridgeTargets(list []BridgeTarget) (BridgeTargets, error) {
	t := BridgeTargets{byChain: make(map[bridge.ChainID]BridgeTarget, len(list))}
	for _, target := range list {
		if target.Chain == bridge.ChainSolana || target.Chain == 0 {
			return BridgeTargets{}, fmt.Errorf("bridge target chain %s is not a foreign chain", target.Chain)
		}
		if _, dup := t.byChain[target.Chain]; dup {
			return BridgeTargets{}, fmt.Errorf("duplicate bridge target %s", target.Chain)
		}
		if target.OriginChain == 0 {
			target.OriginChain = target.Chain
		}
		t.byChain[target.Chain] = target
	}
	return t, nil
}

func (t BridgeTargets) Get(chain bridge.ChainID) (BridgeTarget, error) {
	target, ok := t.byChain[chain]
	if !ok {
		return BridgeTarget{}, fmt.Errorf("bridge target %s: %w", chain, types.ErrUnsupported)
	}
	return target, nil
}

func (t BridgeTargets) All() []BridgeTarget {
	out := make([]BridgeTarget, 0, len(t.byChain))
	for _, target := range t.byChain {
		out = append(out, target)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chain < out[j].Chain })
	return out
}
