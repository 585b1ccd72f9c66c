// internal/registry/pools.go
package registry

import (
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/swap-router/internal/types"
	"github.com/rovshanmuradov/swap-router/internal/venue"
)

// Pools is an immutable venue lookup keyed by pool name.
type Pools struct {
	byName map[string]venue.Venue
}

// NewPools validates names are unique.
func NewPools(venues ...venue.Venue) (Pools, error) {
	return Pools{}.With(venues...)
}

// With returns a new Pools holding p's venues plus venues. p is not modified.
func (p Pools) With(venues ...venue.Venue) (Pools, error) {
	next := Pools{byName: make(map[string]venue.Venue, len(p.byName)+len(venues))}
	for name, v := range p.byName {
		next.byName[name] = v
	}
	for _, v := range venues {
		if v == nil {
			continue
		}
		name := v.Name()
		if _, dup := next.byName[name]; dup {
			return Pools{}, fmt.Errorf("duplicate pool %q", name)
		}
		next.byName[name] = v
	}
	return next, nil
}

func (p Pools) Get(name string) (venue.Venue, error) {
	v, ok := p.byName[name]
	if !ok {
		return nil, fmt.Errorf("pool %q: %w", name, types.ErrNotFound)
	}
	return v, nil
}

// Names returns pool names sorted.
func (p Pools) Names() []string {
	out := make([]string, 0, len(p.byName))
	for name := range p.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// OfKind returns the venues of kind k sorted by name.
func (p Pools) OfKind(k venue.Kind) []venue.Venue {
	var out []venue.Venue
	for _, name := range p.Names() {
		if v := p.byName[name]; v.Kind() == k {
			out = append(out, v)
		}
	}
	return out
}

func (p Pools) Len() int { return len(p.byName) }

type pairVenue interface {
	Trades(a, b solana.PublicKey) bool
}

// FindPair returns the first pool of kind k (by name) trading a and b.
func (p Pools) FindPair(k venue.Kind, a, b solana.PublicKey) (venue.Venue, error) {
	for _, v := range p.OfKind(k) {
		if pv, ok := v.(pairVenue); ok && pv.Trades(a, b) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%s pool for %s/%s: %w", k, a, b, types.ErrNotFound)
}
