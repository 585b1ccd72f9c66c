// internal/venue/set.go
package venue

import (
	"fmt"

	"github.com/rovshanmuradov/swap-router/internal/types"
)

// Set binds at most one pool per Kind for a single route request.
// Serum and Orca resolve to Unsupported when not bound.
type Set map[Kind]Venue

func NewSet(venues ...Venue) (Set, error) {
	s := make(Set, len(venues))
	for _, v := range venues {
		if v == nil {
			continue
		}
		if _, dup := s[v.Kind()]; dup {
			return nil, fmt.Errorf("two %s pools in one route", v.Kind())
		}
		s[v.Kind()] = v
	}
	return s, nil
}

// Resolve returns the venue for k. Skip yields nil with no error.
func (s Set) Resolve(k Kind) (Venue, error) {
	if k == Skip {
		return nil, nil
	}
	if v, ok := s[k]; ok {
		return v, nil
	}
	switch k {
	case Serum, Orca:
		return Unsupported{Selector: k}, nil
	case Raydium, Saber, Mercurial:
		return nil, fmt.Errorf("no %s pool selected: %w", k, types.ErrNotFound)
	}
	return nil, fmt.Errorf("%s: %w", k, types.ErrUnsupported)
}
