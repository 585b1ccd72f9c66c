// internal/registry/registry.go
package registry

import (
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/rovshanmuradov/swap-router/internal/bridge"
	"github.com/rovshanmuradov/swap-router/internal/venue"
)

// Registry bundles the token, pool and bridge-target lookups. It is built
// once at startup and never mutated; feeds extend it through WithPools.
type Registry struct {
	Tokens  Tokens
	Pools   Pools
	Targets BridgeTargets
}

// New cross-checks that every bridge target names a registered pool and token.
func New(tokens Tokens, pools Pools, targets BridgeTargets) (*Registry, error) {
	r := &Registry{Tokens: tokens, Pools: pools, Targets: targets}
	for _, t := range targets.All() {
		if _, err := pools.Get(t.Pool); err != nil {
			return nil, fmt.Errorf("bridge target %s: %w", t.Chain, err)
		}
		if _, err := tokens.BySymbol(t.Token); err != nil {
			return nil, fmt.Errorf("bridge target %s: %w", t.Chain, err)
		}
	}
	return r, nil
}

// Default returns the built-in mainnet registry.
func Default() (*Registry, error) {
	return build(defaultTokens(), defaultAliases(), defaultPools(), defaultTargets())
}

func build(tokens []Token, aliases map[string]string, pools []venue.Venue, targets []BridgeTarget) (*Registry, error) {
	tk, err := NewTokens(tokens, aliases)
	if err != nil {
		return nil, fmt.Errorf("failed to build token registry: %w", err)
	}
	pl, err := NewPools(pools...)
	if err != nil {
		return nil, fmt.Errorf("failed to build pool registry: %w", err)
	}
	tg, err := NewBridgeTargets(targets)
	if err != nil {
		return nil, fmt.Errorf("failed to build bridge targets: %w", err)
	}
	return New(tk, pl, tg)
}

// WithPools returns a copy of r with extra venues registered.
func (r *Registry) WithPools(vs ...venue.Venue) (*Registry, error) {
	pools, err := r.Pools.With(vs...)
	if err != nil {
		return nil, err
	}
	return &Registry{Tokens: r.Tokens, Pools: pools, Targets: r.Targets}, nil
}

// File is the on-disk registry overlay.
type File struct {
	Tokens         []Token                `json:"tokens"`
	Aliases        map[string]string      `json:"aliases"`
	RaydiumPools   []*venue.RaydiumPool   `json:"raydiumPools"`
	SaberPools     []*venue.SaberPool     `json:"saberPools"`
	MercurialPools []*venue.MercurialPool `json:"mercurialPools"`
	BridgeTargets  []BridgeTarget         `json:"bridgeTargets"`
}

// Load reads a registry file and merges it over the built-in defaults.
// Entries in the file replace defaults with the same symbol, pool name or chain.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}
	return Parse(data)
}

// Parse is Load without the file read.
func Parse(data []byte) (*Registry, error) {
	var f File
	if err := sonic.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse registry file: %w", err)
	}
	return f.merge()
}

func (f *File) merge() (*Registry, error) {
	tokens := mergeBy(defaultTokens(), f.Tokens, func(t Token) string { return strings.ToUpper(t.Symbol) })

	aliases := defaultAliases()
	for k, v := range f.Aliases {
		aliases[k] = v
	}

	var extra []venue.Venue
	for _, p := range f.RaydiumPools {
		extra = append(extra, p)
	}
	for _, p := range f.SaberPools {
		extra = append(extra, p)
	}
	for _, p := range f.MercurialPools {
		extra = append(extra, p)
	}
	for _, v := range extra {
		if err := validateVenue(v); err != nil {
			return nil, err
		}
	}
	pools := mergeBy(defaultPools(), extra, func(v venue.Venue) string { return v.Name() })

	targets := mergeBy(defaultTargets(), f.BridgeTargets, func(t BridgeTarget) string {
		return t.Chain.String()
	})
	return build(tokens, aliases, pools, targets)
}

type validator interface {
	Validate() error
}

func validateVenue(v venue.Venue) error {
	if val, ok := v.(validator); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("invalid pool in registry file: %w", err)
		}
	}
	return nil
}

// mergeBy keeps base order, replacing entries overridden by over and
// appending new ones.
func mergeBy[T any](base, over []T, key func(T) string) []T {
	idx := make(map[string]int, len(base))
	out := make([]T, 0, len(base)+len(over))
	for _, b := range base {
		idx[key(b)] = len(out)
		out = append(out, b)
	}
	for _, o := range over {
		if i, ok := idx[key(o)]; ok {
			out[i] = o
			continue
		}
		idx[key(o)] = len(out)
		out = append(out, o)
	}
	return out
}

// TargetFor resolves the bridge target and its pool and token in one go.
func (r *Registry) TargetFor(chain bridge.ChainID) (BridgeTarget, venue.Venue, Token, error) {
	t, err := r.Targets.Get(chain)
	if err != nil {
		return BridgeTarget{}, nil, Token{}, err
	}
	v, err := r.Pools.Get(t.Pool)
	if err != nil {
		return BridgeTarget{}, nil, Token{}, err
	}
	tok, err := r.Tokens.BySymbol(t.Token)
	if err != nil {
		return BridgeTarget{}, nil, Token{}, err
	}
	return t, v, tok, nil
}
