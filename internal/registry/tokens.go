// internal/registry/tokens.go
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/swap-router/internal/types"
)

// Token is a known SPL token.
type Token struct {
	Symbol   string           `json:"symbol"`
	Mint     solana.PublicKey `json:"mint"`
	Decimals uint8            `json:"decimals"`
}

// Tokens is an immutable token lookup. The zero value is empty.
type Tokens struct {
	bySymbol map[string]Token
	byMint   map[solana.PublicKey]Token
	aliases  map[string]string
}

// NewTokens indexes list by symbol (case-insensitive) and mint.
func NewTokens(list []Token, aliases map[string]string) (Tokens, error) {
	t := Tokens{
		bySymbol: make(map[string]Token, len(list)),
		byMint:   make(map[solana.PublicKey]Token, len(list)),
		aliases:  make(map[string]string, len(aliases)),
	}
	for _, tok := range list {
		if tok.Symbol == "" || tok.Mint.IsZero() {
			return Tokens{}, fmt.Errorf("token %q: symbol and mint are required", tok.Symbol)
		}
		sym := strings.ToUpper(tok.Symbol)
		if _, dup := t.bySymbol[sym]; dup {
			return Tokens{}, fmt.Errorf("duplicate token symbol %q", tok.Symbol)
		}
		if _, dup := t.byMint[tok.Mint]; dup {
			return Tokens{}, fmt.Errorf("duplicate token mint %s", tok.Mint)
		}
		t.bySymbol[sym] = tok
		t.byMint[tok.Mint] = tok
	}
	for alias, target := range aliases {
		if _, ok := t.bySymbol[strings.ToUpper(target)]; !ok {
			return Tokens{}, fmt.Errorf("alias %q points to unknown token %q", alias, target)
		}
		t.aliases[strings.ToUpper(alias)] = strings.ToUpper(target)
	}
	return t, nil
}

// BySymbol resolves a symbol or alias.
func (t Tokens) BySymbol(symbol string) (Token, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if target, ok := t.aliases[sym]; ok {
		sym = target
	}
	tok, ok := t.bySymbol[sym]
	if !ok {
		return Token{}, fmt.Errorf("token %q: %w", symbol, types.ErrNotFound)
	}
	return tok, nil
}

func (t Tokens) ByMint(mint solana.PublicKey) (Token, error) {
	tok, ok := t.byMint[mint]
	if !ok {
		return Token{}, fmt.Errorf("token mint %s: %w", mint, types.ErrNotFound)
	}
	return tok, nil
}

// Resolve accepts a symbol, alias or base58 mint.
func (t Tokens) Resolve(s string) (Token, error) {
	if tok, err := t.BySymbol(s); err == nil {
		return tok, nil
	}
	mint, err := solana.PublicKeyFromBase58(strings.TrimSpace(s))
	if err != nil {
		return Token{}, fmt.Errorf("token %q: %w", s, types.ErrNotFound)
	}
	return t.ByMint(mint)
}

// All returns the tokens sorted by symbol.
func (t Tokens) All() []Token {
	out := make([]Token, 0, len(t.bySymbol))
	for _, tok := range t.bySymbol {
		out = append(out, tok)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (t Tokens) Len() int { return len(t.bySymbol) }
