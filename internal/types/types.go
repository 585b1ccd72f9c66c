// internal/types/types.go
package types

import (
	"context"
)

// Span is one timed unit of work.
type Span interface {
	// End closes the span; err is nil on success.
	End(err error)
}

// Observer starts spans around I/O-bound steps (preparation, submission, attestation).
// Business logic never logs timings itself.
type Observer interface {
	Start(ctx context.Context, name string) (context.Context, Span)
}

// NopObserver discards all spans.
type NopObserver struct{}

type nopSpan struct{}

func (nopSpan) End(error) {}

func (NopObserver) Start(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, nopSpan{}
}

// MultiObserver fans spans out to several observers.
type MultiObserver []Observer

type multiSpan []Span

func (m multiSpan) End(err error) {
	for _, s := range m {
		s.End(err)
	}
}

func (m MultiObserver) Start(ctx context.Context, name string) (context.Context, Span) {
	spans := make(multiSpan, 0, len(m))
	for _, o := range m {
		var s Span
		ctx, s = o.Start(ctx, name)
		spans = append(spans, s)
	}
	return ctx, spans
}

// OrNop returns o, or NopObserver when o is nil.
func OrNop(o Observer) Observer {
	if o == nil {
		return NopObserver{}
	}
	return o
}
