package transport

import (
	"context"

	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/export"
)

// Guarded fails batches fast while its breaker is open.
type Guarded[T any] struct {
	next    export.Transport[T]
	breaker *resilience.Breaker
}

// Guard wraps next with breaker.
func Guard[T any](next export.Transport[T], breaker *resilience.Breaker) *Guarded[T] {
	return &Guarded[T]{next: next, breaker: breaker}
}

// Export forwards batch unless the breaker rejects it.
func (g *Guarded[T]) Export(ctx context.Context, batch []T) error {
	return g.breaker.Do(ctx, func(ctx context.Context) error {
		return g.next.Export(ctx, batch)
	})
}

// Shutdown always reaches the wrapped transport.
func (g *Guarded[T]) Shutdown(ctx context.Context) error {
	return g.next.Shutdown(ctx)
}

// Breaker returns the guarding breaker.
func (g *Guarded[T]) Breaker() *resilience.Breaker {
	return g.breaker
}
