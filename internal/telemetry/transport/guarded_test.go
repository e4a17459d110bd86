package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/resilience"
)

type flakyTransport struct {
	calls    int
	err      error
	shutdown bool
}

func (f *flakyTransport) Export(context.Context, []int) error {
	f.calls++
	return f.err
}

func (f *flakyTransport) Shutdown(context.Context) error {
	f.shutdown = true
	return nil
}

func TestGuardedOpensAfterFailures(t *testing.T) {
	next := &flakyTransport{err: errors.New("connection refused")}
	g := Guard[int](next, resilience.New("logs", resilience.Settings{
		Timeout: time.Minute,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 2
		},
	}))

	for i := 0; i < 2; i++ {
		assert.Error(t, g.Export(context.Background(), []int{i}))
	}
	assert.Equal(t, resilience.StateOpen, g.Breaker().State())

	err := g.Export(context.Background(), []int{3})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 2, next.calls)

	assert.NoError(t, g.Shutdown(context.Background()))
	assert.True(t, next.shutdown)
}

func TestGuardedPassesThrough(t *testing.T) {
	next := &flakyTransport{}
	g := Guard[int](next, resilience.New("spans", resilience.Settings{}))

	assert.NoError(t, g.Export(context.Background(), []int{1}))
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, resilience.StateClosed, g.Breaker().State())
}
