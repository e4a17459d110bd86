/*
Package resilience guards remote telemetry transports with a circuit breaker.

A collector that is down makes every export wait out its full timeout. Once the
breaker trips, exports fail immediately with ErrCircuitOpen and the batch is
discarded, until the open period elapses and a probe is let through.

# Usage

	breaker := resilience.New("spans", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	err := breaker.Do(ctx, func(ctx context.Context) error {
		return client.Upload(ctx, batch)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
