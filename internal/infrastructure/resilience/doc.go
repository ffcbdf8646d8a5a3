/*
Package resilience provides a circuit breaker for calls to the daemon.

The status client runs every HTTP request through a Breaker so that a
daemon that is down or failing is not hammered: after ReadyToTrip says so the
breaker opens and calls fail fast with ErrCircuitOpen until Timeout passes;
then MaxRequests trial calls decide whether it closes again.

# Usage

	breaker := resilience.New("status", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, status.ErrNotFound)
		},
	})

	pools, err := resilience.Do(breaker, func() ([]types.Pool, error) {
		return fetchPools(ctx)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                          Open
*/
package resilience
