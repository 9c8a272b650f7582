/*
Package resilience provides the circuit breaker and retry policy that protect
every outbound call to a remote dependency.

# Overview

A Breaker isolates one dependency behind a three-state machine; a Policy
decides how long to wait between attempts and whether an error may be retried
at all. The two are independent values and are composed explicitly.

# Features

- Three-state circuit breaker (Closed, Open, Half-Open)
- Hard per-call timeout, counted as a failure
- Optional fallback while the circuit is open
- Exponential backoff with optional jitter in [0.5, 1.5)
- Typed failure kinds (transient, permanent, circuit open, timeout)
- Registry owned by the composition root, one breaker per dependency

# Usage

	breaker := resilience.New("llm", resilience.Settings{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 2,
		CallTimeout:      30 * time.Second,
	})

	text, err := resilience.Do(ctx, resilience.DefaultPolicy(), breaker,
		func(ctx context.Context) (string, error) {
			return client.Generate(ctx, prompt, params)
		})

	switch resilience.KindOf(err) {
	case resilience.KindPermanent:
		// bad request, do not try again
	case resilience.KindCircuitOpen:
		// dependency is isolated, degrade
	}

# States

	Closed --[failures >= FailureThreshold]-> Open --[RecoveryTimeout]-> Half-Open --[successes >= SuccessThreshold]-> Closed
	                                                                         |
	                                                                     [failure]
	                                                                         |
	                                                                         v
	                                                                        Open
*/
package resilience
