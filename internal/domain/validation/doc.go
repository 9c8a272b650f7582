/*
Package validation estimates how stable a model's answer to a query is by
Monte Carlo sampling.

The validator issues many independent generations at a high temperature and
measures how often they agree:

	consistency = max(0, 1 - distinct/total)       (scaled by total/10 below 10 samples)
	confidence  = consistency * (0.7 + 0.3*min(1, total/100))
	variance    = min(1, stdev(len)/mean(len))

A result is validated when consistency reaches the requested minimum. When no
simulation succeeds the result is degenerate: zero consistency and confidence,
variance 1, not validated.
*/
package validation
