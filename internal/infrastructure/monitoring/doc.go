/*
Package monitoring provides Prometheus metrics for the reasoner.

# Overview

Metrics are registered on an injected registry rather than the global one.
They cover HTTP traffic, circuit breakers, protected generation calls,
reasoning path fan-out and Monte Carlo validation.

# Usage

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	// Feed breaker transitions and outcomes
	settings = metrics.ObserveBreakers(settings)

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Time operations
	timer := monitoring.NewTimer(metrics, "reasoning", "reason")
	// ... perform operation ...
	timer.Stop("success")
*/
package monitoring
