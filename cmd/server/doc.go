// Package main is the entry point for the reasoning service.
//
// The service answers queries through multi-path reasoning and validates
// answer stability by Monte Carlo sampling, calling an OpenAI-compatible or
// Ollama backend through a rate limiter, a retry policy and a circuit
// breaker.
//
// Configuration:
//   - Environment variables (12-factor)
//   - Optional YAML file (-config or REASONER_CONFIG_FILE)
//   - CLI flags (override both)
//
// Usage:
//
//	# Production mode
//	./server -config reasoner.yaml -port 8000
//
//	# Development mode (console logs, debug level)
//	./server -dev -provider ollama
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
