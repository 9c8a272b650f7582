// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: colored console output
//
// Components receive a named *zap.Logger ("breaker", "reasoning.generator",
// "validation", ...) so every line carries its origin.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	breakers := resilience.NewRegistry(settings, logger.Component("resilience"))
//	logger.Info("Server starting", zap.String("port", "8000"))
package logging
