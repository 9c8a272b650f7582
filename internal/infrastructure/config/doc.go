// Package config provides 12-factor configuration for the reasoning service.
//
// Configuration starts from Default, is overlaid by an optional YAML file
// named by REASONER_CONFIG_FILE and finally by environment variables.
//
// Configuration Sections:
//   - Server: listen address, shutdown timeout, CORS origins
//   - Logging: log level and output format
//   - RateLimit: per-IP inbound rate limiting
//   - LLM: generation backend and outbound rate
//   - Breaker, Retry: protection around every generation call
//   - Reasoning, Validation: multi-path and Monte Carlo tuning
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	breaker := resilience.New("llm", cfg.Breaker.Settings())
//
// Environment Variables:
//   - PORT, HOST, SHUTDOWN_TIMEOUT, CORS_ORIGINS
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - LLM_PROVIDER, LLM_BASE_URL, LLM_API_KEY, LLM_MODEL, LLM_TIMEOUT, LLM_RPS, LLM_BURST
//   - BREAKER_FAILURE_THRESHOLD, BREAKER_RECOVERY_TIMEOUT, BREAKER_SUCCESS_THRESHOLD, BREAKER_CALL_TIMEOUT
//   - RETRY_MAX_ATTEMPTS, RETRY_INITIAL_DELAY, RETRY_MAX_DELAY, RETRY_EXPONENTIAL_BASE, RETRY_JITTER
//   - REASONING_*, VALIDATION_*
package config
