// Package http exposes the reasoning and validation operations over a JSON
// API, along with breaker inspection and reset.
//
// Routes:
//   - GET  /, /health
//   - POST /v1/reason     {query, context}
//   - POST /v1/validate   {query, context, num_simulations, min_consistency}
//   - GET  /v1/breakers
//   - POST /v1/breakers/:name/reset
package http
