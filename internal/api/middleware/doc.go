// Package middleware provides the gin middleware stack of the HTTP API:
// CORS, per-IP rate limiting, request IDs and request logging.
package middleware
