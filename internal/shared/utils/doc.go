// Package utils provides input validation for API requests: payload size,
// context nesting, string length and identifier checks.
package utils
