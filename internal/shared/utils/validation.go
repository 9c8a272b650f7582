package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

// ErrInvalidInput is wrapped by every validation failure
var ErrInvalidInput = errors.New("invalid input")

// Size limits (in bytes)
const (
	MaxJSONSize    = 1 * 1024 * 1024 // 1MB - maximum request body
	MaxContextSize = 64 * 1024       // 64KB - context map size limit
)

// Structural limits
const (
	MaxQueryLength  = 8192
	MaxIDLength     = 128
	MaxContextDepth = 8
	MaxSimulations  = 1000
)

// SafeIDPattern allows alphanumeric, hyphens, underscores and dots
var SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateSize checks that a payload is within maxSize bytes
func ValidateSize(data []byte, maxSize int) error {
	if size := len(data); size > maxSize {
		return fmt.Errorf("%w: payload size %d bytes exceeds maximum %d bytes", ErrInvalidInput, size, maxSize)
	}
	return nil
}

// ValidateJSONDepth checks that decoded JSON nests at most maxDepth levels
func ValidateJSONDepth(data any, maxDepth int) error {
	return checkDepth(data, 0, maxDepth)
}

func checkDepth(data any, currentDepth int, maxDepth int) error {
	if currentDepth > maxDepth {
		return fmt.Errorf("%w: nesting depth exceeds maximum %d", ErrInvalidInput, maxDepth)
	}

	switch v := data.(type) {
	case map[string]any:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	case []any:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	}

	return nil
}

// ValidateContext bounds the size and nesting of a query context
func ValidateContext(context map[string]any) error {
	if len(context) == 0 {
		return nil
	}

	data, err := sonic.Marshal(context)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal context: %v", ErrInvalidInput, err)
	}
	if err := ValidateSize(data, MaxContextSize); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return ValidateJSONDepth(map[string]any(context), MaxContextDepth)
}

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, maxLen int, required bool) error {
	if strings.TrimSpace(value) == "" {
		if required {
			return fmt.Errorf("%w: %s is required", ErrInvalidInput, fieldName)
		}
		return nil
	}

	if utf8.RuneCountInString(value) > maxLen {
		return fmt.Errorf("%w: %s must not exceed %d characters", ErrInvalidInput, fieldName, maxLen)
	}

	// Check for null bytes (security issue)
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%w: %s contains invalid characters", ErrInvalidInput, fieldName)
	}

	return nil
}

// ValidateID validates an identifier such as a breaker name
func ValidateID(id, fieldName string) error {
	if err := ValidateString(id, fieldName, MaxIDLength, true); err != nil {
		return err
	}
	if !SafeIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %s contains invalid characters", ErrInvalidInput, fieldName)
	}
	return nil
}
