package llm

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Supported providers
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config selects and configures a generation backend
type Config struct {
	Provider     string
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
}

// NewFromConfig builds the raw, unprotected Generator for cfg.Provider
func NewFromConfig(cfg Config, logger *zap.Logger) (Generator, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewOpenAI(cfg, logger), nil
	case ProviderOllama:
		return NewOllama(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
