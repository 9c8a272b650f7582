package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/resilience"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	opOpenAI            = "openai.generate"
	defaultOpenAIModel  = "gpt-4o-mini"
	defaultSystemPrompt = "You are a careful assistant that reasons step by step."
)

// OpenAI generates text through an OpenAI-compatible chat completions API
type OpenAI struct {
	client *openai.Client
	model  string
	system string
	logger *zap.Logger
}

// NewOpenAI creates an OpenAI adapter from cfg
func NewOpenAI(cfg Config, logger *zap.Logger) *OpenAI {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	system := cfg.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		system: system,
		logger: logger.Named("llm.openai"),
	}
}

// Generate implements Generator
func (o *OpenAI) Generate(ctx context.Context, prompt string, params SamplingParams) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature:         float32(params.Temperature),
		MaxCompletionTokens: params.MaxTokens,
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		o.logger.Debug("Chat completion failed",
			zap.String("model", o.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return "", classifyOpenAI(err)
	}

	if len(resp.Choices) == 0 {
		o.logger.Warn("Chat completion returned no choices", zap.String("model", o.model))
		return "", nil
	}

	o.logger.Debug("Chat completion finished",
		zap.String("model", o.model),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAI(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return resilience.FromStatus(opOpenAI, apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return resilience.FromStatus(opOpenAI, reqErr.HTTPStatusCode, err)
	}

	return resilience.Transient(opOpenAI, err)
}
