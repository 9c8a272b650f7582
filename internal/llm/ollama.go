package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/resilience"
	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	opOllama           = "ollama.generate"
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.1"
)

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// Ollama generates text through an Ollama /api/generate endpoint
type Ollama struct {
	client *resty.Client
	model  string
	logger *zap.Logger
}

// NewOllama creates an Ollama adapter from cfg
func NewOllama(cfg Config, logger *zap.Logger) *Ollama {
	if logger == nil {
		logger = zap.NewNop()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "AgentOS-Reasoner/1.0")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	client.JSONMarshal = sonic.Marshal
	client.JSONUnmarshal = sonic.Unmarshal

	return &Ollama{
		client: client,
		model:  model,
		logger: logger.Named("llm.ollama"),
	}
}

// Generate implements Generator
func (o *Ollama) Generate(ctx context.Context, prompt string, params SamplingParams) (string, error) {
	var (
		out    ollamaResponse
		apiErr ollamaError
	)

	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(ollamaRequest{
			Model:  o.model,
			Prompt: prompt,
			Options: ollamaOptions{
				Temperature: params.Temperature,
				NumPredict:  params.MaxTokens,
			},
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/generate")
	if err != nil {
		o.logger.Debug("Generate request failed", zap.String("model", o.model), zap.Error(err))
		return "", classifyTransport(ctx, err)
	}

	if resp.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = resp.Status()
		}
		o.logger.Debug("Generate returned error status",
			zap.String("model", o.model),
			zap.Int("status", resp.StatusCode()),
			zap.String("error", msg),
		)
		return "", resilience.FromStatus(opOllama, resp.StatusCode(), errors.New(msg))
	}

	return out.Response, nil
}

// classifyTransport separates transport errors worth retrying from ones that
// will fail identically every time (bad scheme, TLS verification, redirects).
func classifyTransport(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	retry, _ := retryablehttp.DefaultRetryPolicy(ctx, nil, err)
	if !retry {
		return resilience.Permanent(opOllama, err)
	}
	return resilience.Transient(opOllama, fmt.Errorf("transport: %w", err))
}
