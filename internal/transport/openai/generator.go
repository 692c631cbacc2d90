package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/quizgen/internal/domain"
	"github.com/kailas-cloud/quizgen/internal/metrics"
)

// GeneratorConfig holds the generation provider settings.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Logger      *zap.Logger
}

// Generator produces text through the OpenAI-compatible chat completions
// API.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewGenerator creates an OpenAI-compatible generation provider.
func NewGenerator(cfg GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger,
	}
}

// Generate implements domain.Generator. An empty completion maps to
// domain.ErrEmptyCompletion (retryable); a content-filter stop maps to
// domain.ErrGenerationRefused (not retryable).
func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, chatReq)
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues("error").Inc()
		return domain.GenerationResult{}, parseAPIError("chat", err, domain.ErrServiceUnavailable)
	}

	metrics.GenerationRequestDuration.Observe(duration.Seconds())

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues("error").Inc()
		return domain.GenerationResult{}, fmt.Errorf("no choices in response: %w", domain.ErrEmptyCompletion)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		metrics.GenerationRequestsTotal.WithLabelValues("error").Inc()
		return domain.GenerationResult{}, fmt.Errorf("model declined the prompt: %w", domain.ErrGenerationRefused)
	}
	if choice.Message.Content == "" {
		metrics.GenerationRequestsTotal.WithLabelValues("error").Inc()
		return domain.GenerationResult{}, domain.ErrEmptyCompletion
	}

	metrics.GenerationRequestsTotal.WithLabelValues("success").Inc()
	g.logger.Debug("Completion received",
		zap.String("model", resp.Model),
		zap.Duration("latency", duration),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return domain.GenerationResult{
		Content:     choice.Message.Content,
		Model:       resp.Model,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}
