package domain

import "context"

// Generator is the generative text capability. Output is untrusted: callers
// must validate structured responses before using them.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)
}

// GenerationRequest is the input to one generation call.
type GenerationRequest struct {
	Prompt    string
	JSONMode  bool // constrain the model to emit a JSON object
	MaxTokens int  // 0 = provider default
}

// GenerationResult is the output of one generation call.
type GenerationResult struct {
	Content     string
	Model       string
	TotalTokens int
}
