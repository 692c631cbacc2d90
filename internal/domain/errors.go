package domain

import "errors"

var (
	// ErrPageNotFound signals that the external source has no article for a
	// concept. Never retried.
	ErrPageNotFound = errors.New("page not found")
	// ErrServiceUnavailable signals a transient external-service failure.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrEmptyCompletion signals an empty generation response. Retryable.
	ErrEmptyCompletion = errors.New("empty completion")
	// ErrGenerationRefused signals an explicit model refusal. Never retried.
	ErrGenerationRefused = errors.New("generation refused")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
)
