// Package model defines the provider-neutral completion interface used by
// the apex generator and critic, with backends under model/anthropic and
// model/openai.
package model

import (
	"context"

	"github.com/neuraloverlay/apex-go-sdk/core"
)

// Request is a single-turn completion request.
type Request struct {
	// System is the system prompt. Empty means provider default behavior.
	System string

	// Prompt is the user-turn content.
	Prompt string

	// Temperature in [0, 2]. Zero means the backend's configured default.
	Temperature float64

	// MaxTokens caps the response. Zero means the backend's configured default.
	MaxTokens int64
}

// Response carries the completion text and token accounting.
type Response struct {
	Text  string
	Usage core.TokenUsage
}

// Model is the completion backend interface.
// Implementations: anthropic.Model, openai.Model, and the circuit-breaking
// wrapper returned by WithBreaker.
type Model interface {
	// Name identifies the underlying model (e.g. "claude-sonnet-4-20250514").
	Name() string

	// Complete performs a single completion. Implementations must honor
	// ctx cancellation.
	Complete(ctx context.Context, req *Request) (*Response, error)
}
