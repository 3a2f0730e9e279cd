package apex

import (
	"context"
	"fmt"
	"strings"

	"github.com/neuraloverlay/apex-go-sdk/core"
	"github.com/neuraloverlay/apex-go-sdk/model"
)

// Generator produces and revises drafts for a task.
//
// Implementations:
//   - ModelGenerator: prompts a model.Model
type Generator interface {
	// Generate produces a first draft. guidance is an optional block of
	// retrieved memory patterns; empty means no guidance.
	Generate(ctx context.Context, task *core.Task, guidance string) (string, core.TokenUsage, error)

	// Refine revises a draft against a critique.
	Refine(ctx context.Context, task *core.Task, draft string, critique *Critique) (string, core.TokenUsage, error)
}

const generatorSystemPrompt = `You are an expert content writer. Produce only the requested content, with no preamble, meta-commentary, or markdown fences around the whole output.`

// ModelGenerator drafts content by prompting a model.
type ModelGenerator struct {
	model       model.Model
	temperature float64
	maxTokens   int64
}

// GeneratorOption configures a ModelGenerator.
type GeneratorOption func(*ModelGenerator)

// WithGeneratorTemperature overrides the model temperature.
func WithGeneratorTemperature(t float64) GeneratorOption {
	return func(g *ModelGenerator) { g.temperature = t }
}

// WithGeneratorMaxTokens overrides the model max tokens.
func WithGeneratorMaxTokens(n int64) GeneratorOption {
	return func(g *ModelGenerator) { g.maxTokens = n }
}

// NewModelGenerator creates a generator backed by m.
func NewModelGenerator(m model.Model, opts ...GeneratorOption) *ModelGenerator {
	g := &ModelGenerator{model: m}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *ModelGenerator) Generate(ctx context.Context, task *core.Task, guidance string) (string, core.TokenUsage, error) {
	resp, err := g.model.Complete(ctx, &model.Request{
		System:      generatorSystemPrompt,
		Prompt:      buildGeneratePrompt(task, guidance),
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", core.TokenUsage{}, fmt.Errorf("generate: %w", err)
	}
	return strings.TrimSpace(resp.Text), resp.Usage, nil
}

func (g *ModelGenerator) Refine(ctx context.Context, task *core.Task, draft string, critique *Critique) (string, core.TokenUsage, error) {
	resp, err := g.model.Complete(ctx, &model.Request{
		System:      generatorSystemPrompt,
		Prompt:      buildRefinePrompt(task, draft, critique),
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", core.TokenUsage{}, fmt.Errorf("refine: %w", err)
	}
	return strings.TrimSpace(resp.Text), resp.Usage, nil
}

func buildGeneratePrompt(task *core.Task, guidance string) string {
	var b strings.Builder

	if guidance != "" {
		b.WriteString(guidance)
		b.WriteString("\n\nUse the patterns above as guidance: imitate what worked, avoid what failed.\n\n")
	}

	fmt.Fprintf(&b, "Write %s content for the following brief.\n\n", task.Kind)
	fmt.Fprintf(&b, "Brief: %s\n", task.Brief)

	if task.Audience != "" {
		fmt.Fprintf(&b, "Audience: %s\n", task.Audience)
	}
	if len(task.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords to include: %s\n", strings.Join(task.Keywords, ", "))
	}
	for _, c := range task.Constraints {
		fmt.Fprintf(&b, "Constraint: %s\n", c)
	}

	return b.String()
}

func buildRefinePrompt(task *core.Task, draft string, critique *Critique) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Revise the draft below. Brief: %s\n\n", task.Brief)
	b.WriteString("--- DRAFT ---\n")
	b.WriteString(draft)
	b.WriteString("\n--- END DRAFT ---\n\n")
	b.WriteString("Critique of the draft:\n")
	b.WriteString(critique.Summary())
	b.WriteString("\n\nAddress every weakness and suggestion. Keep what the critique praised. Output the full revised content.")

	return b.String()
}
