package apex

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/neuraloverlay/apex-go-sdk/core"
	"github.com/neuraloverlay/apex-go-sdk/model"
)

// Critic assesses a draft against its task.
//
// Implementations:
//   - ModelCritic: prompts a model.Model for a structured JSON critique
//   - QualityCritic: adapts a QualityFunction into a Critic
type Critic interface {
	Critique(ctx context.Context, task *core.Task, draft string) (*Critique, core.TokenUsage, error)
}

const criticSystemPrompt = `You are a demanding content reviewer. Assess drafts rigorously against their brief and respond ONLY with a JSON object:
{"score": <0.0-1.0>, "verdict": "accept"|"revise", "strengths": [...], "weaknesses": [...], "suggestions": [...]}
Accept only drafts that fully deliver on the brief. No text outside the JSON.`

// ModelCritic asks a model for a structured JSON critique.
type ModelCritic struct {
	model model.Model
}

// NewModelCritic creates a critic backed by m.
func NewModelCritic(m model.Model) *ModelCritic {
	return &ModelCritic{model: m}
}

func (c *ModelCritic) Critique(ctx context.Context, task *core.Task, draft string) (*Critique, core.TokenUsage, error) {
	resp, err := c.model.Complete(ctx, &model.Request{
		System: criticSystemPrompt,
		Prompt: buildCritiquePrompt(task, draft),
	})
	if err != nil {
		return nil, core.TokenUsage{}, fmt.Errorf("critique: %w", err)
	}

	critique, err := parseCritique(resp.Text)
	if err != nil {
		return nil, resp.Usage, fmt.Errorf("parse critique: %w", err)
	}
	return critique, resp.Usage, nil
}

func buildCritiquePrompt(task *core.Task, draft string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Brief: %s\n", task.Brief)
	fmt.Fprintf(&b, "Content kind: %s\n", task.Kind)
	if task.Audience != "" {
		fmt.Fprintf(&b, "Audience: %s\n", task.Audience)
	}
	if len(task.Keywords) > 0 {
		fmt.Fprintf(&b, "Required keywords: %s\n", strings.Join(task.Keywords, ", "))
	}
	for _, c := range task.Constraints {
		fmt.Fprintf(&b, "Constraint: %s\n", c)
	}

	b.WriteString("\n--- DRAFT ---\n")
	b.WriteString(draft)
	b.WriteString("\n--- END DRAFT ---\n")

	return b.String()
}

var thinkTagRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// parseCritique extracts a Critique from model output. Reasoning models may
// wrap output in <think> tags or produce slightly malformed JSON; both are
// tolerated.
func parseCritique(text string) (*Critique, error) {
	text = strings.TrimSpace(thinkTagRe.ReplaceAllString(text, ""))

	// Strip markdown fences if the model wrapped its JSON
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	// Isolate the outermost JSON object
	if start := strings.Index(text, "{"); start > 0 {
		text = text[start:]
	}
	if end := strings.LastIndex(text, "}"); end >= 0 && end < len(text)-1 {
		text = text[:end+1]
	}

	var critique Critique
	if err := json.Unmarshal([]byte(text), &critique); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(text)
		if repairErr != nil {
			return nil, fmt.Errorf("unmarshal: %w (repair also failed: %v)", err, repairErr)
		}
		if err := json.Unmarshal([]byte(repaired), &critique); err != nil {
			return nil, fmt.Errorf("unmarshal repaired: %w", err)
		}
	}

	critique.clamp()
	return &critique, nil
}

// QualityCritic adapts a QualityFunction into a Critic. Useful for fully
// deterministic loops and for tests.
type QualityCritic struct {
	fn        QualityFunction
	threshold float64
}

// NewQualityCritic wraps fn; drafts scoring at or above threshold get an
// accept verdict.
func NewQualityCritic(fn QualityFunction, threshold float64) *QualityCritic {
	return &QualityCritic{fn: fn, threshold: threshold}
}

func (c *QualityCritic) Critique(ctx context.Context, task *core.Task, draft string) (*Critique, core.TokenUsage, error) {
	score, err := c.fn.Score(ctx, task, draft)
	if err != nil {
		return nil, core.TokenUsage{}, fmt.Errorf("quality critic %s: %w", c.fn.Name(), err)
	}

	critique := &Critique{Score: score, Verdict: VerdictRevise}
	if score >= c.threshold {
		critique.Verdict = VerdictAccept
	}
	critique.clamp()
	return critique, core.TokenUsage{}, nil
}
