package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neuraloverlay/apex-go-sdk/core"
)

// MemoryPattern stores one generation attempt as a reusable pattern.
// This is the SDK-provided implementation of the Memory interface.
//
// Patterns let the optimizer learn from past work: accepted drafts become
// positive guidance for similar briefs, failed drafts become warnings.
type MemoryPattern struct {
	id         string
	ownerID    string
	taskID     string
	createdAt  time.Time
	embedding  []float32
	importance float64
	metadata   map[string]interface{}

	// Pattern-specific fields
	TaskKind        string
	Brief           string
	Draft           string
	Score           float64
	CritiqueSummary string
	Success         bool
}

// NewMemoryPattern creates a MemoryPattern from a task and one of its attempts.
func NewMemoryPattern(ownerID string, task *core.Task, attempt *core.Attempt) *MemoryPattern {
	importance := assessPatternImportance(attempt)

	metadata := map[string]interface{}{
		"kind":    task.Kind,
		"round":   attempt.Round,
		"success": attempt.Accepted,
	}
	for k, v := range attempt.Metadata {
		metadata[k] = v
	}

	return &MemoryPattern{
		id:              uuid.New().String(),
		ownerID:         ownerID,
		taskID:          task.ID,
		createdAt:       time.Now(),
		importance:      importance,
		metadata:        metadata,
		TaskKind:        task.Kind,
		Brief:           task.Brief,
		Draft:           attempt.Content,
		Score:           attempt.Score,
		CritiqueSummary: attempt.CritiqueSummary,
		Success:         attempt.Accepted,
	}
}

// NewMemoryPatternFromStorage reconstructs a MemoryPattern from stored data.
// This is used by Store implementations when deserializing.
func NewMemoryPatternFromStorage(
	id string,
	ownerID string,
	taskID string,
	createdAt time.Time,
	embedding []float32,
	taskKind string,
	brief string,
	draft string,
	score float64,
	critiqueSummary string,
	success bool,
	metadata map[string]interface{},
) *MemoryPattern {
	return &MemoryPattern{
		id:              id,
		ownerID:         ownerID,
		taskID:          taskID,
		createdAt:       createdAt,
		embedding:       embedding,
		importance:      0.5, // Default, can be overridden
		metadata:        metadata,
		TaskKind:        taskKind,
		Brief:           brief,
		Draft:           draft,
		Score:           score,
		CritiqueSummary: critiqueSummary,
		Success:         success,
	}
}

// Memory interface implementation

func (p *MemoryPattern) ID() string {
	return p.id
}

func (p *MemoryPattern) OwnerID() string {
	return p.ownerID
}

func (p *MemoryPattern) TaskID() string {
	return p.taskID
}

func (p *MemoryPattern) Type() string {
	return "pattern"
}

func (p *MemoryPattern) Content() interface{} {
	return map[string]interface{}{
		"kind":     p.TaskKind,
		"brief":    p.Brief,
		"content":  p.Draft,
		"score":    p.Score,
		"critique": p.CritiqueSummary,
		"success":  p.Success,
	}
}

func (p *MemoryPattern) Metadata() map[string]interface{} {
	return p.metadata
}

func (p *MemoryPattern) CreatedAt() time.Time {
	return p.createdAt
}

func (p *MemoryPattern) Embedding() []float32 {
	return p.embedding
}

func (p *MemoryPattern) SetEmbedding(emb []float32) {
	p.embedding = emb
}

// Format formats this pattern for prompt injection.
// Produces a readable summary with brief, outcome, and critique.
func (p *MemoryPattern) Format(ctx FormatContext) string {
	var parts []string

	status := "Worked"
	if !p.Success {
		status = "Failed"
	}

	parts = append(parts, fmt.Sprintf("[%s %.2f] %s: %s", status, p.Score, p.TaskKind, truncate(p.Brief, ctx.MaxLength/4)))

	if len(p.Draft) > 0 {
		excerpt := truncate(p.Draft, ctx.MaxLength/2)
		parts = append(parts, fmt.Sprintf("  Excerpt: %q", excerpt))
	}

	if len(p.CritiqueSummary) > 0 {
		parts = append(parts, fmt.Sprintf("  Critique: %s", truncate(p.CritiqueSummary, ctx.MaxLength/4)))
	}

	return strings.Join(parts, "\n")
}

// FormatForEmbedding returns the text representation used for embedding.
func (p *MemoryPattern) FormatForEmbedding() string {
	return fmt.Sprintf("Kind: %s\nBrief: %s\nContent: %s",
		p.TaskKind, p.Brief, truncate(p.Draft, 2000))
}

// Importance returns the importance score for this pattern.
func (p *MemoryPattern) Importance() float64 {
	return p.importance
}

// Helper functions

// assessPatternImportance scores pattern importance [0.0-1.0].
// More important patterns are prioritized for retrieval.
func assessPatternImportance(attempt *core.Attempt) float64 {
	importance := 0.5 // Base

	// Failures are important for learning
	if !attempt.Accepted {
		importance += 0.3
	}

	// Very strong drafts are high-value exemplars
	if attempt.Score >= 0.9 {
		importance += 0.2
	}

	// Substantive critiques indicate transferable lessons
	if len(attempt.CritiqueSummary) > 50 {
		importance += 0.1
	}

	if importance > 1.0 {
		importance = 1.0
	}

	return importance
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
