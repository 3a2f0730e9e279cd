// Package core holds the shared types exchanged between the apex
// optimization loop and the neural memory system: generation tasks,
// per-round attempts, and token accounting.
package core

import (
	"fmt"

	"github.com/google/uuid"
)

// Task describes a single content generation request.
// Kind identifies the content family (e.g. "seo_article", "product_copy")
// and is used by memory retrieval to surface patterns from similar work.
type Task struct {
	// ID uniquely identifies the task. NewTask assigns a UUID.
	ID string

	// OwnerID namespaces the task for memory storage and retrieval.
	// Empty means global.
	OwnerID string

	// Kind is the content family identifier.
	Kind string

	// Brief is the human-written description of what to produce.
	Brief string

	// Audience optionally describes who the content is for.
	Audience string

	// Keywords that the content should cover. Used both in prompt
	// construction and by the KeywordCoverage quality function.
	Keywords []string

	// Constraints are hard requirements (tone, length, format).
	Constraints []string

	// Metadata carries free-form caller fields.
	Metadata map[string]string
}

// NewTask creates a task with a fresh UUID.
func NewTask(ownerID, kind, brief string) *Task {
	return &Task{
		ID:      uuid.New().String(),
		OwnerID: ownerID,
		Kind:    kind,
		Brief:   brief,
	}
}

// Attempt records one generate-critique round of the optimization loop.
// Attempts are what the memory manager stores as patterns: the content
// produced, how it scored, and what the critic said about it.
type Attempt struct {
	ID      string
	TaskID  string
	Round   int // 1-based
	Content string

	// Score is the blended quality score in [0, 1].
	Score float64

	// Accepted reports whether the attempt met the quality threshold.
	Accepted bool

	// CritiqueSummary is the critic's verdict in compact prose.
	CritiqueSummary string

	// Timestamp is the unix time the attempt completed.
	Timestamp int64

	Metadata map[string]string
}

// String renders a one-line summary suitable for logging.
func (a *Attempt) String() string {
	status := "accepted"
	if !a.Accepted {
		status = "revise"
	}
	return fmt.Sprintf("round=%d score=%.2f %s len=%d", a.Round, a.Score, status, len(a.Content))
}

// TokenUsage tracks model token consumption across a run.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Add accumulates another usage into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}
