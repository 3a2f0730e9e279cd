package apex

import (
	"fmt"
	"strings"
)

// Verdict values a critic can return.
const (
	VerdictAccept = "accept"
	VerdictRevise = "revise"
)

// Critique is a critic's structured assessment of a draft.
type Critique struct {
	// Score in [0.0, 1.0]. Values outside the range are clamped on parse.
	Score float64 `json:"score"`

	// Verdict is "accept" or "revise".
	Verdict string `json:"verdict"`

	Strengths   []string `json:"strengths,omitempty"`
	Weaknesses  []string `json:"weaknesses,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Accepted reports whether the critic accepted the draft.
func (c *Critique) Accepted() bool {
	return c.Verdict == VerdictAccept
}

// Summary renders the critique as a compact single block, used for
// refinement prompts and memory pattern storage.
func (c *Critique) Summary() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Score %.2f (%s)", c.Score, c.Verdict))
	if len(c.Strengths) > 0 {
		parts = append(parts, "Strengths: "+strings.Join(c.Strengths, "; "))
	}
	if len(c.Weaknesses) > 0 {
		parts = append(parts, "Weaknesses: "+strings.Join(c.Weaknesses, "; "))
	}
	if len(c.Suggestions) > 0 {
		parts = append(parts, "Suggestions: "+strings.Join(c.Suggestions, "; "))
	}
	return strings.Join(parts, "\n")
}

// clamp constrains the score to [0, 1] and normalizes the verdict.
func (c *Critique) clamp() {
	if c.Score < 0 {
		c.Score = 0
	}
	if c.Score > 1 {
		c.Score = 1
	}
	switch strings.ToLower(strings.TrimSpace(c.Verdict)) {
	case VerdictAccept:
		c.Verdict = VerdictAccept
	default:
		c.Verdict = VerdictRevise
	}
}
