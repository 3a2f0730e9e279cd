package apex

import (
	"context"
	"fmt"
	"strings"

	"github.com/neuraloverlay/apex-go-sdk/core"
)

// QualityFunction scores content deterministically, without a model call.
// When the Optimizer has both a Critic score and a quality score, the two
// are averaged.
type QualityFunction interface {
	Name() string
	Score(ctx context.Context, task *core.Task, content string) (float64, error)
}

// WeightedQuality combines several quality functions with weights.
type WeightedQuality struct {
	entries []weightedEntry
}

type weightedEntry struct {
	fn     QualityFunction
	weight float64
}

// NewWeightedQuality creates an empty combinator. Use Add to populate.
func NewWeightedQuality() *WeightedQuality {
	return &WeightedQuality{}
}

// Add registers a quality function with a weight and returns the combinator
// for chaining.
func (w *WeightedQuality) Add(fn QualityFunction, weight float64) *WeightedQuality {
	if weight > 0 {
		w.entries = append(w.entries, weightedEntry{fn: fn, weight: weight})
	}
	return w
}

func (w *WeightedQuality) Name() string {
	names := make([]string, len(w.entries))
	for i, e := range w.entries {
		names[i] = e.fn.Name()
	}
	return "weighted(" + strings.Join(names, ",") + ")"
}

// Score returns the weighted mean of all registered functions.
func (w *WeightedQuality) Score(ctx context.Context, task *core.Task, content string) (float64, error) {
	if len(w.entries) == 0 {
		return 0, fmt.Errorf("no quality functions registered")
	}

	var sum, totalWeight float64
	for _, e := range w.entries {
		score, err := e.fn.Score(ctx, task, content)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", e.fn.Name(), err)
		}
		sum += score * e.weight
		totalWeight += e.weight
	}
	return sum / totalWeight, nil
}

// LengthBand scores 1.0 for content within [Min, Max] characters, falling
// off linearly outside the band.
type LengthBand struct {
	Min int
	Max int
}

func (l LengthBand) Name() string { return "length_band" }

func (l LengthBand) Score(ctx context.Context, task *core.Task, content string) (float64, error) {
	n := len(content)
	switch {
	case l.Min > 0 && n < l.Min:
		return float64(n) / float64(l.Min), nil
	case l.Max > 0 && n > l.Max:
		// Score decays toward 0 at twice the max
		over := float64(n-l.Max) / float64(l.Max)
		if over >= 1 {
			return 0, nil
		}
		return 1 - over, nil
	default:
		return 1.0, nil
	}
}

// KeywordCoverage scores the fraction of the task's keywords present in the
// content (case-insensitive). A task with no keywords scores 1.0.
type KeywordCoverage struct{}

func (KeywordCoverage) Name() string { return "keyword_coverage" }

func (KeywordCoverage) Score(ctx context.Context, task *core.Task, content string) (float64, error) {
	if len(task.Keywords) == 0 {
		return 1.0, nil
	}

	lower := strings.ToLower(content)
	found := 0
	for _, kw := range task.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			found++
		}
	}
	return float64(found) / float64(len(task.Keywords)), nil
}
