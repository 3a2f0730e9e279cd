package apex

import (
	"context"
	"fmt"
	"time"

	"github.com/neuraloverlay/apex-go-sdk/core"
	"github.com/neuraloverlay/apex-go-sdk/logging"
	"github.com/neuraloverlay/apex-go-sdk/memory"
)

// Observer receives each round's attempt as it completes. Used by the
// server to stream round progress over websockets.
type Observer func(*core.Attempt)

// Result is the outcome of an optimization run.
type Result struct {
	Task     *core.Task
	Content  string  // Best draft seen
	Score    float64 // Score of the best draft
	Accepted bool    // Whether the best draft cleared the threshold
	Rounds   int     // Rounds actually run
	Attempts []*core.Attempt
	Tokens   core.TokenUsage
}

// Optimizer runs the generate-critique-refine loop.
type Optimizer struct {
	generator Generator
	critic    Critic
	config    *APEXConfig
	quality   QualityFunction
	mem       memory.Manager
	logger    logging.Logger
}

// Option configures the Optimizer.
type Option func(*Optimizer)

// WithQuality adds a deterministic quality function. Its score is averaged
// with the critic's score, and it serves as a fallback when the critic
// errors mid-run.
func WithQuality(fn QualityFunction) Option {
	return func(o *Optimizer) { o.quality = fn }
}

// WithMemory wires a memory manager for pattern retrieval and recording.
// Only active when the config's UseMemory is true.
func WithMemory(m memory.Manager) Option {
	return func(o *Optimizer) { o.mem = m }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *Optimizer) { o.logger = l }
}

// NewOptimizer creates an Optimizer. config may be nil for defaults.
func NewOptimizer(generator Generator, critic Critic, config *APEXConfig, opts ...Option) *Optimizer {
	if config == nil {
		config = DefaultAPEXConfig()
	}
	o := &Optimizer{
		generator: generator,
		critic:    critic,
		config:    config.withDefaults(),
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run optimizes a task to completion.
func (o *Optimizer) Run(ctx context.Context, task *core.Task) (*Result, error) {
	return o.RunWithObserver(ctx, task, nil)
}

// RunWithObserver runs the loop, invoking observer after each round.
//
// The loop always returns the best draft seen. A generation failure in
// round 1 is fatal; in later rounds it ends the loop with the best draft
// so far. Context cancellation likewise returns the best draft unless no
// draft exists yet.
func (o *Optimizer) RunWithObserver(ctx context.Context, task *core.Task, observer Observer) (*Result, error) {
	result := &Result{Task: task}

	guidance := o.retrieveGuidance(ctx, task)

	var best *core.Attempt
	var latest *Critique

	for round := 1; round <= o.config.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			if best == nil {
				return nil, fmt.Errorf("round %d: %w", round, err)
			}
			o.logger.Warn("run cancelled, returning best draft", "round", round)
			break
		}

		attempt, critique, err := o.runRound(ctx, task, round, guidance, best, latest, result)
		if err != nil {
			if round == 1 {
				return nil, err
			}
			o.logger.Warn("round failed, returning best draft", "round", round, "error", err)
			break
		}

		result.Rounds = round
		result.Attempts = append(result.Attempts, attempt)
		latest = critique

		if best == nil || attempt.Score > best.Score {
			best = attempt
		}

		if observer != nil {
			observer(attempt)
		}

		o.logger.Info("round complete", "round", round, "score", attempt.Score, "accepted", attempt.Accepted)

		if attempt.Accepted {
			break
		}
	}

	if best == nil {
		return nil, fmt.Errorf("no draft produced")
	}

	result.Content = best.Content
	result.Score = best.Score
	result.Accepted = best.Accepted

	o.recordPatterns(task, result.Attempts)

	return result, nil
}

// runRound produces one attempt: generate (or refine) candidates, critique
// them, keep the best.
func (o *Optimizer) runRound(ctx context.Context, task *core.Task, round int, guidance string, best *core.Attempt, latest *Critique, result *Result) (*core.Attempt, *Critique, error) {
	var (
		bestAttempt  *core.Attempt
		bestCritique *Critique
	)

	for candidate := 0; candidate < o.config.CandidatesPerRound; candidate++ {
		draft, usage, err := o.draft(ctx, task, round, guidance, best, latest)
		if err != nil {
			if bestAttempt != nil {
				break // Keep what this round already has
			}
			return nil, nil, err
		}
		result.Tokens.Add(usage)

		critique, score, err := o.assess(ctx, task, draft, &result.Tokens)
		if err != nil {
			return nil, nil, err
		}

		attempt := &core.Attempt{
			ID:              fmt.Sprintf("%s-r%d-c%d", task.ID, round, candidate),
			TaskID:          task.ID,
			Round:           round,
			Content:         draft,
			Score:           score,
			Accepted:        score >= o.config.QualityThreshold,
			CritiqueSummary: critique.Summary(),
			Timestamp:       time.Now().Unix(),
		}

		if bestAttempt == nil || attempt.Score > bestAttempt.Score {
			bestAttempt = attempt
			bestCritique = critique
		}
	}

	return bestAttempt, bestCritique, nil
}

// draft produces one candidate: a fresh generation in round 1, a refinement
// of the best draft afterwards.
func (o *Optimizer) draft(ctx context.Context, task *core.Task, round int, guidance string, best *core.Attempt, latest *Critique) (string, core.TokenUsage, error) {
	if round == 1 || best == nil || latest == nil {
		return o.generator.Generate(ctx, task, guidance)
	}
	return o.generator.Refine(ctx, task, best.Content, latest)
}

// assess critiques a draft and computes its final score: the mean of the
// critic's score and the quality function's score when both exist.
// A critic failure falls back to the quality function alone.
func (o *Optimizer) assess(ctx context.Context, task *core.Task, draft string, tokens *core.TokenUsage) (*Critique, float64, error) {
	critique, usage, err := o.critic.Critique(ctx, task, draft)
	tokens.Add(usage)
	if err != nil {
		if o.quality == nil {
			return nil, 0, err
		}
		o.logger.Warn("critic failed, falling back to quality function", "error", err)
		score, qerr := o.quality.Score(ctx, task, draft)
		if qerr != nil {
			return nil, 0, fmt.Errorf("critic failed (%v) and quality fallback failed: %w", err, qerr)
		}
		critique = &Critique{Score: score, Verdict: VerdictRevise}
		if score >= o.config.QualityThreshold {
			critique.Verdict = VerdictAccept
		}
		return critique, score, nil
	}

	score := critique.Score
	if o.quality != nil {
		qscore, qerr := o.quality.Score(ctx, task, draft)
		if qerr != nil {
			o.logger.Warn("quality function failed, using critic score only", "error", qerr)
		} else {
			score = (critique.Score + qscore) / 2
		}
	}

	return critique, score, nil
}

// retrieveGuidance loads relevant patterns before round 1. Retrieval
// failures degrade to no guidance rather than failing the run.
func (o *Optimizer) retrieveGuidance(ctx context.Context, task *core.Task) string {
	if !o.config.UseMemory || o.mem == nil {
		return ""
	}

	guidance, err := o.mem.Retrieve(ctx, task.OwnerID, task.Brief)
	if err != nil {
		o.logger.Warn("memory retrieval failed", "error", err)
		return ""
	}
	if guidance != "" {
		o.logger.Debug("memory guidance injected", "chars", len(guidance))
	}
	return guidance
}

// recordPatterns stores instructive attempts after the run. Uses a fresh
// context so recording survives run cancellation.
func (o *Optimizer) recordPatterns(task *core.Task, attempts []*core.Attempt) {
	if !o.config.UseMemory || o.mem == nil || len(attempts) == 0 {
		return
	}

	recordCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := o.mem.RecordAttempts(recordCtx, task.OwnerID, task, attempts); err != nil {
		o.logger.Warn("memory recording failed", "error", err)
	}
}
