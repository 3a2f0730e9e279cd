package apex

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuraloverlay/apex-go-sdk/core"
	"github.com/neuraloverlay/apex-go-sdk/logging"
)

// fakeGenerator returns scripted drafts per call.
type fakeGenerator struct {
	drafts   []string
	errs     []error
	calls    int
	guidance string // Last guidance seen
}

func (f *fakeGenerator) next() (string, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(f.drafts) {
		return f.drafts[i], nil
	}
	return fmt.Sprintf("draft %d", i), nil
}

func (f *fakeGenerator) Generate(ctx context.Context, task *core.Task, guidance string) (string, core.TokenUsage, error) {
	f.guidance = guidance
	draft, err := f.next()
	return draft, core.TokenUsage{InputTokens: 10, OutputTokens: 20}, err
}

func (f *fakeGenerator) Refine(ctx context.Context, task *core.Task, draft string, critique *Critique) (string, core.TokenUsage, error) {
	next, err := f.next()
	return next, core.TokenUsage{InputTokens: 10, OutputTokens: 20}, err
}

// fakeCritic returns scripted scores per call.
type fakeCritic struct {
	scores []float64
	errs   []error
	calls  int
}

func (f *fakeCritic) Critique(ctx context.Context, task *core.Task, draft string) (*Critique, core.TokenUsage, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, core.TokenUsage{}, f.errs[i]
	}
	score := 0.5
	if i < len(f.scores) {
		score = f.scores[i]
	}
	c := &Critique{Score: score, Verdict: VerdictRevise, Weaknesses: []string{"needs work"}}
	if score >= 0.85 {
		c.Verdict = VerdictAccept
	}
	return c, core.TokenUsage{}, nil
}

// fakeMemory records calls.
type fakeMemory struct {
	guidance string
	recorded []*core.Attempt
}

func (f *fakeMemory) Retrieve(ctx context.Context, ownerID, query string) (string, error) {
	return f.guidance, nil
}

func (f *fakeMemory) RecordAttempts(ctx context.Context, ownerID string, task *core.Task, attempts []*core.Attempt) error {
	f.recorded = attempts
	return nil
}

func newTestOptimizer(gen Generator, critic Critic, cfg *APEXConfig, opts ...Option) *Optimizer {
	opts = append(opts, WithLogger(logging.NoOpLogger{}))
	return NewOptimizer(gen, critic, cfg, opts...)
}

func TestOptimizer_AcceptsOnThreshold(t *testing.T) {
	gen := &fakeGenerator{drafts: []string{"first", "second"}}
	critic := &fakeCritic{scores: []float64{0.6, 0.9}}

	o := newTestOptimizer(gen, critic, nil)

	result, err := o.Run(context.Background(), core.NewTask("", "article", "brief"))
	require.NoError(t, err)

	assert.Equal(t, "second", result.Content)
	assert.Equal(t, 0.9, result.Score)
	assert.True(t, result.Accepted)
	assert.Equal(t, 2, result.Rounds)
	assert.Len(t, result.Attempts, 2)
	assert.Equal(t, 60, result.Tokens.Total())
}

func TestOptimizer_ReturnsBestWhenNeverAccepted(t *testing.T) {
	gen := &fakeGenerator{drafts: []string{"a", "b", "c", "d"}}
	critic := &fakeCritic{scores: []float64{0.3, 0.7, 0.5, 0.6}}

	o := newTestOptimizer(gen, critic, &APEXConfig{MaxRounds: 4, QualityThreshold: 0.85})

	result, err := o.Run(context.Background(), core.NewTask("", "article", "brief"))
	require.NoError(t, err)

	assert.Equal(t, "b", result.Content)
	assert.Equal(t, 0.7, result.Score)
	assert.False(t, result.Accepted)
	assert.Equal(t, 4, result.Rounds)
}

func TestOptimizer_FirstRoundGeneratorErrorIsFatal(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.New("model down")}}
	critic := &fakeCritic{}

	o := newTestOptimizer(gen, critic, nil)

	_, err := o.Run(context.Background(), core.NewTask("", "article", "brief"))
	assert.Error(t, err)
}

func TestOptimizer_LaterGeneratorErrorKeepsBest(t *testing.T) {
	gen := &fakeGenerator{
		drafts: []string{"first"},
		errs:   []error{nil, errors.New("model down")},
	}
	critic := &fakeCritic{scores: []float64{0.6}}

	o := newTestOptimizer(gen, critic, nil)

	result, err := o.Run(context.Background(), core.NewTask("", "article", "brief"))
	require.NoError(t, err)

	assert.Equal(t, "first", result.Content)
	assert.Equal(t, 1, result.Rounds)
}

func TestOptimizer_CriticErrorFallsBackToQuality(t *testing.T) {
	gen := &fakeGenerator{drafts: []string{"draft with keyword"}}
	critic := &fakeCritic{errs: []error{errors.New("bad json")}}

	o := newTestOptimizer(gen, critic, nil, WithQuality(KeywordCoverage{}))

	task := core.NewTask("", "article", "brief")
	task.Keywords = []string{"keyword"}

	result, err := o.Run(context.Background(), task)
	require.NoError(t, err)

	// Full keyword coverage scores 1.0, above the threshold
	assert.Equal(t, 1.0, result.Score)
	assert.True(t, result.Accepted)
}

func TestOptimizer_CriticErrorWithoutQualityIsFatal(t *testing.T) {
	gen := &fakeGenerator{drafts: []string{"draft"}}
	critic := &fakeCritic{errs: []error{errors.New("bad json")}}

	o := newTestOptimizer(gen, critic, nil)

	_, err := o.Run(context.Background(), core.NewTask("", "article", "brief"))
	assert.Error(t, err)
}

func TestOptimizer_BlendsCriticAndQualityScores(t *testing.T) {
	gen := &fakeGenerator{drafts: []string{"no keywords here"}}
	critic := &fakeCritic{scores: []float64{0.8}}

	o := newTestOptimizer(gen, critic, &APEXConfig{MaxRounds: 1}, WithQuality(KeywordCoverage{}))

	task := core.NewTask("", "article", "brief")
	task.Keywords = []string{"missing"}

	result, err := o.Run(context.Background(), task)
	require.NoError(t, err)

	// Critic 0.8, keyword coverage 0.0, blended 0.4
	assert.InDelta(t, 0.4, result.Score, 1e-9)
}

func TestOptimizer_CancelledContextReturnsBest(t *testing.T) {
	gen := &fakeGenerator{drafts: []string{"first", "second"}}
	critic := &fakeCritic{scores: []float64{0.6, 0.7}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := newTestOptimizer(gen, critic, nil)

	// Cancel after the first round; the loop returns the best draft so far
	result, err := o.RunWithObserver(ctx, core.NewTask("", "article", "brief"), func(*core.Attempt) {
		cancel()
	})
	require.NoError(t, err)
	assert.Equal(t, "first", result.Content)
	assert.Equal(t, 1, result.Rounds)
}

func TestOptimizer_CancelledBeforeAnyDraftFails(t *testing.T) {
	gen := &fakeGenerator{drafts: []string{"first"}}
	critic := &fakeCritic{scores: []float64{0.6}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newTestOptimizer(gen, critic, nil)

	_, err := o.Run(ctx, core.NewTask("", "article", "brief"))
	assert.Error(t, err)
}

func TestOptimizer_UsesMemoryGuidanceAndRecords(t *testing.T) {
	gen := &fakeGenerator{drafts: []string{"draft"}}
	critic := &fakeCritic{scores: []float64{0.9}}
	mem := &fakeMemory{guidance: "=== RELEVANT PAST PATTERNS ===\n1. something"}

	o := newTestOptimizer(gen, critic, &APEXConfig{UseMemory: true}, WithMemory(mem))

	result, err := o.Run(context.Background(), core.NewTask("owner1", "article", "brief"))
	require.NoError(t, err)

	assert.Contains(t, gen.guidance, "RELEVANT PAST PATTERNS")
	require.Len(t, mem.recorded, 1)
	assert.Equal(t, result.Content, mem.recorded[0].Content)
}

func TestOptimizer_MemoryDisabledSkipsManager(t *testing.T) {
	gen := &fakeGenerator{drafts: []string{"draft"}}
	critic := &fakeCritic{scores: []float64{0.9}}
	mem := &fakeMemory{guidance: "should not appear"}

	o := newTestOptimizer(gen, critic, &APEXConfig{UseMemory: false}, WithMemory(mem))

	_, err := o.Run(context.Background(), core.NewTask("owner1", "article", "brief"))
	require.NoError(t, err)

	assert.Empty(t, gen.guidance)
	assert.Nil(t, mem.recorded)
}

func TestOptimizer_ObserverSeesEveryRound(t *testing.T) {
	gen := &fakeGenerator{drafts: []string{"a", "b", "c"}}
	critic := &fakeCritic{scores: []float64{0.2, 0.3, 0.9}}

	o := newTestOptimizer(gen, critic, nil)

	var rounds []int
	_, err := o.RunWithObserver(context.Background(), core.NewTask("", "article", "brief"), func(a *core.Attempt) {
		rounds = append(rounds, a.Round)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, rounds)
}

func TestOptimizer_CandidatesPerRoundKeepsBest(t *testing.T) {
	gen := &fakeGenerator{drafts: []string{"weak", "strong"}}
	critic := &fakeCritic{scores: []float64{0.4, 0.9}}

	o := newTestOptimizer(gen, critic, &APEXConfig{MaxRounds: 1, CandidatesPerRound: 2})

	result, err := o.Run(context.Background(), core.NewTask("", "article", "brief"))
	require.NoError(t, err)

	assert.Equal(t, "strong", result.Content)
	assert.Equal(t, 0.9, result.Score)
	assert.Equal(t, 1, result.Rounds)
}
