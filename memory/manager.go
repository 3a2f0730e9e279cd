package memory

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/neuraloverlay/apex-go-sdk/core"
	"github.com/neuraloverlay/apex-go-sdk/logging"
)

// NeuralMemoryManager is the SDK-provided Manager implementation.
//
// Features:
//   - Vector similarity search with age-based decay weighting
//   - Automatic embedding with a ristretto query-embedding cache
//   - Pattern formatting for prompt injection
//   - Attempt filtering (accepted drafts plus instructive failures)
//
// For production, users can implement a custom Manager with fact
// extraction, contradiction resolution, or hierarchical memory tiers.
type NeuralMemoryManager struct {
	store      Store
	embedder   Embedder // Internal: the Optimizer never sees this
	config     *Config
	logger     logging.Logger
	embedCache *ristretto.Cache
}

// ManagerOption configures the manager.
type ManagerOption func(*NeuralMemoryManager)

// WithLogger sets the logger. Defaults to logging.Default().
func WithLogger(l logging.Logger) ManagerOption {
	return func(m *NeuralMemoryManager) { m.logger = l }
}

// NewNeuralMemoryManager creates a new NeuralMemoryManager.
func NewNeuralMemoryManager(store Store, embedder Embedder, config *Config, opts ...ManagerOption) (*NeuralMemoryManager, error) {
	if config == nil {
		config = DefaultConfig
	}

	// Query embeddings are small and hot; a modest cache avoids re-embedding
	// repeated briefs.
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     16 << 20, // 16 MiB of embeddings
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	m := &NeuralMemoryManager{
		store:      store,
		embedder:   embedder,
		config:     config,
		logger:     logging.Default(),
		embedCache: cache,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Retrieve finds relevant patterns and returns a formatted guidance block.
func (m *NeuralMemoryManager) Retrieve(ctx context.Context, ownerID string, query string) (string, error) {
	if !m.config.Enabled {
		return "", nil // Memory disabled
	}

	embedding, err := m.embedQuery(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	memories, err := m.store.Query(ctx, ownerID, embedding, m.config.RetrieveLimit)
	if err != nil {
		return "", fmt.Errorf("query store: %w", err)
	}

	m.logger.Debug("memory retrieval", "owner", ownerID, "raw", len(memories), "query", truncate(query, 50))

	// Re-rank by decayed relevance and drop weak matches.
	relevant := m.rankByRelevance(memories, embedding)
	if len(relevant) == 0 {
		return "", nil
	}

	m.logger.Info("retrieved patterns", "owner", ownerID, "count", len(relevant))
	return m.formatMemories(relevant, ownerID, query), nil
}

// RecordAttempts stores the instructive attempts of a finished run.
func (m *NeuralMemoryManager) RecordAttempts(ctx context.Context, ownerID string, task *core.Task, attempts []*core.Attempt) error {
	if !m.config.Enabled {
		return nil // Memory disabled
	}

	storable := m.filterStorableAttempts(attempts)
	if len(storable) == 0 {
		m.logger.Debug("no attempts worth storing")
		return nil
	}

	m.logger.Info("recording patterns", "owner", ownerID, "storing", len(storable), "of", len(attempts))

	for i, attempt := range storable {
		pattern := NewMemoryPattern(ownerID, task, attempt)

		embedding, err := m.embedder.Embed(ctx, pattern.FormatForEmbedding())
		if err != nil {
			m.logger.Warn("embed pattern failed", "index", i, "error", err)
			continue
		}
		pattern.SetEmbedding(embedding)

		if err := m.store.Store(ctx, pattern); err != nil {
			m.logger.Warn("store pattern failed", "index", i, "error", err)
			continue
		}

		m.logger.Debug("stored pattern", "round", attempt.Round, "score", attempt.Score)
	}

	return nil
}

// embedQuery embeds a query, serving repeats from the ristretto cache.
func (m *NeuralMemoryManager) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if cached, ok := m.embedCache.Get(query); ok {
		if emb, ok := cached.([]float32); ok {
			return emb, nil
		}
	}

	embedding, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	m.embedCache.Set(query, embedding, int64(len(embedding)*4))
	return embedding, nil
}

// rankByRelevance scores memories by cosine similarity times an age decay
// factor and filters out anything below MinSimilarity.
func (m *NeuralMemoryManager) rankByRelevance(memories []Memory, queryEmbedding []float32) []Memory {
	type scored struct {
		mem   Memory
		score float64
	}

	now := time.Now()
	candidates := make([]scored, 0, len(memories))
	for _, mem := range memories {
		similarity := CosineSimilarity(queryEmbedding, mem.Embedding())
		relevance := similarity * m.decayFactor(now.Sub(mem.CreatedAt()))
		if relevance < m.config.MinSimilarity {
			continue
		}
		candidates = append(candidates, scored{mem: mem, score: relevance})
	}

	// Insertion sort, descending. Candidate sets are RetrieveLimit-sized.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].score > candidates[j-1].score; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}

	result := make([]Memory, len(candidates))
	for i, c := range candidates {
		result[i] = c.mem
	}
	return result
}

// decayFactor returns the exponential age decay multiplier: half-life from
// config, floored at 0.1 so patterns are never fully forgotten.
func (m *NeuralMemoryManager) decayFactor(age time.Duration) float64 {
	if !m.config.DecayEnabled || m.config.DecayHalfLife <= 0 {
		return 1.0
	}
	factor := math.Exp2(-age.Hours() / m.config.DecayHalfLife.Hours())
	if factor < 0.1 {
		return 0.1
	}
	return factor
}

// formatMemories formats retrieved memories into a structured guidance block.
func (m *NeuralMemoryManager) formatMemories(memories []Memory, ownerID string, query string) string {
	if len(memories) == 0 {
		return ""
	}

	var parts []string
	parts = append(parts, "=== RELEVANT PAST PATTERNS ===\n")

	// Budget total output at ~2000 chars split across memories.
	maxLengthPerMemory := 2000 / len(memories)
	if maxLengthPerMemory < 100 {
		maxLengthPerMemory = 100
	}

	for i, mem := range memories {
		formatted := mem.Format(FormatContext{
			OwnerID:   ownerID,
			Query:     query,
			MaxLength: maxLengthPerMemory,
		})
		parts = append(parts, fmt.Sprintf("%d. %s\n", i+1, formatted))
	}

	return strings.Join(parts, "\n")
}

// filterStorableAttempts selects attempts worth storing.
// Accepted drafts are always kept. If nothing was accepted, the final
// attempt is kept as a failure to learn from.
func (m *NeuralMemoryManager) filterStorableAttempts(attempts []*core.Attempt) []*core.Attempt {
	var accepted []*core.Attempt
	for _, a := range attempts {
		if a.Content == "" {
			continue
		}
		if a.Accepted {
			accepted = append(accepted, a)
		}
	}
	if len(accepted) > 0 {
		return accepted
	}

	// Store the last real draft as a failure (for learning)
	for i := len(attempts) - 1; i >= 0; i-- {
		if attempts[i].Content != "" {
			return attempts[i : i+1]
		}
	}
	return nil
}

// Close releases the embedding cache. The store is owned by the caller.
func (m *NeuralMemoryManager) Close() {
	m.embedCache.Close()
}

// Config holds NeuralMemoryManager configuration.
type Config struct {
	// Enabled toggles the memory system on/off.
	// Default: false (opt-in).
	Enabled bool

	// MinSimilarity is the minimum decayed relevance for retrieval [0.0-1.0].
	// Default: 0.5
	// Note: tiny models (all-MiniLM-L6-v2) produce lower scores (~0.35 for
	// similar text) than production embedding APIs (0.7-0.85 range).
	MinSimilarity float64

	// RetrieveLimit is the number of candidates fetched from the store
	// before relevance filtering. Default: 10.
	RetrieveLimit int

	// MaxPatternsPerOwner caps total patterns per owner.
	// Default: 1000 (prevents unbounded growth).
	MaxPatternsPerOwner int

	// DecayEnabled toggles exponential age decay of relevance.
	DecayEnabled bool

	// DecayHalfLife is the age at which relevance halves.
	// Default: 90 days. Decay is floored at 0.1.
	DecayHalfLife time.Duration
}

// DefaultConfig returns sensible defaults for local use.
var DefaultConfig = &Config{
	Enabled:             false, // Opt-in
	MinSimilarity:       0.5,
	RetrieveLimit:       10,
	MaxPatternsPerOwner: 1000,
	DecayEnabled:        false,
	DecayHalfLife:       90 * 24 * time.Hour,
}
