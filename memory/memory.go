package memory

import (
	"context"
	"time"

	"github.com/neuraloverlay/apex-go-sdk/core"
)

// Memory is the core interface for all stored memory types.
// The SDK provides MemoryPattern (winning and instructive generation
// attempts); user-defined types (style profiles, terminology glossaries,
// source citations) implement the same interface.
//
// Each memory type controls its own:
//   - Content structure (fields, data)
//   - Formatting for prompt injection (Format method)
//   - Metadata schema
type Memory interface {
	// Identity & Ownership
	ID() string
	OwnerID() string // Owner namespace (empty = global, available to all owners)
	TaskID() string  // Task this memory came from (empty = not task-specific)
	Type() string    // Memory type identifier (e.g. "pattern")

	// Content & Metadata
	Content() interface{}             // Memory-specific data structure
	Metadata() map[string]interface{} // Flexible metadata for custom fields

	// Temporal
	CreatedAt() time.Time

	// Operations
	Format(ctx FormatContext) string // Formats this memory for prompt injection
	Embedding() []float32            // Vector for similarity search
	SetEmbedding([]float32)          // Set embedding vector
}

// FormatContext provides context for smart memory formatting.
// Memory.Format() implementations can use this to truncate based on
// available space, or emphasize query-relevant parts.
type FormatContext struct {
	OwnerID   string // Current owner
	Query     string // Current brief being optimized
	MaxLength int    // Max characters for this memory's output
}

// Manager orchestrates memory operations for the optimization loop.
//
// The Optimizer is opinionated about WHEN memory is used (retrieve before
// round 1, record after the run). The Manager is unopinionated about HOW:
// implementations decide which patterns to retrieve, how to format them,
// and which attempts are worth keeping.
//
// Implementations:
//   - NeuralMemoryManager: the SDK-provided manager
type Manager interface {
	// Retrieve finds patterns relevant to the query and returns a formatted
	// guidance block ready for prompt injection. Empty string means no
	// relevant patterns.
	Retrieve(ctx context.Context, ownerID string, query string) (string, error)

	// RecordAttempts stores the instructive attempts of a finished run.
	// The Manager decides which attempts are worth storing (accepted
	// drafts, and failures worth learning from) and how to process them.
	RecordAttempts(ctx context.Context, ownerID string, task *core.Task, attempts []*core.Attempt) error
}

// Store is the vector storage backend interface.
// Implementations: chromem.Store (embedded, volatile), badger.Store
// (embedded, persistent), or user-provided production backends.
type Store interface {
	// Store saves a memory with its embedding.
	// Memory must have its embedding set before calling Store.
	Store(ctx context.Context, mem Memory) error

	// Query retrieves memories by vector similarity, highest first.
	// Must never return memories belonging to another owner.
	Query(ctx context.Context, ownerID string, embedding []float32, limit int) ([]Memory, error)

	// Get retrieves a specific memory by ID and owner.
	Get(ctx context.Context, ownerID string, memoryID string) (Memory, error)

	// Delete removes a memory permanently.
	Delete(ctx context.Context, ownerID string, memoryID string) error

	// Close releases resources.
	Close() error
}

// Embedder converts text to vector embeddings.
// Implementations: mock.Embedder (testing), onnx.Embedder (local, offline).
//
// Embedder is an implementation detail of the Manager; the Optimizer never
// interacts with it directly.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
