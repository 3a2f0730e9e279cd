// Package chromem provides a volatile in-process vector store backed by
// chromem-go. Good for local experimentation; patterns are lost on restart.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/neuraloverlay/apex-go-sdk/logging"
	"github.com/neuraloverlay/apex-go-sdk/memory"
)

// Store wraps chromem-go for vector storage.
// chromem-go is a pure Go, embedded vector database.
type Store struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection // Per-owner collections
	mu          sync.RWMutex
	logger      logging.Logger
}

// Option configures the store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a new chromem-based store.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// getOrCreateCollection returns the collection for an owner.
// Each owner gets their own collection for namespace isolation.
func (s *Store) getOrCreateCollection(ownerID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[ownerID]
	s.mu.RUnlock()

	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if col, exists := s.collections[ownerID]; exists {
		return col, nil
	}

	collectionName := fmt.Sprintf("owner_%s", ownerID)
	if ownerID == "" {
		collectionName = "global" // Global patterns
	}

	col, err := s.db.CreateCollection(
		collectionName,
		nil, // No custom embedding func (we provide embeddings)
		nil, // No custom distance func (use default cosine)
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s.collections[ownerID] = col
	return col, nil
}

// Store saves a memory with its embedding.
func (s *Store) Store(ctx context.Context, mem memory.Memory) error {
	col, err := s.getOrCreateCollection(mem.OwnerID())
	if err != nil {
		return err
	}

	s.logger.Debug("chromem store", "id", mem.ID(), "owner", mem.OwnerID(), "type", mem.Type())

	stored, err := serializeMemory(mem)
	if err != nil {
		return fmt.Errorf("serialize memory: %w", err)
	}

	doc := chromem.Document{
		ID:        mem.ID(),
		Content:   stored.ContentJSON,
		Embedding: mem.Embedding(),
		Metadata:  stored.Metadata,
	}

	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	return nil
}

// Query retrieves memories by vector similarity.
func (s *Store) Query(ctx context.Context, ownerID string, embedding []float32, limit int) ([]memory.Memory, error) {
	col, err := s.getOrCreateCollection(ownerID)
	if err != nil {
		return nil, err
	}

	where := map[string]string{
		"owner_id": ownerID,
	}

	// chromem-go requires nResults <= collection size.
	// Retry with smaller limits if necessary.
	var results []chromem.Result
	for currentLimit := limit; currentLimit >= 1; currentLimit-- {
		var err error
		results, err = col.QueryEmbedding(ctx, embedding, currentLimit, where, nil)
		if err == nil {
			break
		}

		if isInsufficientDocsError(err) {
			if currentLimit == 1 {
				// Collection is empty
				return nil, nil
			}
			continue
		}

		return nil, fmt.Errorf("chromem query: %w", err)
	}

	var memories []memory.Memory
	for i, result := range results {
		mem, err := deserializeMemory(result)
		if err != nil {
			s.logger.Warn("chromem skipping result", "index", i, "error", err)
			continue
		}
		memories = append(memories, mem)
	}

	s.logger.Debug("chromem query", "owner", ownerID, "results", len(memories))
	return memories, nil
}

// Get retrieves a specific memory by ID and owner.
func (s *Store) Get(ctx context.Context, ownerID string, memoryID string) (memory.Memory, error) {
	// chromem-go doesn't expose a direct Get by ID
	return nil, fmt.Errorf("Get not supported in chromem store (use Query instead)")
}

// Delete removes a memory.
// chromem-go does not expose delete by ID; patterns age out via decay
// weighting instead.
func (s *Store) Delete(ctx context.Context, ownerID string, memoryID string) error {
	s.logger.Debug("chromem delete not supported", "id", memoryID)
	return nil
}

// Close releases resources.
func (s *Store) Close() error {
	// chromem-go keeps everything in memory, nothing to close
	return nil
}

// StoredMemory represents a serialized memory for storage.
type StoredMemory struct {
	Type        string
	ContentJSON string
	Metadata    map[string]string
}

// serializeMemory converts a Memory interface to storage format.
func serializeMemory(mem memory.Memory) (*StoredMemory, error) {
	contentBytes, err := json.Marshal(mem.Content())
	if err != nil {
		return nil, fmt.Errorf("marshal content: %w", err)
	}

	metadata := map[string]string{
		"type":       mem.Type(),
		"owner_id":   mem.OwnerID(),
		"task_id":    mem.TaskID(),
		"created_at": mem.CreatedAt().Format(time.RFC3339),
	}

	for k, v := range mem.Metadata() {
		if str, ok := v.(string); ok {
			metadata[k] = str
		} else {
			// Convert to JSON for non-string values
			if bytes, err := json.Marshal(v); err == nil {
				metadata[k] = string(bytes)
			}
		}
	}

	return &StoredMemory{
		Type:        mem.Type(),
		ContentJSON: string(contentBytes),
		Metadata:    metadata,
	}, nil
}

// deserializeMemory converts stored format back to Memory interface.
func deserializeMemory(result chromem.Result) (memory.Memory, error) {
	memType := result.Metadata["type"]

	switch memType {
	case "pattern":
		return deserializePattern(result)
	default:
		return nil, fmt.Errorf("unknown memory type: %s", memType)
	}
}

// deserializePattern deserializes a MemoryPattern from a chromem result.
func deserializePattern(result chromem.Result) (*memory.MemoryPattern, error) {
	var content map[string]interface{}
	if err := json.Unmarshal([]byte(result.Content), &content); err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}

	kind, _ := content["kind"].(string)
	brief, _ := content["brief"].(string)
	draft, _ := content["content"].(string)
	score, _ := content["score"].(float64)
	critique, _ := content["critique"].(string)
	success, _ := content["success"].(bool)

	createdAt, _ := time.Parse(time.RFC3339, result.Metadata["created_at"])

	metadata := make(map[string]interface{})
	for k, v := range result.Metadata {
		if k != "type" && k != "owner_id" && k != "task_id" && k != "created_at" {
			metadata[k] = v
		}
	}

	return memory.NewMemoryPatternFromStorage(
		result.ID,
		result.Metadata["owner_id"],
		result.Metadata["task_id"],
		createdAt,
		result.Embedding,
		kind,
		brief,
		draft,
		score,
		critique,
		success,
		metadata,
	), nil
}

// isInsufficientDocsError checks if error is due to insufficient documents.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
